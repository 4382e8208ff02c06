package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunSetup runs the interactive setup wizard, reading answers from in and
// writing prompts to out. If existing is non-nil, its values are offered as
// defaults (edit mode).
func RunSetup(existing *Config, in io.Reader, out io.Writer) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	cfg := Defaults()
	if existing != nil {
		cfg = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌──────────────────────────────────────┐")
	fmt.Fprintln(out, "  │   fhir-validator - first-time setup  │")
	fmt.Fprintln(out, "  └──────────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	cfg.SV, err = ask("  FHIR version", cfg.SV)
	if err != nil {
		return nil, err
	}

	igs, err := ask("  Implementation guides (comma separated, e.g. il.core.fhir.r4#0.16.2)", strings.Join(cfg.IGs, ","))
	if err != nil {
		return nil, err
	}
	cfg.IGs = splitList(igs)

	cfg.TxServer, err = ask("  Terminology server (n/a to disable, empty for the server default)", cfg.TxServer)
	if err != nil {
		return nil, err
	}

	cfg.JarPath, err = ask("  Path to validator jar (empty for the default location)", cfg.JarPath)
	if err != nil {
		return nil, err
	}

	cfg.JavaPath, err = ask("  Path to java (empty to use JAVA_HOME or PATH)", cfg.JavaPath)
	if err != nil {
		return nil, err
	}

	port, err := ask("  Server port", strconv.Itoa(cfg.Port))
	if err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("invalid port %q", port)
	}
	cfg.Port = p

	format, err := ask("  Default report format (markdown/json)", cfg.DefaultFormat)
	if err != nil {
		return nil, err
	}
	if format == "json" {
		cfg.DefaultFormat = "json"
	} else {
		cfg.DefaultFormat = "markdown"
	}

	fmt.Fprintln(out)
	return &cfg, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
