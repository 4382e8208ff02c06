package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: fhir-validator, Property: Config merge precedence
func TestConfigMergePrecedence(t *testing.T) {
	// Generator for a non-empty string field value.
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	// Generator for a Config with all string fields either empty or non-empty.
	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasSV") {
			cfg.SV = nonEmptyString.Draw(t, "sv")
		}
		if rapid.Bool().Draw(t, "hasTxServer") {
			cfg.TxServer = nonEmptyString.Draw(t, "txServer")
		}
		if rapid.Bool().Draw(t, "hasDefaultFormat") {
			cfg.DefaultFormat = nonEmptyString.Draw(t, "defaultFormat")
		}
		if rapid.Bool().Draw(t, "hasJarPath") {
			cfg.JarPath = nonEmptyString.Draw(t, "jarPath")
		}
		if rapid.Bool().Draw(t, "hasPort") {
			cfg.Port = rapid.IntRange(1, 65535).Draw(t, "port")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "SV", global.SV, project.SV, defaults.SV, merged.SV)
		checkStringField(t, "TxServer", global.TxServer, project.TxServer, defaults.TxServer, merged.TxServer)
		checkStringField(t, "DefaultFormat", global.DefaultFormat, project.DefaultFormat, defaults.DefaultFormat, merged.DefaultFormat)
		checkStringField(t, "JarPath", global.JarPath, project.JarPath, defaults.JarPath, merged.JarPath)

		wantPort := defaults.Port
		if global.Port != 0 {
			wantPort = global.Port
		}
		if project.Port != 0 {
			wantPort = project.Port
		}
		if merged.Port != wantPort {
			t.Fatalf("Port: want %d, got %d", wantPort, merged.Port)
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set - expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set - expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set - expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.Port != 3500 {
		t.Errorf("Port: want 3500, got %d", d.Port)
	}
	if d.DefaultFormat != "markdown" {
		t.Errorf("DefaultFormat: want %q, got %q", "markdown", d.DefaultFormat)
	}
	if d.IgnorePatterns == nil || len(d.IgnorePatterns) != 0 {
		t.Errorf("IgnorePatterns: want empty slice, got %v", d.IgnorePatterns)
	}
	ka, err := d.KeepAliveInterval()
	if err != nil || ka != 55*time.Minute {
		t.Errorf("KeepAliveInterval: want 55m, got %v (%v)", ka, err)
	}
}

func TestKeepAliveIntervalRejectsGarbage(t *testing.T) {
	for _, v := range []string{"soon", "-5m", "0s"} {
		if _, err := (Config{KeepAlive: v}).KeepAliveInterval(); err == nil {
			t.Errorf("KeepAlive %q: expected error", v)
		}
	}
}

func TestCLIContextCarriesValidationOptions(t *testing.T) {
	c := Config{SV: "4.0.1", IGs: []string{"il.core.fhir.r4#0.16.2"}, TxServer: "n/a", Locale: "he"}
	ctx := c.CLIContext()
	if ctx.SV != "4.0.1" || len(ctx.IGs) != 1 || ctx.TxServer != "n/a" || ctx.Locale != "he" {
		t.Errorf("CLIContext = %+v", ctx)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	defaults := Defaults()
	if cfg.DefaultFormat != defaults.DefaultFormat {
		t.Errorf("DefaultFormat: want %q, got %q", defaults.DefaultFormat, cfg.DefaultFormat)
	}
	if cfg.Port != defaults.Port {
		t.Errorf("Port: want %d, got %d", defaults.Port, cfg.Port)
	}
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	cfg, err := LoadProject(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadProjectYAML(t *testing.T) {
	tmp := t.TempDir()
	yml := "sv: 4.0.1\nigs:\n  - il.core.fhir.r4#0.16.2\ntx_server: n/a\nport: 3600\n"
	if err := os.WriteFile(filepath.Join(tmp, ".fhirvalidator.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProject(tmp)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if cfg.Port != 3600 || cfg.TxServer != "n/a" || len(cfg.IGs) != 1 || cfg.IGs[0] != "il.core.fhir.r4#0.16.2" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadProjectPrefersJSON(t *testing.T) {
	tmp := t.TempDir()
	_ = os.WriteFile(filepath.Join(tmp, ".fhirvalidator.json"), []byte(`{"sv":"5.0.0"}`), 0o644)
	_ = os.WriteFile(filepath.Join(tmp, ".fhirvalidator.yaml"), []byte("sv: 4.3.0\n"), 0o644)

	cfg, err := LoadProject(tmp)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if cfg.SV != "5.0.0" {
		t.Errorf("SV = %q, want the JSON file's value", cfg.SV)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	// Write an invalid JSON file where LoadGlobal expects it.
	cfgDir := filepath.Join(tmp, "fhir-validator")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid JSON, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "config.json") {
		t.Errorf("error should name the file, got %q", err.Error())
	}
}

func TestSaveGlobalRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	want := Defaults()
	want.IGs = []string{"il.core.fhir.r4#0.16.2"}
	want.JarPath = "/opt/validator.jar"
	if err := SaveGlobal(&want); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}
	got, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if got.JarPath != want.JarPath || len(got.IGs) != 1 || got.Port != want.Port {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestRunSetupAnswers(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"4.0.1",
		"il.core.fhir.r4#0.16.2, hl7.fhir.uv.ips#1.1.0",
		"n/a",
		"/opt/validator.jar",
		"",
		"3600",
		"json",
	}, "\n") + "\n")
	var out bytes.Buffer

	cfg, err := RunSetup(nil, in, &out)
	if err != nil {
		t.Fatalf("RunSetup: %v", err)
	}
	if len(cfg.IGs) != 2 || cfg.IGs[1] != "hl7.fhir.uv.ips#1.1.0" {
		t.Errorf("IGs = %v", cfg.IGs)
	}
	if cfg.TxServer != "n/a" || cfg.JarPath != "/opt/validator.jar" || cfg.JavaPath != "" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Port != 3600 || cfg.DefaultFormat != "json" {
		t.Errorf("Port/DefaultFormat = %d/%q", cfg.Port, cfg.DefaultFormat)
	}
	if !strings.Contains(out.String(), "FHIR version [4.0.1]") {
		t.Errorf("prompt should show the default, got %q", out.String())
	}
}

func TestRunSetupRejectsBadPort(t *testing.T) {
	in := strings.NewReader("\n\n\n\n\nnot-a-port\n\n")
	if _, err := RunSetup(nil, in, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestGlobalExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if GlobalExists() {
		t.Fatal("no config written yet")
	}
	d := Defaults()
	if err := SaveGlobal(&d); err != nil {
		t.Fatalf("SaveGlobal: %v", err)
	}
	if !GlobalExists() {
		t.Error("config should exist after SaveGlobal")
	}
}
