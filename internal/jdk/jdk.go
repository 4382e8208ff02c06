// Package jdk locates the Java runtime and the validator jar used to launch
// the validation server.
package jdk

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/Outburn-IL/fhir-validator/internal/config"
)

// ErrJavaNotFound is returned when no java executable can be located.
var ErrJavaNotFound = errors.New("java executable not found: set java_path, JAVA_HOME, or add java to PATH")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

func javaBinary() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// FindJava returns the java executable to use. An explicit path wins, then
// $JAVA_HOME/bin/java, then java on PATH.
func FindJava(explicit string) (string, error) {
	if explicit != "" {
		if err := checkFile(explicit); err != nil {
			return "", fmt.Errorf("java executable %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		candidate := filepath.Join(home, "bin", javaBinary())
		if checkFile(candidate) == nil {
			return candidate, nil
		}
	}
	p, err := lookPath(javaBinary())
	if err != nil {
		return "", ErrJavaNotFound
	}
	return p, nil
}

// DefaultJarPath is where the validator jar is expected when none is configured.
func DefaultJarPath() (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bin", "validator.jar"), nil
}

// ResolveJar returns explicit, or the default jar path, after checking the
// file exists.
func ResolveJar(explicit string) (string, error) {
	jar := explicit
	if jar == "" {
		p, err := DefaultJarPath()
		if err != nil {
			return "", fmt.Errorf("resolving validator jar: %w", err)
		}
		jar = p
	}
	if err := checkFile(jar); err != nil {
		return "", fmt.Errorf("validator jar %s: %w", jar, err)
	}
	return jar, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	return nil
}
