package collector

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ignoreFiles are read from the root of every walked directory.
var ignoreFiles = []string{".gitignore", ".fhirvalidatorignore"}

// alwaysSkipped directories are never descended into.
var alwaysSkipped = []string{".git", "node_modules"}

// ResourceCollector expands command-line paths into JSON resource files.
type ResourceCollector struct {
	IgnorePatterns []string
}

// Collect returns every file named in paths plus every *.json file below the
// directories in paths, minus ignored ones. Files named explicitly are kept
// whatever their extension. A path that does not exist is an error.
func (rc *ResourceCollector) Collect(paths []string) (Result, error) {
	var res Result
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			res.Files = append(res.Files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return Result{}, fmt.Errorf("cannot read %s: %w", root, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}

		patterns, err := loadIgnorePatterns(root, rc.IgnorePatterns)
		if err != nil {
			// Non-fatal: continue with configured patterns only.
			res.Warnings = append(res.Warnings, "failed to load ignore patterns: "+err.Error())
		}
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("skipping %s: %v", path, err))
				return nil
			}
			if d.IsDir() {
				if path != root && (slices.Contains(alwaysSkipped, d.Name()) || isIgnored(root, path, patterns)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsResourceFile(path) || isIgnored(root, path, patterns) {
				return nil
			}
			add(path)
			return nil
		})
	}

	slices.Sort(res.Files)
	return res, nil
}

// IsResourceFile reports whether path looks like a JSON resource file.
func IsResourceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// isIgnored reports whether path matches any of the given glob patterns,
// tried against the base name, the path relative to root and the path itself.
func isIgnored(root, path string, patterns []string) bool {
	rel := path
	if r, err := filepath.Rel(root, path); err == nil {
		rel = r
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "/"), "/")
		if pattern == "" {
			continue
		}
		for _, candidate := range []string{base, rel, path} {
			if matched, _ := filepath.Match(pattern, candidate); matched {
				return true
			}
		}
	}
	return false
}

// loadIgnorePatterns merges the configured patterns with those from the
// ignore files found in dir.
func loadIgnorePatterns(dir string, configured []string) ([]string, error) {
	patterns := slices.Clone(configured)
	for _, name := range ignoreFiles {
		extra, err := readPatternFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return patterns, err
		}
		patterns = append(patterns, extra...)
	}
	return patterns, nil
}

// readPatternFile reads a gitignore-style file and returns non-empty,
// non-comment, non-negated lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
