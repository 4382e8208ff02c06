package collector

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func writeFile(t interface {
	Helper()
	Fatalf(string, ...any)
}, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// Feature: fhir-validator, Property: Every JSON file below a directory is collected once
func TestCollectFindsJSONFiles(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root, err := os.MkdirTemp("", "collect-*")
		if err != nil {
			rt.Fatalf("tempdir: %v", err)
		}
		defer os.RemoveAll(root)

		n := rapid.IntRange(1, 8).Draw(rt, "n")
		want := map[string]bool{}
		for range n {
			dir := rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, "dir")
			name := rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, "name")
			p := filepath.Join(root, dir, name+".json")
			writeFile(rt, p, `{"resourceType":"Basic"}`)
			want[p] = true
			writeFile(rt, filepath.Join(root, dir, name+".txt"), "not a resource")
		}

		// Listing the same directory twice must not duplicate files.
		res, err := (&ResourceCollector{}).Collect([]string{root, root})
		if err != nil {
			rt.Fatalf("Collect: %v", err)
		}
		if len(res.Files) != len(want) {
			rt.Fatalf("got %d files, want %d: %v", len(res.Files), len(want), res.Files)
		}
		for _, f := range res.Files {
			if !want[f] {
				rt.Fatalf("unexpected file %q", f)
			}
		}
		if !slices.IsSorted(res.Files) {
			rt.Fatalf("files not sorted: %v", res.Files)
		}
	})
}

// Feature: fhir-validator, Property: Ignore pattern filtering
func TestIgnorePatternFiltering(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root, err := os.MkdirTemp("", "ignore-*")
		if err != nil {
			rt.Fatalf("tempdir: %v", err)
		}
		defer os.RemoveAll(root)

		prefix := rapid.StringMatching(`[a-z]{2,4}`).Draw(rt, "prefix")
		pattern := prefix + "-*.json"

		n := rapid.IntRange(1, 5).Draw(rt, "n")
		for range n {
			stem := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "stem")
			writeFile(rt, filepath.Join(root, prefix+"-"+stem+".json"), "{}")
		}
		kept := filepath.Join(root, "Z"+prefix+".json")
		writeFile(rt, kept, "{}")

		res, err := (&ResourceCollector{IgnorePatterns: []string{pattern}}).Collect([]string{root})
		if err != nil {
			rt.Fatalf("Collect: %v", err)
		}
		if len(res.Files) != 1 || res.Files[0] != kept {
			rt.Fatalf("pattern %q: got %v, want only %s", pattern, res.Files, kept)
		}
	})
}

func TestCollectHonoursIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "# build output\nbuild/\n")
	writeFile(t, filepath.Join(root, ".fhirvalidatorignore"), "*.draft.json\n!keep.json\n")
	writeFile(t, filepath.Join(root, "build", "out.json"), "{}")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "package.json"), "{}")
	writeFile(t, filepath.Join(root, ".git", "config.json"), "{}")
	writeFile(t, filepath.Join(root, "patient.draft.json"), "{}")
	writeFile(t, filepath.Join(root, "patient.json"), "{}")

	res, err := (&ResourceCollector{}).Collect([]string{root})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(res.Files) != 1 || res.Files[0] != filepath.Join(root, "patient.json") {
		t.Errorf("Files = %v", res.Files)
	}
}

func TestCollectKeepsExplicitFiles(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "bundle.fhir")
	writeFile(t, p, "{}")

	res, err := (&ResourceCollector{IgnorePatterns: []string{"*.fhir"}}).Collect([]string{p})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(res.Files) != 1 || res.Files[0] != p {
		t.Errorf("explicit file dropped: %v", res.Files)
	}
}

func TestCollectMissingPath(t *testing.T) {
	if _, err := (&ResourceCollector{}).Collect([]string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
