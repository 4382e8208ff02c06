package collector

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watch starts a recursive fsnotify watcher on root and calls onChange with
// the path of every resource file that is written or created, once it has
// been quiet for debounce. onChange runs on the watching goroutine, so calls
// never overlap. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, root string, ignorePatterns []string, debounce time.Duration, onChange func(path string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	patterns, _ := loadIgnorePatterns(root, ignorePatterns)

	addTree := func(dir string) error {
		return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if path != root && (slices.Contains(alwaysSkipped, d.Name()) || isIgnored(root, path, patterns)) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
	}
	if err := addTree(root); err != nil {
		return err
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Has(fsnotify.Create) && !isIgnored(root, event.Name, patterns) {
					_ = addTree(event.Name)
				}
				continue
			}
			if !IsResourceFile(event.Name) || isIgnored(root, event.Name, patterns) {
				continue
			}
			pending[event.Name] = time.Now().Add(debounce)

		case now := <-ticker.C:
			var due []string
			for path, at := range pending {
				if !now.Before(at) {
					due = append(due, path)
				}
			}
			slices.Sort(due)
			for _, path := range due {
				delete(pending, path)
				onChange(path)
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
