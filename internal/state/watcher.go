package state

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches a burst of editor/git events into one sync pass.
const debounceWindow = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the corpus root and invokes trigger
// once per debounced burst of Markdown changes, until ctx is cancelled.
// The trigger is expected to run a delta sync pass; this watcher does not
// track individual paths because the change-set resolver re-derives the
// delta from checksums anyway.
//
// New directories created at runtime are automatically added to the
// watch list.
func Watch(ctx context.Context, corpusRoot string, logger *slog.Logger, trigger func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, corpusRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", corpusRoot))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounceWindow)
			fire = timer.C
		} else {
			timer.Reset(debounceWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			trigger()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories are added to the watcher; their contents
			// surface through the next debounced pass.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and all of its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		// Skip dot directories (.git and friends).
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") && p != dir {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
