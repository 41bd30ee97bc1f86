package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

// Handler receives the drafts changed since the last batch, sorted.
type Handler func(ctx context.Context, paths []string)

type Options struct {
	Roots    []string
	Debounce time.Duration
	// Filter selects the files worth reporting; nil accepts every file.
	Filter  func(path string) bool
	OnError func(err error)
}

// Run watches every directory under Roots until ctx is done. Bursts of events
// within Debounce of each other are delivered as one batch.
func Run(ctx context.Context, opts Options, handle Handler) error {
	if len(opts.Roots) == 0 {
		return errors.New("watch: no directories")
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range opts.Roots {
		if err := addTree(w, root); err != nil {
			return err
		}
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						report(opts.OnError, err)
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if opts.Filter != nil && !opts.Filter(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			report(opts.OnError, err)
		case <-timer.C:
			batch := drain(pending)
			if len(batch) > 0 {
				handle(ctx, batch)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// drain empties pending, keeping only paths that still exist.
func drain(pending map[string]struct{}) []string {
	out := make([]string, 0, len(pending))
	for p := range pending {
		delete(pending, p)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func report(fn func(error), err error) {
	if fn != nil && err != nil {
		fn(err)
	}
}
