package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"content-factory/internal/discovery"
	"content-factory/internal/logging"
	"content-factory/internal/watch"
)

// Watch re-normalizes drafts under opts.Inputs whenever they change, until ctx
// is done. Directories are watched recursively; a file input watches its
// parent directory but only reacts to that file.
func Watch(ctx context.Context, opts Options) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	roots, filter, err := watchRoots(s.absInputs())
	if err != nil {
		return err
	}
	for _, root := range roots {
		s.logger.Emit(logging.Event{Event: "watch_start", Input: root})
	}

	return watch.Run(ctx, watch.Options{
		Roots:  roots,
		Filter: filter,
		OnError: func(err error) {
			s.logger.Emit(logging.Event{Level: "error", Event: "watch_error", Error: err.Error()})
		},
	}, func(ctx context.Context, paths []string) {
		for _, p := range paths {
			s.logger.Emit(logging.Event{Event: "watch_change", Input: p})
		}
		res, err := s.runBatch(ctx, paths)
		if err != nil && !isCanceled(err) {
			s.logger.Emit(logging.Event{Level: "error", Event: "watch_error", Error: err.Error()})
		}
		s.logger.Emit(logging.Event{Event: "finished", Error: summaryLine(res)})
	})
}

func watchRoots(inputs []string) ([]string, func(string) bool, error) {
	roots := make([]string, 0, len(inputs))
	files := map[string]struct{}{}
	seen := map[string]struct{}{}
	for _, in := range inputs {
		st, err := os.Stat(in)
		if err != nil {
			return nil, nil, err
		}
		root := in
		if !st.IsDir() {
			files[in] = struct{}{}
			root = filepath.Dir(in)
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	dirs := map[string]struct{}{}
	for _, in := range inputs {
		if _, isFile := files[in]; !isFile {
			dirs[in] = struct{}{}
		}
	}
	filter := func(path string) bool {
		if !discovery.IsDraft(path) {
			return false
		}
		if _, ok := files[path]; ok {
			return true
		}
		return underAny(path, dirs)
	}
	return roots, filter, nil
}

func underAny(path string, dirs map[string]struct{}) bool {
	for dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
