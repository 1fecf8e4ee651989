// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/z5labs/sdk-go/try"
)

const defaultDebounce = 100 * time.Millisecond

// watch calls run once and then again after any of files changes, until
// ctx is cancelled. Bursts of events within debounce cause a single run.
//
// Directories are watched instead of the files themselves since editors
// often replace a file rather than write to it.
func watch(ctx context.Context, log *slog.Logger, files []string, debounce time.Duration, run func(context.Context)) (err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer try.Close(&err, w)

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		err = w.Add(dir)
		if err != nil {
			return err
		}
		dirs[dir] = true
	}

	run(ctx)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WarnContext(ctx, "file watcher reported an error", slog.Any("error", err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.DebugContext(ctx, "file changed", slog.String("name", ev.Name))
			timer.Reset(debounce)
		case <-timer.C:
			run(ctx)
		}
	}
}
