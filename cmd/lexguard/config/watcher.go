// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the write bursts editors produce on save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the settings file whenever it changes on disk.
//
// Description:
//
//	Watches the file's parent directory so editor rename-and-replace
//	saves are seen. Each successful reload invokes onChange with the new
//	settings; a reload that fails validation is logged and skipped, the
//	previous settings stay in effect.
//
// Inputs:
//
//	ctx - Stops the watch when done.
//	path - Settings file location. Must not be empty.
//	onChange - Called from the watch goroutine after each valid reload.
//
// Outputs:
//
//	error - Non-nil when the watcher cannot be created or the directory
//	        cannot be watched. Runtime watch errors are only logged.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					s, err := Load(path)
					if err != nil {
						logger.Warn("settings reload skipped",
							slog.String("path", path),
							slog.String("error", err.Error()),
						)
						return
					}
					logger.Info("settings reloaded", slog.String("path", path))
					onChange(s)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("settings watch error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
