package app

import (
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// startBinaryWatcher watches the directory holding the remindctl binary
// and fires onChange when the binary itself is created, replaced, or
// removed. Watching the directory instead of the file survives the
// rename-over-replace that installers do.
func startBinaryWatcher(logger *slog.Logger, binary string, onChange func()) (io.Closer, error) {
	path := binary
	if !strings.ContainsRune(path, filepath.Separator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
					continue
				}
				logger.Info("remindctl_binary_changed",
					slog.String("path", abs),
					slog.String("op", event.Op.String()))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("binary_watch_error", slog.String("error", err.Error()))
			}
		}
	}()
	return watcher, nil
}
