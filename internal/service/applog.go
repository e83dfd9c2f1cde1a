// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// LogFileName holds the combined output of the running app processes.
const LogFileName = ".parallel-app.log"

// AppLog is the single app log file. It is truncated on every start and
// appended to by all app processes.
type AppLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewAppLog returns the log stored in dir.
func NewAppLog(dir string) *AppLog {
	return &AppLog{path: filepath.Join(dir, LogFileName)}
}

// Path returns the log file location.
func (l *AppLog) Path() string {
	return l.path
}

// Truncate empties the log and returns the shared append handle.
func (l *AppLog) Truncate() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("truncate app log: %w", err)
	}
	l.file = f
	return f, nil
}

// Writer returns the shared append handle, opening it if needed.
func (l *AppLog) Writer() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file, nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open app log: %w", err)
	}
	l.file = f
	return f, nil
}

// Close releases the append handle.
func (l *AppLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// markerPrefix starts the lines the orchestrator itself writes.
const markerPrefix = "[parallel]"

// Match reports whether any app-written line of the log matches re.
func (l *AppLog) Match(re *regexp.Regexp) bool {
	f, err := os.Open(l.path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if bytes.HasPrefix(line, []byte(markerPrefix)) {
			continue
		}
		if re.Match(line) {
			return true
		}
	}
	return false
}

// Tail returns the last n lines.
func (l *AppLog) Tail(n int) ([]string, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Follow streams lines appended to the log until ctx is done. A truncation
// restarts reading from the top. The channel is closed on return.
func (l *AppLog) Follow(ctx context.Context, fromStart bool) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so the file may be created or replaced later.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	var offset int64
	if !fromStart {
		if fi, err := os.Stat(l.path); err == nil {
			offset = fi.Size()
		}
	}

	out := make(chan string, 256)
	go func() {
		defer close(out)
		defer watcher.Close()

		var partial string
		emit := func() bool {
			var chunk string
			chunk, offset = readFrom(l.path, offset)
			if chunk == "" {
				return true
			}
			partial += chunk
			for {
				i := strings.IndexByte(partial, '\n')
				if i < 0 {
					break
				}
				select {
				case out <- partial[:i]:
				case <-ctx.Done():
					return false
				}
				partial = partial[i+1:]
			}
			return true
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(l.path) {
					continue
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					offset, partial = 0, ""
					continue
				}
				if !emit() {
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// readFrom returns the bytes after offset and the new offset. If the file
// shrank it was truncated, so reading restarts at zero.
func readFrom(path string, offset int64) (string, int64) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", offset
	}
	if fi.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", offset
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", offset
	}
	return string(data), offset + int64(len(data))
}
