// Package queue implements the command queue file shared between the player
// list tool and the panel.
//
// The file holds one raw server command per line. Writers append; the panel
// drains it (read everything, then truncate) on a fixed interval and relays
// each line to the server's stdin. Both sides take an advisory lock on
// <file>.lock so a line appended during a drain is never truncated away.
// Writers that ignore the lock can still lose lines in that window.
package queue

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// ErrMultiline is returned when a command would span more than one line.
var ErrMultiline = errors.New("command contains a line break")

// File is a command queue file on disk.
type File struct {
	path string

	// mu serialises users of lock within this process; flock.Flock treats
	// a second Lock on the same handle as already held.
	mu   sync.Mutex
	lock *flock.Flock
}

func Open(path string) *File {
	return &File{path: path, lock: flock.New(path + ".lock")}
}

func (f *File) Path() string { return f.path }

// Enqueue appends commands, one per line. Blank commands are skipped; the
// whole call fails without writing if any command spans lines.
func (f *File) Enqueue(commands ...string) error {
	var buf bytes.Buffer
	for _, c := range commands {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.ContainsAny(c, "\r\n") {
			return fmt.Errorf("enqueue %q: %w", c, ErrMultiline)
		}
		buf.WriteString(c)
		buf.WriteByte('\n')
	}
	if buf.Len() == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	unlock, err := f.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		out.Close()
		return fmt.Errorf("write queue: %w", err)
	}
	return out.Close()
}

func (f *File) acquire() (func(), error) {
	f.mu.Lock()
	if err := f.lock.Lock(); err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("acquire queue lock: %w", err)
	}
	return func() {
		_ = f.lock.Unlock()
		f.mu.Unlock()
	}, nil
}

// Drain reads every queued command and truncates the file before returning
// them. Commands come back trimmed, blank lines dropped, in file order.
// A missing or empty file yields no commands.
func (f *File) Drain() ([]string, error) {
	if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat queue: %w", err)
	}

	unlock, err := f.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := os.Truncate(f.path, 0); err != nil {
		return nil, fmt.Errorf("truncate queue: %w", err)
	}

	var commands []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), len(data)+1)
	for sc.Scan() {
		if c := strings.TrimSpace(sc.Text()); c != "" {
			commands = append(commands, c)
		}
	}
	return commands, nil
}

