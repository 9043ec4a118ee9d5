// Package presence derives the set of connected players from the server's
// console log.
//
// The log is append-only and carries no index: every query replays it from
// the first line. A player is present when their most recent connect record
// has not been followed by a disconnect record.
package presence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/reedfamily/bdspanel/internal/game"
)

// maxLineSize bounds a single console line. Longer lines are skipped.
const maxLineSize = 1 << 20

// Set is an unordered collection of player identifiers.
type Set map[string]struct{}

func (s Set) Has(player string) bool {
	_, ok := s[player]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// apply folds one line into s.
func (s Set) apply(adapter game.GameAdapter, line string) {
	ev := adapter.ParseLogLine(line)
	if ev == nil {
		return
	}
	switch ev.Type {
	case game.EventConnect:
		s[ev.Player] = struct{}{}
	case game.EventDisconnect:
		delete(s, ev.Player)
	}
}

// Compute folds every line of r, in order, into a fresh Set.
func Compute(r io.Reader, adapter game.GameAdapter) (Set, error) {
	set := Set{}
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := readLine(br)
		if line != "" {
			set.apply(adapter, line)
		}
		if err == io.EOF {
			return set, nil
		}
		if err != nil {
			return set, err
		}
	}
}

// readLine returns the next line without its terminator. Overlong lines are
// consumed and returned empty.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	overflow := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if !overflow {
			buf = append(buf, chunk...)
			if len(buf) > maxLineSize {
				overflow = true
				buf = nil
			}
		}
		if err != nil {
			return string(buf), err
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

// Load reads the log at path and computes the presence set. A missing log
// means nobody has connected yet and yields an empty set.
func Load(path string, adapter game.GameAdapter) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("open presence log: %w", err)
	}
	defer f.Close()

	set, err := Compute(f, adapter)
	if err != nil {
		return nil, fmt.Errorf("read presence log: %w", err)
	}
	return set, nil
}

// Tracker maintains the same fold incrementally as lines arrive.
// Compute over the full log remains the reference result.
type Tracker struct {
	adapter game.GameAdapter

	mu  sync.RWMutex
	set Set
}

func NewTracker(adapter game.GameAdapter) *Tracker {
	return &Tracker{adapter: adapter, set: Set{}}
}

// Observe folds one console line into the tracked set.
func (t *Tracker) Observe(line string) {
	t.mu.Lock()
	t.set.apply(t.adapter, line)
	t.mu.Unlock()
}

// Reset empties the set, e.g. when the log is truncated on server start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.set = Set{}
	t.mu.Unlock()
}

// Snapshot returns a copy of the current set.
func (t *Tracker) Snapshot() Set {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(Set, len(t.set))
	for p := range t.set {
		out[p] = struct{}{}
	}
	return out
}
