package game

import (
	"fmt"
	"sort"
	"sync"
)

var (
	mu       sync.RWMutex
	adapters = map[string]GameAdapter{}
)

func Register(adapter GameAdapter) {
	mu.Lock()
	defer mu.Unlock()
	adapters[adapter.Game()] = adapter
}

func Get(game string) GameAdapter {
	mu.RLock()
	defer mu.RUnlock()
	return adapters[game]
}

// Lookup is Get with an error naming the registered games.
func Lookup(game string) (GameAdapter, error) {
	if a := Get(game); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("unknown game %q (registered: %v)", game, Names())
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(adapters))
	for k := range adapters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
