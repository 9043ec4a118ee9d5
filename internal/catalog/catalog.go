// Package catalog reads the give-item list: a CSV whose second column is the
// display name and third column the token used in give commands.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNotFound = errors.New("item catalog not found")

type Item struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Label is the "<name> - <token>" form operators search on.
func (i Item) Label() string { return i.Name + " - " + i.Token }

func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open item catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads catalog rows; rows with fewer than three columns are skipped.
func Parse(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	items := []Item{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse item catalog: %w", err)
		}
		if len(row) < 3 {
			continue
		}
		token := strings.TrimSpace(row[2])
		if token == "" {
			continue
		}
		items = append(items, Item{Name: strings.TrimSpace(row[1]), Token: token})
	}
	return items, nil
}

// Filter keeps items whose label contains query, ignoring case. An empty
// query keeps everything.
func Filter(items []Item, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Item{}
	for _, it := range items {
		if q == "" || strings.Contains(strings.ToLower(it.Label()), q) {
			out = append(out, it)
		}
	}
	return out
}

// Resolve finds the item selected by s, which may be a token or a full label.
func Resolve(items []Item, s string) (Item, bool) {
	s = strings.TrimSpace(s)
	if _, token, ok := strings.Cut(s, " - "); ok {
		s = strings.TrimSpace(token)
	}
	for _, it := range items {
		if strings.EqualFold(it.Token, s) {
			return it, true
		}
	}
	return Item{}, false
}
