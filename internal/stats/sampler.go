// Package stats samples the online player count on an interval and keeps a
// short history of it in SQLite.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/reedfamily/bdspanel/internal/presence"
)

// Retention is how long samples are kept.
const Retention = 7 * 24 * time.Hour

const sqliteTime = "2006-01-02 15:04:05"

type Sample struct {
	ID         int64    `json:"id"`
	Running    bool     `json:"running"`
	Online     int      `json:"online"`
	Players    []string `json:"players"`
	RecordedAt string   `json:"recorded_at"`
}

// Source reports whether the server is up and who is on it.
type Source interface {
	Running() bool
	Tracker() *presence.Tracker
}

type Sampler struct {
	db       *sql.DB
	source   Source
	interval time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	latest    *Sample
	listeners map[chan *Sample]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSampler(db *sql.DB, source Source, interval time.Duration) *Sampler {
	return &Sampler{
		db:        db,
		source:    source,
		interval:  interval,
		now:       time.Now,
		listeners: make(map[chan *Sample]struct{}),
	}
}

func (s *Sampler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.SampleOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SampleOnce()
			}
		}
	}()

	log.Printf("stats: sampler started (%s interval)", s.interval)
}

func (s *Sampler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// SampleOnce records the current presence set, publishes it and prunes
// samples older than Retention.
func (s *Sampler) SampleOnce() *Sample {
	now := s.now().UTC()
	sample := &Sample{Running: s.source.Running(), Players: []string{}, RecordedAt: now.Format(time.RFC3339)}
	if sample.Running {
		sample.Players = s.source.Tracker().Snapshot().Sorted()
	}
	sample.Online = len(sample.Players)

	players, _ := json.Marshal(sample.Players)
	res, err := s.db.Exec(
		`INSERT INTO player_samples (running, online, players, recorded_at) VALUES (?, ?, ?, ?)`,
		sample.Running, sample.Online, string(players), now.Format(sqliteTime),
	)
	if err != nil {
		log.Printf("stats: insert sample: %v", err)
	} else if id, err := res.LastInsertId(); err == nil {
		sample.ID = id
	}

	s.mu.Lock()
	s.latest = sample
	for ch := range s.listeners {
		select {
		case ch <- sample:
		default:
		}
	}
	s.mu.Unlock()

	cutoff := now.Add(-Retention).Format(sqliteTime)
	if _, err := s.db.Exec("DELETE FROM player_samples WHERE recorded_at < ?", cutoff); err != nil {
		log.Printf("stats: cleanup: %v", err)
	}
	return sample
}

func (s *Sampler) Latest() *Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// History returns samples recorded within period, oldest first.
func (s *Sampler) History(period time.Duration) ([]Sample, error) {
	since := s.now().Add(-period).UTC().Format(sqliteTime)
	rows, err := s.db.Query(
		`SELECT id, running, online, players, recorded_at FROM player_samples WHERE recorded_at >= ? ORDER BY recorded_at ASC, id ASC`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	result := []Sample{}
	for rows.Next() {
		var sm Sample
		var players string
		if err := rows.Scan(&sm.ID, &sm.Running, &sm.Online, &players, &sm.RecordedAt); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(players), &sm.Players); err != nil || sm.Players == nil {
			sm.Players = []string{}
		}
		result = append(result, sm)
	}
	return result, rows.Err()
}

func (s *Sampler) Subscribe() chan *Sample {
	ch := make(chan *Sample, 1)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Sampler) Unsubscribe(ch chan *Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[ch]; ok {
		delete(s.listeners, ch)
		close(ch)
	}
}
