package console

import (
	"database/sql"
	"log"
)

// CommandLog records every command the session was asked to relay.
type CommandLog interface {
	Record(source, command string, relayed bool)
}

// SQLCommandLog stores the audit trail in the command_log table.
type SQLCommandLog struct {
	db *sql.DB
}

func NewSQLCommandLog(db *sql.DB) *SQLCommandLog {
	return &SQLCommandLog{db: db}
}

func (l *SQLCommandLog) Record(source, command string, relayed bool) {
	r := 0
	if relayed {
		r = 1
	}
	if _, err := l.db.Exec(`INSERT INTO command_log (source, command, relayed) VALUES (?, ?, ?)`, source, command, r); err != nil {
		log.Printf("console: record command: %v", err)
	}
}

type Entry struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Command   string `json:"command"`
	Relayed   bool   `json:"relayed"`
	CreatedAt string `json:"created_at"`
}

// Recent returns the latest entries, newest first.
func (l *SQLCommandLog) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, source, command, relayed, created_at FROM command_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var relayed int
		if err := rows.Scan(&e.ID, &e.Source, &e.Command, &relayed, &e.CreatedAt); err != nil {
			continue
		}
		e.Relayed = relayed == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
