// Package history archives the server console log when the server stops.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Archive struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

type Service struct {
	db       *sql.DB
	dir      string
	now      func() time.Time
	resetLog func(path string) error
}

func NewService(db *sql.DB, dir string) *Service {
	return &Service{db: db, dir: dir, now: time.Now, resetLog: emptyFile}
}

func emptyFile(path string) error { return os.WriteFile(path, nil, 0644) }

func (s *Service) Dir() string { return s.dir }

// Archive moves the live log at logPath into the history directory under a
// timestamped, unique name and leaves an empty log in its place. A missing
// log is not an error and produces no archive. The archive is recorded before
// the live log is reset, so a failed reset still returns it with the error.
func (s *Service) Archive(logPath string) (*Archive, error) {
	info, err := os.Stat(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	id := uuid.New().String()[:8]
	timestamp := s.now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("server_log_%s_%s.txt", timestamp, id)
	dest := filepath.Join(s.dir, filename)

	if err := os.Rename(logPath, dest); err != nil {
		// Rename fails across filesystems; fall back to copying.
		if err := copyFile(dest, logPath); err != nil {
			os.Remove(dest)
			return nil, fmt.Errorf("archive log: %w", err)
		}
	}

	archive := &Archive{
		ID:        id,
		Filename:  filename,
		SizeBytes: info.Size(),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	_, err = s.db.Exec(
		`INSERT INTO log_archives (id, filename, size_bytes, created_at) VALUES (?, ?, ?, ?)`,
		archive.ID, archive.Filename, archive.SizeBytes, archive.CreatedAt,
	)
	if err != nil {
		// An unrecorded archive is invisible; put the log back.
		if _, statErr := os.Stat(logPath); errors.Is(statErr, os.ErrNotExist) {
			os.Rename(dest, logPath)
		} else {
			os.Remove(dest)
		}
		return nil, fmt.Errorf("save archive record: %w", err)
	}

	if err := s.resetLog(logPath); err != nil {
		return archive, fmt.Errorf("reset log: %w", err)
	}
	return archive, nil
}

// List returns all archives, newest first.
func (s *Service) List() ([]Archive, error) {
	rows, err := s.db.Query(
		`SELECT id, filename, size_bytes, created_at FROM log_archives ORDER BY created_at DESC, filename DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	archives := []Archive{}
	for rows.Next() {
		var a Archive
		if err := rows.Scan(&a.ID, &a.Filename, &a.SizeBytes, &a.CreatedAt); err != nil {
			continue
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// FilePath returns the full path to an archived log.
func (s *Service) FilePath(id string) (string, error) {
	var filename string
	err := s.db.QueryRow(`SELECT filename FROM log_archives WHERE id = ?`, id).Scan(&filename)
	if err != nil {
		return "", fmt.Errorf("archive not found: %w", err)
	}
	return filepath.Join(s.dir, filename), nil
}

// Delete removes an archived log and its record.
func (s *Service) Delete(id string) error {
	path, err := s.FilePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}
	_, err = s.db.Exec(`DELETE FROM log_archives WHERE id = ?`, id)
	return err
}

func copyFile(dest, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
