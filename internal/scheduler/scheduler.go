package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reedfamily/bdspanel/internal/history"
)

const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionRestart = "restart"
	ActionArchive = "archive"
	ActionCommand = "command"
)

var (
	ErrNotFound = errors.New("schedule not found")
	ErrInvalid  = errors.New("invalid schedule")
)

type Schedule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CronExpr  string `json:"cron_expr"`
	Action    string `json:"action"`
	Command   string `json:"command,omitempty"`
	Enabled   bool   `json:"enabled"`
	LastRun   string `json:"last_run"`
	NextRun   string `json:"next_run,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Controller is the part of the console session the scheduler drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*history.Archive, error)
	Restart(ctx context.Context) error
	RelayFrom(source, command string) error
	Running() bool
	LogPath() string
}

type Archiver interface {
	Archive(logPath string) (*history.Archive, error)
}

type Scheduler struct {
	db      *sql.DB
	server  Controller
	archive Archiver
	cancel  context.CancelFunc
	done    chan struct{}
	now     func() time.Time
}

func New(db *sql.DB, server Controller, archiver Archiver) *Scheduler {
	return &Scheduler{db: db, server: server, archive: archiver, now: time.Now}
}

// Validate checks the fields a stored schedule must satisfy.
func Validate(cronExpr, action, command string) error {
	if _, err := ParseCron(cronExpr); err != nil {
		return fmt.Errorf("%w: cron expression: %v", ErrInvalid, err)
	}
	switch action {
	case ActionStart, ActionStop, ActionRestart, ActionArchive:
	case ActionCommand:
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("%w: command action needs a command", ErrInvalid)
		}
		if strings.ContainsAny(command, "\r\n") {
			return fmt.Errorf("%w: command spans lines", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: action must be one of: start, stop, restart, archive, command", ErrInvalid)
	}
	return nil
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			nextMinute := s.now().Truncate(time.Minute).Add(time.Minute)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(nextMinute)):
				s.RunDue(ctx, nextMinute)
			}
		}
	}()

	log.Println("scheduler: started")
}

// Stop halts the loop and waits for an in-flight action to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// RunDue runs every enabled schedule whose expression matches now.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) int {
	schedules, err := s.List()
	if err != nil {
		log.Printf("scheduler: list: %v", err)
		return 0
	}

	ran := 0
	for _, sc := range schedules {
		if !sc.Enabled {
			continue
		}
		cron, err := ParseCron(sc.CronExpr)
		if err != nil {
			log.Printf("scheduler: invalid cron %q for schedule %s: %v", sc.CronExpr, sc.ID, err)
			continue
		}
		if !cron.Matches(now) {
			continue
		}

		log.Printf("scheduler: running %s (schedule %s %q)", sc.Action, sc.ID, sc.Name)
		if err := s.execute(ctx, sc); err != nil {
			log.Printf("scheduler: %s failed: %v", sc.Action, err)
		}
		ran++
		if _, err := s.db.Exec("UPDATE schedules SET last_run = ? WHERE id = ?", now.UTC().Format(sqliteTime), sc.ID); err != nil {
			log.Printf("scheduler: update last_run: %v", err)
		}
	}
	return ran
}

func (s *Scheduler) execute(ctx context.Context, sc Schedule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	switch sc.Action {
	case ActionStart:
		return s.server.Start(ctx)
	case ActionStop:
		_, err := s.server.Stop(ctx)
		return err
	case ActionRestart:
		return s.server.Restart(ctx)
	case ActionArchive:
		// The live log belongs to the running server; archiving it now would
		// split one run across two files.
		if s.server.Running() {
			return errors.New("server is running; stop it before archiving")
		}
		_, err := s.archive.Archive(s.server.LogPath())
		return err
	case ActionCommand:
		return s.server.RelayFrom("schedule", sc.Command)
	}
	return fmt.Errorf("unknown action %q", sc.Action)
}

const sqliteTime = "2006-01-02 15:04:05"

const selectSchedule = `SELECT id, name, cron_expr, action, command, enabled, COALESCE(last_run, ''), created_at FROM schedules`

func scanSchedule(row interface{ Scan(...any) error }) (Schedule, error) {
	var sc Schedule
	var enabled int
	if err := row.Scan(&sc.ID, &sc.Name, &sc.CronExpr, &sc.Action, &sc.Command, &enabled, &sc.LastRun, &sc.CreatedAt); err != nil {
		return sc, err
	}
	sc.Enabled = enabled == 1
	if cron, err := ParseCron(sc.CronExpr); err == nil && sc.Enabled {
		if next := cron.Next(time.Now()); !next.IsZero() {
			sc.NextRun = next.Format(time.RFC3339)
		}
	}
	return sc, nil
}

func (s *Scheduler) List() ([]Schedule, error) {
	rows, err := s.db.Query(selectSchedule + ` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []Schedule{}
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			continue
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func (s *Scheduler) Get(id string) (Schedule, error) {
	sc, err := scanSchedule(s.db.QueryRow(selectSchedule+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return sc, ErrNotFound
	}
	return sc, err
}

func (s *Scheduler) Create(name, cronExpr, action, command string) (Schedule, error) {
	if strings.TrimSpace(name) == "" {
		return Schedule{}, fmt.Errorf("%w: name required", ErrInvalid)
	}
	if err := Validate(cronExpr, action, command); err != nil {
		return Schedule{}, err
	}
	if action != ActionCommand {
		command = ""
	}

	id := uuid.New().String()[:8]
	_, err := s.db.Exec(
		`INSERT INTO schedules (id, name, cron_expr, action, command) VALUES (?, ?, ?, ?, ?)`,
		id, name, cronExpr, action, strings.TrimSpace(command),
	)
	if err != nil {
		return Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	return s.Get(id)
}

// Update holds the optional fields of a schedule edit.
type Update struct {
	Name     *string `json:"name"`
	CronExpr *string `json:"cron_expr"`
	Action   *string `json:"action"`
	Command  *string `json:"command"`
	Enabled  *bool   `json:"enabled"`
}

func (s *Scheduler) Update(id string, u Update) (Schedule, error) {
	sc, err := s.Get(id)
	if err != nil {
		return sc, err
	}
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return sc, fmt.Errorf("%w: name required", ErrInvalid)
		}
		sc.Name = *u.Name
	}
	if u.CronExpr != nil {
		sc.CronExpr = *u.CronExpr
	}
	if u.Action != nil {
		sc.Action = *u.Action
	}
	if u.Command != nil {
		sc.Command = strings.TrimSpace(*u.Command)
	}
	if u.Enabled != nil {
		sc.Enabled = *u.Enabled
	}
	if err := Validate(sc.CronExpr, sc.Action, sc.Command); err != nil {
		return sc, err
	}
	if sc.Action != ActionCommand {
		sc.Command = ""
	}

	enabled := 0
	if sc.Enabled {
		enabled = 1
	}
	_, err = s.db.Exec(
		`UPDATE schedules SET name = ?, cron_expr = ?, action = ?, command = ?, enabled = ? WHERE id = ?`,
		sc.Name, sc.CronExpr, sc.Action, sc.Command, enabled, id,
	)
	if err != nil {
		return sc, fmt.Errorf("update schedule: %w", err)
	}
	return s.Get(id)
}

func (s *Scheduler) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
