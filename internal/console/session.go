// Package console owns the running game server: it starts and stops the
// process, relays commands to its stdin and copies its output into the
// presence log.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/reedfamily/bdspanel/internal/game"
	"github.com/reedfamily/bdspanel/internal/history"
	"github.com/reedfamily/bdspanel/internal/launcher"
	"github.com/reedfamily/bdspanel/internal/presence"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrLaunch         = errors.New("failed to launch server")
)

// Archiver moves a finished log out of the way.
type Archiver interface {
	Archive(logPath string) (*history.Archive, error)
}

type Options struct {
	Launcher launcher.Launcher
	Adapter  game.GameAdapter
	LogPath  string
	Archiver Archiver
	Tracker  *presence.Tracker
	Hub      *Hub
	Commands CommandLog // optional
}

type Status struct {
	Running   bool   `json:"running"`
	Starting  bool   `json:"starting"`
	Stopping  bool   `json:"stopping"`
	Game      string `json:"game"`
	StartedAt string `json:"started_at,omitempty"`
}

// Session is the single live handle on the server process. The handle only
// moves nil -> live -> nil; the output reader clears it when the process
// exits.
type Session struct {
	opts Options

	mu        sync.Mutex
	proc      launcher.Process
	done      chan struct{}
	starting  bool
	stopping  bool
	startedAt time.Time

	// archived is the done channel of the last run whose log was archived;
	// concurrent Stop and Kill calls archive each run at most once.
	archived chan struct{}

	// writeMu keeps concurrent relays from interleaving on stdin.
	writeMu sync.Mutex
}

func NewSession(opts Options) *Session {
	if opts.Tracker == nil {
		opts.Tracker = presence.NewTracker(opts.Adapter)
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(500)
	}
	return &Session{opts: opts}
}

func (s *Session) Hub() *Hub                  { return s.opts.Hub }
func (s *Session) Tracker() *presence.Tracker { return s.opts.Tracker }
func (s *Session) Adapter() game.GameAdapter  { return s.opts.Adapter }
func (s *Session) LogPath() string            { return s.opts.LogPath }

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:  s.proc != nil,
		Starting: s.starting,
		Stopping: s.stopping,
		Game:     s.opts.Adapter.Game(),
	}
	if s.proc != nil {
		st.StartedAt = s.startedAt.UTC().Format(time.RFC3339)
	}
	return st
}

// Start launches the server and begins copying its output into the log.
// The log is truncated first; a leftover log from a run that was never
// archived is archived before that.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.proc != nil || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.starting = true
	s.mu.Unlock()

	proc, logFile, err := s.launch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return err
	}
	s.proc = proc
	s.done = make(chan struct{})
	s.startedAt = time.Now()
	s.opts.Tracker.Reset()
	go s.readOutput(proc, logFile, s.done)

	log.Printf("console: %s server started", s.opts.Adapter.Game())
	return nil
}

func (s *Session) launch(ctx context.Context) (launcher.Process, *os.File, error) {
	if info, err := os.Stat(s.opts.LogPath); err == nil && info.Size() > 0 {
		if _, err := s.opts.Archiver.Archive(s.opts.LogPath); err != nil {
			log.Printf("console: archive leftover log: %v", err)
		}
	}

	proc, err := s.opts.Launcher.Launch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	logFile, err := os.Create(s.opts.LogPath)
	if err != nil {
		proc.Kill()
		go io.Copy(io.Discard, proc.Output())
		proc.Wait()
		return nil, nil, fmt.Errorf("open server log: %w", err)
	}
	return proc, logFile, nil
}

func (s *Session) readOutput(proc launcher.Process, logFile *os.File, done chan struct{}) {
	defer close(done)

	r := bufio.NewReaderSize(proc.Output(), 64*1024)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			text := strings.TrimRight(line, "\r\n")
			// One unbuffered write per line so readers of the log see
			// complete records as soon as the server prints them.
			if _, werr := logFile.WriteString(text + "\n"); werr != nil {
				log.Printf("console: write server log: %v", werr)
			}
			s.opts.Tracker.Observe(text)
			s.opts.Hub.Broadcast(text)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("console: read server output: %v", err)
				io.Copy(io.Discard, r)
			}
			break
		}
	}
	if err := logFile.Close(); err != nil {
		log.Printf("console: close server log: %v", err)
	}

	waitErr := proc.Wait()
	if waitErr != nil {
		log.Printf("console: server exited: %v", waitErr)
	} else {
		log.Printf("console: server exited")
	}

	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
		s.stopping = false
	}
	s.mu.Unlock()
}

// Relay sends a command typed at the console.
func (s *Session) Relay(command string) error {
	return s.RelayFrom("console", command)
}

// RelayFrom writes command plus a newline to the server's stdin. Blank
// commands are ignored. With no live server the command is dropped and nil is
// returned; only a failed write is an error.
func (s *Session) RelayFrom(source, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if proc == nil {
		log.Printf("console: dropped %q from %s: server not running", command, source)
		s.record(source, command, false)
		return nil
	}

	s.writeMu.Lock()
	_, err := io.WriteString(proc, command+"\n")
	s.writeMu.Unlock()

	s.record(source, command, err == nil)
	if err != nil {
		return fmt.Errorf("relay %q: %w", command, err)
	}
	return nil
}

func (s *Session) record(source, command string, relayed bool) {
	if s.opts.Commands != nil {
		s.opts.Commands.Record(source, command, relayed)
	}
}

// Stop asks the server to shut down with the game's stop command, waits for
// it to exit and archives the log. Without a live server it does nothing.
// The wait has no deadline of its own; cancelling ctx abandons it and leaves
// the server running. An archive failure is returned after the handle has
// been cleared. Concurrent callers wait on the same run; only one archives.
func (s *Session) Stop(ctx context.Context) (*history.Archive, error) {
	s.mu.Lock()
	proc, done := s.proc, s.done
	if proc == nil {
		s.mu.Unlock()
		return nil, nil
	}
	first := !s.stopping
	s.stopping = true
	s.mu.Unlock()

	if first {
		s.writeMu.Lock()
		_, err := io.WriteString(proc, s.opts.Adapter.StopCommand()+"\n")
		s.writeMu.Unlock()
		s.record("panel", s.opts.Adapter.StopCommand(), err == nil)
		if err != nil {
			log.Printf("console: send stop command: %v; killing server", err)
			if err := proc.Kill(); err != nil {
				log.Printf("console: kill server: %v", err)
			}
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.archiveRun(done)
}

// Restart stops the server if it is running and starts it again.
func (s *Session) Restart(ctx context.Context) error {
	if _, err := s.Stop(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Printf("console: restart: %v", err)
	}
	return s.Start(ctx)
}

// Kill terminates the server without the stop command and archives the log
// once the process is gone. When a Stop is waiting on the same run only one
// of them archives; the other returns a nil archive.
func (s *Session) Kill(ctx context.Context) (*history.Archive, error) {
	s.mu.Lock()
	proc, done := s.proc, s.done
	if proc == nil {
		s.mu.Unlock()
		return nil, nil
	}
	s.stopping = true
	s.mu.Unlock()

	if err := proc.Kill(); err != nil {
		return nil, fmt.Errorf("kill server: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.archiveRun(done)
}

func (s *Session) archiveRun(done chan struct{}) (*history.Archive, error) {
	s.mu.Lock()
	if s.archived == done {
		s.mu.Unlock()
		return nil, nil
	}
	s.archived = done
	s.mu.Unlock()

	archive, err := s.opts.Archiver.Archive(s.opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("archive log: %w", err)
	}
	return archive, nil
}
