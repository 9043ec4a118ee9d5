package console

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/reedfamily/bdspanel/internal/db"
	"github.com/reedfamily/bdspanel/internal/game"
	_ "github.com/reedfamily/bdspanel/internal/game/bedrock"
	"github.com/reedfamily/bdspanel/internal/history"
	"github.com/reedfamily/bdspanel/internal/launcher"
	"github.com/reedfamily/bdspanel/internal/queue"
)

// fakeServer behaves like a console server: it exits when it reads "stop".
type fakeServer struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu     sync.Mutex
	stdin  strings.Builder
	closed bool
	exited chan struct{}

	// ignoreStop keeps the server running after "stop"; only Kill ends it.
	ignoreStop bool
}

func newFakeServer() *fakeServer {
	r, w := io.Pipe()
	return &fakeServer{outR: r, outW: w, exited: make(chan struct{})}
}

func (f *fakeServer) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	f.stdin.Write(b)
	for _, line := range strings.Split(string(b), "\n") {
		if line == "stop" && !f.ignoreStop {
			f.exitLocked()
		}
	}
	return len(b), nil
}

func (f *fakeServer) exitLocked() {
	if f.closed {
		return
	}
	f.closed = true
	go func() {
		f.outW.Write([]byte("Quit correctly\n"))
		f.outW.Close()
		close(f.exited)
	}()
}

func (f *fakeServer) emit(line string) { f.outW.Write([]byte(line + "\n")) }

func (f *fakeServer) input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stdin.String()
}

func (f *fakeServer) Output() io.Reader { return f.outR }
func (f *fakeServer) Wait() error       { <-f.exited; return nil }
func (f *fakeServer) Kill() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitLocked()
	return nil
}

type fakeLauncher struct {
	server *fakeServer
	err    error
}

func (l *fakeLauncher) Launch(ctx context.Context) (launcher.Process, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.server, nil
}

type memoryCommandLog struct {
	mu      sync.Mutex
	entries []string
}

func (m *memoryCommandLog) Record(source, command string, relayed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := "dropped"
	if relayed {
		state = "relayed"
	}
	m.entries = append(m.entries, source+":"+command+":"+state)
}

func (m *memoryCommandLog) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

type fixture struct {
	dir      string
	logPath  string
	history  *history.Service
	commands *memoryCommandLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "panel.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		dir:      dir,
		logPath:  filepath.Join(dir, "server_log.txt"),
		history:  history.NewService(database, filepath.Join(dir, "old_logs")),
		commands: &memoryCommandLog{},
	}
}

func (f *fixture) session(t *testing.T, l launcher.Launcher) *Session {
	t.Helper()
	adapter, err := game.Lookup("bedrock")
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(Options{
		Launcher: l,
		Adapter:  adapter,
		LogPath:  f.logPath,
		Archiver: f.history,
		Commands: f.commands,
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fileContains(path, want string) func() bool {
	return func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), want)
	}
}

func TestRelayWithoutServerIsNoop(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, &fakeLauncher{server: newFakeServer()})

	if err := s.Relay("op Alice"); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if err := s.Relay("   "); err != nil {
		t.Fatalf("Relay blank: %v", err)
	}
	if s.Running() {
		t.Error("Running = true without Start")
	}
	if diff := cmp.Diff([]string{"console:op Alice:dropped"}, f.commands.all()); diff != "" {
		t.Errorf("command log mismatch (-want +got):\n%s", diff)
	}
}

func TestStopWithoutServerIsNoop(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, &fakeLauncher{server: newFakeServer()})
	a, err := s.Stop(context.Background())
	if err != nil || a != nil {
		t.Fatalf("Stop = %v, %v; want nil, nil", a, err)
	}
}

func TestStartRelayStopArchives(t *testing.T) {
	f := newFixture(t)
	server := newFakeServer()
	s := f.session(t, &fakeLauncher{server: server})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("Running = false after Start")
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	server.emit("Player connected: Alice, xuid: 1")
	server.emit("Player connected: Bob, xuid: 2")
	server.emit("Player disconnected: Bob, xuid: 2")
	eventually(t, "log to contain Bob's disconnect", fileContains(f.logPath, "Player disconnected: Bob"))

	if diff := cmp.Diff([]string{"Alice"}, s.Tracker().Snapshot().Sorted()); diff != "" {
		t.Errorf("tracker mismatch (-want +got):\n%s", diff)
	}
	if backlog := s.Hub().Backlog(); len(backlog) != 3 {
		t.Errorf("hub backlog = %v, want 3 lines", backlog)
	}

	if err := s.Relay("  list  "); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if got := server.input(); got != "list\n" {
		t.Errorf("stdin = %q, want %q", got, "list\n")
	}

	archive, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if archive == nil {
		t.Fatal("Stop returned no archive")
	}
	if s.Running() {
		t.Error("Running = true after Stop")
	}
	if got := server.input(); got != "list\nstop\n" {
		t.Errorf("stdin = %q, want list then stop", got)
	}

	archived, err := os.ReadFile(filepath.Join(f.history.Dir(), archive.Filename))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	for _, want := range []string{"Player connected: Alice", "Quit correctly"} {
		if !strings.Contains(string(archived), want) {
			t.Errorf("archive missing %q:\n%s", want, archived)
		}
	}
	live, err := os.ReadFile(f.logPath)
	if err != nil {
		t.Fatalf("live log: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("live log not reset: %q", live)
	}

	// Stopping again is a no-op.
	if a, err := s.Stop(context.Background()); a != nil || err != nil {
		t.Errorf("second Stop = %v, %v; want nil, nil", a, err)
	}
}

func TestStartLaunchFailure(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, &fakeLauncher{err: errors.New("server executable not found")})

	err := s.Start(context.Background())
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("Start err = %v, want ErrLaunch", err)
	}
	if s.Running() {
		t.Error("Running = true after failed launch")
	}
	if _, err := os.Stat(f.logPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed launch touched the log: %v", err)
	}
}

func TestStartArchivesLeftoverLog(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.logPath, []byte("Player connected: Alice, xuid: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	server := newFakeServer()
	s := f.session(t, &fakeLauncher{server: server})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Kill(context.Background())

	list, err := f.history.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("archives = %d, want 1", len(list))
	}
	if len(s.Tracker().Snapshot()) != 0 {
		t.Error("tracker carried players over from the previous run")
	}
}

type failingArchiver struct{ err error }

func (a failingArchiver) Archive(string) (*history.Archive, error) { return nil, a.err }

func TestStopArchiveFailureClearsHandle(t *testing.T) {
	f := newFixture(t)
	adapter, err := game.Lookup("bedrock")
	if err != nil {
		t.Fatal(err)
	}
	diskFull := errors.New("disk full")
	s := NewSession(Options{
		Launcher: &fakeLauncher{server: newFakeServer()},
		Adapter:  adapter,
		LogPath:  f.logPath,
		Archiver: failingArchiver{err: diskFull},
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	archive, err := s.Stop(context.Background())
	if !errors.Is(err, diskFull) {
		t.Fatalf("Stop err = %v, want disk full", err)
	}
	if archive != nil {
		t.Errorf("Stop archive = %+v, want nil", archive)
	}
	if s.Running() {
		t.Error("Running = true after Stop with a failed archive")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Start after failed archive: %v", err)
	}
}

func TestKillSkipsStopCommand(t *testing.T) {
	f := newFixture(t)
	server := newFakeServer()
	s := f.session(t, &fakeLauncher{server: server})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	archive, err := s.Kill(context.Background())
	if err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if archive == nil {
		t.Fatal("Kill returned no archive")
	}
	if s.Running() {
		t.Error("Running = true after Kill")
	}
	if got := server.input(); got != "" {
		t.Errorf("stdin = %q, want nothing", got)
	}
	if a, err := s.Kill(context.Background()); a != nil || err != nil {
		t.Errorf("second Kill = %v, %v; want nil, nil", a, err)
	}
}

func TestKillDuringStopArchivesOnce(t *testing.T) {
	f := newFixture(t)
	server := newFakeServer()
	server.ignoreStop = true
	s := f.session(t, &fakeLauncher{server: server})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	server.emit("Player connected: Alice, xuid: 1")
	eventually(t, "connect to reach the log", fileContains(f.logPath, "Alice"))

	type result struct {
		archive *history.Archive
		err     error
	}
	stopped := make(chan result, 1)
	go func() {
		a, err := s.Stop(context.Background())
		stopped <- result{a, err}
	}()
	eventually(t, "stop command", func() bool { return server.input() == "stop\n" })

	killed, err := s.Kill(context.Background())
	if err != nil {
		t.Fatalf("Kill: %v", err)
	}
	stop := <-stopped
	if stop.err != nil {
		t.Fatalf("Stop: %v", stop.err)
	}

	if (killed == nil) == (stop.archive == nil) {
		t.Fatalf("archives from kill=%v stop=%v, want exactly one", killed, stop.archive)
	}
	list, err := f.history.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("archives = %d, want 1", len(list))
	}
	data, err := os.ReadFile(filepath.Join(f.history.Dir(), list[0].Filename))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Player connected: Alice") {
		t.Errorf("archive lost the run's log:\n%s", data)
	}
}

func TestStopCancelledWait(t *testing.T) {
	f := newFixture(t)
	server := newFakeServer()
	// Never exits on "stop".
	s := f.session(t, &fakeLauncher{server: server})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	server.mu.Lock()
	server.closed = true
	server.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop err = %v, want deadline exceeded", err)
	}
	if !s.Running() {
		t.Error("abandoned Stop cleared the handle")
	}

	// Let the server go.
	server.outW.Close()
	close(server.exited)
	eventually(t, "server to exit", func() bool { return !s.Running() })
}

func TestQueueDrainRelaysToServer(t *testing.T) {
	f := newFixture(t)
	server := newFakeServer()
	s := f.session(t, &fakeLauncher{server: server})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	q := queue.Open(filepath.Join(f.dir, "server_commands.txt"))
	if err := q.Enqueue("op Alice", "gamemode 1 Alice"); err != nil {
		t.Fatal(err)
	}
	p := queue.NewPoller(q, s, time.Hour)
	if _, err := p.DrainOnce(); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}

	if got := server.input(); got != "op Alice\ngamemode 1 Alice\n" {
		t.Errorf("stdin = %q", got)
	}
	data, err := os.ReadFile(q.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("queue not empty after drain: %q", data)
	}
	want := []string{"queue:op Alice:relayed", "queue:gamemode 1 Alice:relayed"}
	if diff := cmp.Diff(want, f.commands.all()); diff != "" {
		t.Errorf("command log mismatch (-want +got):\n%s", diff)
	}
}

func TestExecServerEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	f := newFixture(t)
	script := filepath.Join(f.dir, "bedrock_server")
	body := `#!/bin/sh
echo "[INFO] Server started."
while read line; do
  case "$line" in
    stop) echo "[INFO] Quit correctly"; exit 0 ;;
    join*) echo "[INFO] Player connected: ${line#join }, xuid: 42" ;;
    *) echo "[INFO] ran: $line" ;;
  esac
done
`
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	s := f.session(t, &launcher.Exec{Path: script, Dir: f.dir})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Relay("join Steve"); err != nil {
		t.Fatal(err)
	}
	eventually(t, "Steve to connect", func() bool { return s.Tracker().Snapshot().Has("Steve") })

	archive, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	archived, err := os.ReadFile(filepath.Join(f.history.Dir(), archive.Filename))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(archived), "Player connected: Steve, xuid: 42") {
		t.Errorf("archive missing connect record:\n%s", archived)
	}
}
