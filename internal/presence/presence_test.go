package presence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/reedfamily/bdspanel/internal/game"
	_ "github.com/reedfamily/bdspanel/internal/game/bedrock"
)

func bedrock(t *testing.T) game.GameAdapter {
	t.Helper()
	a, err := game.Lookup("bedrock")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func compute(t *testing.T, lines ...string) []string {
	t.Helper()
	set, err := Compute(strings.NewReader(strings.Join(lines, "\n")), bedrock(t))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return set.Sorted()
}

func TestComputeScenario(t *testing.T) {
	got := compute(t,
		"Player connected: Bob, ip=1.2.3.4",
		"Player connected: Alice, ip=5.6.7.8",
		"Player disconnected: Bob",
	)
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeIdempotentConnect(t *testing.T) {
	got := compute(t,
		"Player connected: Alice, xuid: 1",
		"Player connected: Alice, xuid: 1",
	)
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}

	// One disconnect clears the player no matter how many connects preceded it.
	got = compute(t,
		"Player connected: Alice, xuid: 1",
		"Player connected: Alice, xuid: 1",
		"Player disconnected: Alice, xuid: 1",
	)
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestComputeAbsentDisconnectIgnored(t *testing.T) {
	got := compute(t,
		"Player disconnected: Ghost",
		"Player connected: Alice, xuid: 1",
		"Player disconnected: Ghost, xuid: 9",
	)
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeReconnect(t *testing.T) {
	got := compute(t,
		"Player connected: Alice, xuid: 1",
		"Player disconnected: Alice, xuid: 1",
		"Player connected: Alice, xuid: 1",
	)
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeReorderIndependentPlayers(t *testing.T) {
	a := compute(t,
		"Player connected: Alice, xuid: 1",
		"Player connected: Bob, xuid: 2",
		"Player disconnected: Alice, xuid: 1",
		"Player connected: Carol, xuid: 3",
	)
	b := compute(t,
		"Player connected: Bob, xuid: 2",
		"Player connected: Alice, xuid: 1",
		"Player connected: Carol, xuid: 3",
		"Player disconnected: Alice, xuid: 1",
	)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("reordering changed the result (-first +second):\n%s", diff)
	}
}

func TestComputeIgnoresNoiseAndPartialLines(t *testing.T) {
	got := compute(t,
		"NO LOG FILE! - setting up server logging...",
		"[2022-11-16 19:34:13:002 INFO] Server started.",
		"Player connected: Alice, xuid: 1",
		"Player connec",
		"Player connected: Bob",
	)
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeCRLF(t *testing.T) {
	log := "Player connected: Alice, xuid: 1\r\nPlayer connected: Bob, xuid: 2\r\nPlayer disconnected: Bob\r\n"
	set, err := Compute(strings.NewReader(log), bedrock(t))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Alice"}, set.Sorted()); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeSkipsOverlongLine(t *testing.T) {
	long := "Player connected: " + strings.Repeat("x", maxLineSize+10) + ", xuid: 1"
	got := compute(t, long, "Player connected: Alice, xuid: 1")
	if diff := cmp.Diff([]string{"Alice"}, got); diff != "" {
		t.Errorf("presence mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	set, err := Load(filepath.Join(dir, "missing.txt"), bedrock(t))
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("missing log: got %v, want empty", set.Sorted())
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	set, err = Load(empty, bedrock(t))
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("empty log: got %v, want empty", set.Sorted())
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server_log.txt")
	appendLine := func(line string) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatal(err)
		}
	}

	appendLine("Player connected: Alice, xuid: 1")
	set, err := Load(path, bedrock(t))
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("Alice") {
		t.Errorf("after connect: Alice missing from %v", set.Sorted())
	}

	appendLine("Player disconnected: Alice, xuid: 1")
	set, err = Load(path, bedrock(t))
	if err != nil {
		t.Fatal(err)
	}
	if set.Has("Alice") {
		t.Errorf("after disconnect: Alice still present in %v", set.Sorted())
	}
}

func TestTrackerMatchesCompute(t *testing.T) {
	lines := []string{
		"[INFO] Server started.",
		"Player connected: Alice, xuid: 1",
		"Player connected: Bob, xuid: 2",
		"Player disconnected: Ghost",
		"Player connected: Alice, xuid: 1",
		"Player disconnected: Bob, xuid: 2",
		"Player connected: Carol, xuid: 3",
		"Player disconnected: Alice",
	}

	tr := NewTracker(bedrock(t))
	for i, line := range lines {
		tr.Observe(line)
		want := compute(t, lines[:i+1]...)
		if diff := cmp.Diff(want, tr.Snapshot().Sorted()); diff != "" {
			t.Fatalf("after line %d (-fold +tracker):\n%s", i, diff)
		}
	}

	tr.Reset()
	if len(tr.Snapshot()) != 0 {
		t.Error("Reset did not empty the tracker")
	}
}
