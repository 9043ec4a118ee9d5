package docker

import (
	"bytes"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/go-cmp/cmp"
)

func TestParsePortMappings(t *testing.T) {
	got := ParsePortMappings([]string{"19132:19132/udp", "8080:80", "bogus"})
	want := []PortMapping{
		{Host: "19132", Container: "19132", Protocol: "udp"},
		{Host: "8080", Container: "80", Protocol: "tcp"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParsePortMappings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMemory(t *testing.T) {
	tests := map[string]int64{
		"":     0,
		"0":    0,
		"512M": 512 << 20,
		"2g":   2 << 30,
		"1024": 1024,
	}
	for in, want := range tests {
		if got := ParseMemory(in); got != want {
			t.Errorf("ParseMemory(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestDemuxMergesStreams(t *testing.T) {
	var stream bytes.Buffer
	stdout := stdcopy.NewStdWriter(&stream, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&stream, stdcopy.Stderr)
	stdout.Write([]byte("Server started.\n"))
	stderr.Write([]byte("warning\n"))
	stdout.Write([]byte("Player connected: Alice, xuid: 1\n"))

	var out bytes.Buffer
	if err := Demux(&out, &stream); err != nil {
		t.Fatalf("Demux: %v", err)
	}
	want := "Server started.\nwarning\nPlayer connected: Alice, xuid: 1\n"
	if out.String() != want {
		t.Errorf("Demux = %q, want %q", out.String(), want)
	}
}
