// Package launcher starts the game server process and exposes its console
// streams, either as a local executable or inside a Docker container.
package launcher

import (
	"context"
	"io"
)

// Process is a running server. Writes go to its stdin.
type Process interface {
	io.Writer

	// Output is the combined stdout and stderr. It reaches EOF once the
	// process has exited and all output has been read.
	Output() io.Reader

	// Wait blocks until the process exits.
	Wait() error

	// Kill terminates the process without a graceful stop.
	Kill() error
}

type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}
