package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Exec launches a local executable.
type Exec struct {
	Path string
	Args []string
	Dir  string
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *io.PipeReader

	mu     sync.Mutex
	exited chan struct{}
	err    error
}

func (e *Exec) Launch(ctx context.Context) (Process, error) {
	info, err := os.Stat(e.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("server executable not found: %s", e.Path)
		}
		return nil, fmt.Errorf("stat server executable: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("server executable is a directory: %s", e.Path)
	}

	// The process outlives the request that started it, so ctx is not
	// passed to exec.CommandContext.
	cmd := exec.Command(e.Path, e.Args...)
	cmd.Dir = e.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		stdin.Close()
		pw.Close()
		return nil, err
	}

	p := &execProcess{cmd: cmd, stdin: stdin, output: pr, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		pw.Close()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.exited)
	}()
	return p, nil
}

func (p *execProcess) Write(b []byte) (int, error) { return p.stdin.Write(b) }

func (p *execProcess) Output() io.Reader { return p.output }

func (p *execProcess) Wait() error {
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *execProcess) Kill() error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	return p.cmd.Process.Kill()
}
