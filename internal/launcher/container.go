package launcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/google/uuid"
	"github.com/reedfamily/bdspanel/internal/docker"
)

// Container runs the server in a Docker container and attaches to its
// console. The container is removed after it exits.
type Container struct {
	Client  *docker.Client
	Image   string
	Ports   []string
	DataDir string // bind-mounted at /data
	Memory  string
	Env     map[string]string
}

type containerProcess struct {
	client *docker.Client
	id     string
	attach types.HijackedResponse
	output *io.PipeReader
	exited chan struct{}
	err    error
}

func (c *Container) Launch(ctx context.Context) (Process, error) {
	if err := c.Client.PullImage(ctx, c.Image); err != nil {
		log.Printf("launcher: pull %s failed (may already exist locally): %v", c.Image, err)
	}

	env := map[string]string{"EULA": "TRUE"}
	for k, v := range c.Env {
		env[k] = v
	}
	volumes := map[string]string{}
	if c.DataDir != "" {
		volumes[c.DataDir] = "/data"
	}

	id, err := c.Client.CreateContainer(ctx, docker.ContainerConfig{
		Name:        "bdspanel-" + uuid.New().String()[:8],
		Image:       c.Image,
		Env:         env,
		Ports:       docker.ParsePortMappings(c.Ports),
		Volumes:     volumes,
		MemoryLimit: docker.ParseMemory(c.Memory),
	})
	if err != nil {
		return nil, err
	}

	fail := func(err error) (Process, error) {
		c.Client.RemoveContainer(context.Background(), id)
		return nil, err
	}

	attach, err := c.Client.Attach(ctx, id)
	if err != nil {
		return fail(fmt.Errorf("attach container: %w", err))
	}
	// The wait outlives ctx, which usually belongs to the starting request.
	exitCh := c.Client.WaitExit(context.Background(), id)
	if err := c.Client.StartContainer(ctx, id); err != nil {
		attach.Close()
		return fail(fmt.Errorf("start container: %w", err))
	}

	pr, pw := io.Pipe()
	p := &containerProcess{client: c.Client, id: id, attach: attach, output: pr, exited: make(chan struct{})}

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		if err := docker.Demux(pw, attach.Reader); err != nil && err != io.EOF {
			log.Printf("launcher: container %s output: %v", id[:12], err)
		}
	}()
	go func() {
		p.err = <-exitCh
		// Give the attach stream a moment to deliver the last lines.
		select {
		case <-copied:
		case <-time.After(5 * time.Second):
		}
		attach.Close()
		pw.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Client.RemoveContainer(ctx, id); err != nil {
			log.Printf("launcher: remove container %s: %v", id[:12], err)
		}
		close(p.exited)
	}()
	return p, nil
}

func (p *containerProcess) Write(b []byte) (int, error) { return p.attach.Conn.Write(b) }

func (p *containerProcess) Output() io.Reader { return p.output }

func (p *containerProcess) Wait() error {
	<-p.exited
	return p.err
}

func (p *containerProcess) Kill() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return p.client.KillContainer(ctx, p.id)
}
