// Package docker wraps the Docker Engine API calls needed to run the game
// server inside a container with its console attached.
package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

type Client struct {
	cli *client.Client
}

type ContainerConfig struct {
	Name        string
	Image       string
	Env         map[string]string
	Ports       []PortMapping
	Volumes     map[string]string
	MemoryLimit int64
}

type PortMapping struct {
	Host      string `json:"host"`
	Container string `json:"container"`
	Protocol  string `json:"protocol"`
}

func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) PullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// CreateContainer creates a console container: stdin stays open and no TTY
// is allocated, so the attach stream is multiplexed (see Demux).
func (c *Client) CreateContainer(ctx context.Context, cfg ContainerConfig) (string, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}
	for _, p := range cfg.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		containerPort := nat.Port(p.Container + "/" + proto)
		exposedPorts[containerPort] = struct{}{}
		portBindings[containerPort] = []nat.PortBinding{{HostPort: p.Host}}
	}

	mounts := make([]mount.Mount, 0, len(cfg.Volumes))
	for hostPath, containerPath := range cfg.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: hostPath,
			Target: containerPath,
		})
	}

	hostCfg := &container.HostConfig{
		PortBindings: portBindings,
		Mounts:       mounts,
	}
	if cfg.MemoryLimit > 0 {
		hostCfg.Memory = cfg.MemoryLimit
	}

	resp, err := c.cli.ContainerCreate(ctx, &container.Config{
		Image:        cfg.Image,
		Env:          env,
		ExposedPorts: exposedPorts,
		OpenStdin:    true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	}, hostCfg, nil, nil, cfg.Name)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (c *Client) KillContainer(ctx context.Context, id string) error {
	return c.cli.ContainerKill(ctx, id, "KILL")
}

func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	return c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// Attach connects to the container's main process stdin/stdout/stderr.
func (c *Client) Attach(ctx context.Context, id string) (types.HijackedResponse, error) {
	return c.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
}

// WaitExit returns a channel that yields the container's exit code (or the
// wait error) once it stops. Call before StartContainer so a fast exit is not
// missed.
func (c *Client) WaitExit(ctx context.Context, id string) <-chan error {
	out := make(chan error, 1)
	statusCh, errCh := c.cli.ContainerWait(ctx, id, container.WaitConditionNextExit)
	go func() {
		select {
		case st := <-statusCh:
			switch {
			case st.Error != nil:
				out <- fmt.Errorf("container wait: %s", st.Error.Message)
			case st.StatusCode != 0:
				out <- fmt.Errorf("container exited with status %d", st.StatusCode)
			default:
				out <- nil
			}
		case err := <-errCh:
			out <- fmt.Errorf("container wait: %w", err)
		}
	}()
	return out
}

// Demux copies a multiplexed attach stream into w, merging stdout and stderr.
func Demux(w io.Writer, r io.Reader) error {
	_, err := stdcopy.StdCopy(w, w, r)
	return err
}

// ParsePortMappings parses port strings like "19132:19132/udp"
func ParsePortMappings(ports []string) []PortMapping {
	var result []PortMapping
	for _, p := range ports {
		proto := "tcp"
		if idx := strings.Index(p, "/"); idx != -1 {
			proto = p[idx+1:]
			p = p[:idx]
		}
		parts := strings.SplitN(strings.TrimSpace(p), ":", 2)
		if len(parts) == 2 {
			result = append(result, PortMapping{Host: parts[0], Container: parts[1], Protocol: proto})
		}
	}
	return result
}

// ParseMemory parses a memory string like "2G" or "512M" to bytes
func ParseMemory(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" {
		return 0
	}
	multiplier := int64(1)
	if strings.HasSuffix(s, "G") {
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "M") {
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	}
	val, _ := strconv.ParseInt(s, 10, 64)
	return val * multiplier
}
