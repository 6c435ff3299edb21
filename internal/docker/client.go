package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"db-auto-backup/internal/logger"
	"db-auto-backup/internal/model"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

// stderrTailLimit bounds how much captured stderr is attached to an exec
// failure.
const stderrTailLimit = 4096

// Client wraps the Docker Engine API for container discovery and in-place
// command execution.
type Client struct {
	api *client.Client
}

// NewClient connects to the Docker daemon using the standard environment
// (DOCKER_HOST and friends) and verifies the connection with a ping.
func NewClient(ctx context.Context) (*Client, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if _, err := api.Ping(ctx); err != nil {
		api.Close()
		return nil, fmt.Errorf("failed to reach docker daemon: %w", err)
	}
	return &Client{api: api}, nil
}

// ListRunning returns every running container together with the
// environment and image references needed for provider matching.
func (c *Client) ListRunning(ctx context.Context) ([]model.Container, error) {
	list, err := c.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]model.Container, 0, len(list))
	for _, item := range list {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A container can exit between the list and the inspect; skip it
		// rather than failing the whole discovery.
		inspect, err := c.api.ContainerInspect(ctx, item.ID)
		if err != nil {
			logger.Log.Error("Failed to inspect container",
				zap.String("containerID", item.ID),
				zap.Error(err),
			)
			continue
		}

		mc := model.Container{
			ID:   item.ID,
			Name: strings.TrimPrefix(inspect.Name, "/"),
		}
		if inspect.Config != nil {
			mc.Env = inspect.Config.Env
			mc.Image = inspect.Config.Image
		}
		if mc.Image == "" {
			mc.Image = item.Image
		}
		tags, err := c.imageRepoTags(ctx, item.ImageID)
		if err != nil {
			logger.Log.Debug("Unable to read image tags",
				zap.String("containerName", mc.Name),
				zap.Error(err),
			)
		} else {
			mc.RepoTags = tags
		}
		containers = append(containers, mc)
	}
	return containers, nil
}

func (c *Client) imageRepoTags(ctx context.Context, imageID string) ([]string, error) {
	if imageID == "" {
		return nil, nil
	}
	inspect, _, err := c.api.ImageInspectWithRaw(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return inspect.RepoTags, nil
}

// Exec runs cmd inside the container and copies its stdout to the writer.
// A non-zero exit code is returned as an error carrying a stderr tail.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string, stdout io.Writer) error {
	created, err := c.api.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := c.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attach.Close()

	// The hijacked stream does not honor ctx on its own; the watchdog
	// severs it on cancellation so the copy below cannot hang.
	copyDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			attach.Close()
		case <-copyDone:
		}
	}()

	var stderr bytes.Buffer
	_, copyErr := stdcopy.StdCopy(stdout, &stderr, attach.Reader)
	close(copyDone)
	if copyErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("exec interrupted: %w", ctxErr)
		}
		return fmt.Errorf("failed to stream exec output: %w", copyErr)
	}

	inspect, err := c.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return fmt.Errorf("failed to inspect exec: %w", err)
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("command exited with code %d: %s", inspect.ExitCode, stderrTail(stderr.Bytes()))
	}
	return nil
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	if s == "" {
		return "no stderr output"
	}
	return s
}

// Ping checks daemon reachability. It backs the readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach docker daemon: %w", err)
	}
	return nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.api.Close()
}
