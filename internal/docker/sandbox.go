package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// containerAPI is the part of the docker client the runner needs.
type containerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Runner executes the scanner image in a throwaway sandboxed container.
type Runner struct {
	cli   containerAPI
	image string
}

func NewRunner(cli containerAPI, image string) *Runner {
	return &Runner{cli: cli, image: image}
}

func (r *Runner) Name() string { return "docker" }

// Probe checks that the daemon answers and the image is present locally.
func (r *Runner) Probe(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if _, _, err := r.cli.ImageInspectWithRaw(ctx, r.image); err != nil {
		return fmt.Errorf("inspect %s: %w", r.image, err)
	}
	return nil
}

func (r *Runner) Run(ctx context.Context, args []string) ([]byte, error) {
	limits := SandboxLimits()
	resp, err := r.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image: r.image,
			Cmd:   args,
			User:  sandboxUser,
			Env:   []string{"HOME=/tmp"},
		},
		&limits,
		nil,
		nil,
		"",
	)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}
	defer r.remove(resp.ID)

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	exitCode, err := r.wait(ctx, resp.ID)
	if err != nil {
		return nil, err
	}

	logs, err := r.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("read container logs: %w", err)
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("container exited with status %d: %s", exitCode, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (r *Runner) wait(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("wait container: %w", err)
	case st := <-statusCh:
		if st.Error != nil && st.Error.Message != "" {
			return 0, errors.New("wait container: " + st.Error.Message)
		}
		return st.StatusCode, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// remove uses its own context so cleanup still happens after a timeout.
func (r *Runner) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
