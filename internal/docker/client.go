package docker

import (
	"github.com/docker/docker/client"
)

// New connects to the daemon described by DOCKER_HOST and friends.
func New() (*client.Client, error) {
	return client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
}
