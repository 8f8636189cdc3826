package docker

import "github.com/docker/docker/api/types/container"

const sandboxUser = "1000:1000"

// SandboxLimits confines the scanner container. The network stays on the
// bridge because the scanner has to reach the target.
func SandboxLimits() container.HostConfig {
	return container.HostConfig{
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=256m",
		},
		Resources: container.Resources{
			Memory:    512 * 1024 * 1024,
			NanoCPUs:  1_000_000_000,
			PidsLimit: func() *int64 { v := int64(64); return &v }(),
		},
		NetworkMode: "bridge",
	}
}
