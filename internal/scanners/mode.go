package scanners

type Mode string

const (
	// ModeMock is forced by configuration.
	ModeMock Mode = "mock"
	// ModeUnavailable means the scanner failed its liveness probe.
	ModeUnavailable Mode = "unavailable"
	ModeLive        Mode = "live"
)

// SelectMode picks how a scan runs. probe is only called when mock mode is
// not forced.
func SelectMode(forceMock bool, probe func() error) Mode {
	if forceMock {
		return ModeMock
	}
	if probe == nil || probe() != nil {
		return ModeUnavailable
	}
	return ModeLive
}
