package security

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyTarget   = errors.New("url is required")
	ErrInvalidURL    = errors.New("url is not valid")
	ErrBadScheme     = errors.New("url scheme must be http or https")
	ErrMissingHost   = errors.New("url has no host")
	ErrUserinfoInURL = errors.New("url must not contain credentials")
)

// ValidateTarget checks that raw is an absolute http(s) URL with a host and
// returns it trimmed.
func ValidateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", ErrEmptyTarget
	}

	u, err := url.ParseRequestURI(target)
	if err != nil {
		return "", ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrBadScheme
	}
	if u.Hostname() == "" {
		return "", ErrMissingHost
	}
	if u.User != nil {
		return "", ErrUserinfoInURL
	}
	return target, nil
}

// ValidJobID reports whether id has the canonical form of a job id
// (hyphenated uuid, no urn prefix or braces).
func ValidJobID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
