package discovery

import (
	"errors"
	"fmt"
)

// ErrNoVideosFound is matched by errors.Is for a NoVideosFoundError.
var ErrNoVideosFound = errors.New("no video files found")

// DiscoveryError reports a scan root that is missing or unreadable.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error: %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NoVideosFoundError is returned when a scan resolves zero episodes.
type NoVideosFoundError struct {
	Root string
}

func (e *NoVideosFoundError) Error() string {
	return fmt.Sprintf("no video files found in %q", e.Root)
}

func (e *NoVideosFoundError) Unwrap() error {
	return ErrNoVideosFound
}
