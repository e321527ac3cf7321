package cluster

import (
	"errors"
	"fmt"
)

// ErrClusteringUnavailable is matched by every clustering failure. It is
// distinct from a successful result with empty clusters.
var ErrClusteringUnavailable = errors.New("clustering unavailable")

// Input errors, wrapped in *Error by Engine.Cluster.
var (
	ErrEmptyInput     = errors.New("empty point set")
	ErrInvalidK       = errors.New("cluster count must be at least 1")
	ErrTooFewPoints   = errors.New("fewer points than clusters")
	ErrMalformedPoint = errors.New("point has a non-finite coordinate")
)

// Error reports a failed clustering call with the label and cluster count
// involved.
type Error struct {
	Label string
	K     int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cluster %s (k=%d): %v: %v", e.Label, e.K, ErrClusteringUnavailable, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrClusteringUnavailable, e.Err}
}
