package coordinator

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a cancellation request was observed at a
// checkpoint. The caller owns the status transition; no partial results
// are reported past this error.
var ErrCancelled = errors.New("generation cancelled")

// QuorumNotMetError reports a multi-path run where too few resource kinds
// succeeded. It carries the per-item detail so the job result can still
// show which kinds failed and why.
type QuorumNotMetError struct {
	Succeeded int
	Required  int
}

func (e *QuorumNotMetError) Error() string {
	return fmt.Sprintf("quorum not met: %d of %d required resource kinds succeeded",
		e.Succeeded, e.Required)
}
