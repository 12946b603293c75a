package gatesched

import (
	"errors"
)

// Every failure of a scheduling run wraps exactly one of these kinds, so
// callers can tell with errors.Is what has to change before re-invoking.
var (
	// ErrEmptyTopology is returned when the topology snapshot has no nodes
	ErrEmptyTopology = errors.New("empty network")

	// ErrUnresolvable is returned when a name used by the configuration does not
	// exist in the topology, or an egress interface cannot carry the stream
	ErrUnresolvable = errors.New("unresolvable reference")

	// ErrInconsistent is returned for configurations that contradict themselves,
	// e.g. a period that does not divide the cycle, or a path fragment that cannot be reached
	ErrInconsistent = errors.New("inconsistent configuration")

	// ErrCapacity is returned when a window cannot be placed inside the cycle
	ErrCapacity = errors.New("gate scheduling doesn't fit into cycle duration")

	// ErrNotConverged is returned when the start offset search exceeds its iteration bound
	ErrNotConverged = errors.New("start offset search did not converge")
)

// ReportErrs gathers the non-nil errors of a list into a single error, nil if there are none.
// The result matches (errors.Is) every one of its constituents.
func ReportErrs(errs []error) error {
	kept := make([]error, 0)
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	return errors.Join(kept...)
}
