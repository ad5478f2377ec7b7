package matching

import (
	"errors"
	"fmt"
)

// ErrMatchNotFound is returned by a MatchStore when no servable record exists
// for a key. Stale and expired records report not-found as well: a stale match
// must never reach a caller, and an expired one is only good for recompute.
var ErrMatchNotFound = errors.New("match not found")

// DataUnavailableError distinguishes "the ledger could not be read" from
// "there are genuinely no matches". Finders never map a ledger failure to an
// empty result set.
type DataUnavailableError struct {
	Op  string
	Err error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("ledger data unavailable during %s: %v", e.Op, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

func dataUnavailable(op string, err error) error {
	return &DataUnavailableError{Op: op, Err: err}
}

// IsDataUnavailable reports whether err (or anything it wraps) is a ledger
// availability failure.
func IsDataUnavailable(err error) bool {
	var e *DataUnavailableError
	return errors.As(err, &e)
}
