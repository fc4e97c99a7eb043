package roster

import (
	"errors"
	"fmt"

	"github.com/dukerupert/familyfeed/internal/timeout"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrRecordNotIdentified = errors.New("record has no identifier")
	ErrRecordNotFound      = errors.New("record not found")
	ErrPayloadTooLarge     = errors.New("payload too large")
	ErrEmptyPayload        = errors.New("payload is empty")
	ErrPermissionDenied    = errors.New("permission denied")

	// ErrOperationTimedOut means the remote call may still complete; its
	// outcome is never applied locally.
	ErrOperationTimedOut = timeout.ErrTimedOut
)

// RemoteError wraps any failure reported by the record or blob store.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// classify maps a lower-level failure onto the roster error taxonomy.
// Errors that already belong to it pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOperationTimedOut) {
		return fmt.Errorf("%s: %w", op, ErrOperationTimedOut)
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	for _, known := range []error{ErrNotAuthenticated, ErrRecordNotIdentified, ErrRecordNotFound, ErrPayloadTooLarge, ErrEmptyPayload} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &RemoteError{Op: op, Err: err}
}
