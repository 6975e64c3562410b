package warmcache

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a cache or family after Close.
	ErrClosed = errors.New("warmcache: closed")
	// ErrInvalidOptions wraps every constructor validation failure.
	ErrInvalidOptions = errors.New("warmcache: invalid options")
	// ErrDuplicateParticipant is returned when two snapshot participants share a key.
	ErrDuplicateParticipant = errors.New("warmcache: duplicate snapshot participant")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidOptions}, args...)...)
}

// SnapshotError describes a failed snapshot bridge step. It is only ever
// logged or handed to Hooks; the bridge never returns it to callers.
type SnapshotError struct {
	Op        string
	Namespace string
	Key       string
	Err       error
}

func (e *SnapshotError) Error() string {
	switch {
	case e.Key != "" && e.Namespace != "":
		return fmt.Sprintf("snapshot %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
	case e.Key != "":
		return fmt.Sprintf("snapshot %s %q: %v", e.Op, e.Key, e.Err)
	default:
		return fmt.Sprintf("snapshot %s: %v", e.Op, e.Err)
	}
}

func (e *SnapshotError) Unwrap() error { return e.Err }
