package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine, services and stores wraps
// exactly one of these so callers can branch with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoMatch        = errors.New("no matching role")
	ErrConflict       = errors.New("conflict")
	ErrDataCorruption = errors.New("data corruption")
	ErrStorage        = errors.New("storage failure")
	ErrInvalid        = errors.New("invalid input")
)

var (
	ErrContentNotFound  = fmt.Errorf("content %w", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)

	ErrAlreadyAssigned = fmt.Errorf("%w: player already holds a slot", ErrConflict)
	ErrSlotsFull       = fmt.Errorf("%w: all matching slots are occupied", ErrConflict)
	ErrAlreadySignedUp = fmt.Errorf("%w: already on the waitlist", ErrConflict)
	ErrStaleRevision   = fmt.Errorf("%w: content was modified concurrently", ErrConflict)
)

// Kind returns the error kind wrapped by err, or nil if err carries none.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrNoMatch, ErrConflict, ErrDataCorruption, ErrStorage, ErrInvalid} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
