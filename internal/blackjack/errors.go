package blackjack

import (
	"errors"
	"fmt"
)

// ErrSessionExists is returned when a start command arrives for a room that
// already has a running table.
var ErrSessionExists = errors.New("blackjack: game already running in this room")

// ErrNoSession is returned when a command references a room with no table.
var ErrNoSession = errors.New("blackjack: no game running in this room")

// RejectError is a validation failure with a user-facing reason. It is
// always handled at the command boundary and never mutates session state.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return e.Reason
}

func reject(format string, args ...any) error {
	return &RejectError{Reason: fmt.Sprintf(format, args...)}
}

// IsReject reports whether err is a user-facing rejection rather than an
// internal failure.
func IsReject(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}
