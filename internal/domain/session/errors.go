package session

import "errors"

// Sentinel error kinds for tracker operations. Rejected operations leave the
// tracker exactly as it was.
var (
	ErrNotActive     = errors.New("no active session")
	ErrInvalidScore  = errors.New("score outside scoring range")
	ErrInvalidRoster = errors.New("invalid session roster")
	ErrEmptyLog      = errors.New("no pass to undo")
	ErrUnknownPlayer = errors.New("player not in session")
)
