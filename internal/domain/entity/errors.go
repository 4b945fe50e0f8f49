package entity

import "errors"

// Structural operations reject invalid input with these sentinels and leave
// the layout state untouched.
var (
	ErrInvalidLayout      = errors.New("invalid layout state")
	ErrPaneLimit          = errors.New("pane limit reached")
	ErrPaneNotFound       = errors.New("pane not found")
	ErrDividerNotFound    = errors.New("divider not found")
	ErrGridRequiresFour   = errors.New("grid layout requires exactly four panes")
	ErrNoAdjacentPane     = errors.New("no adjacent pane in that direction")
	ErrInvalidMode        = errors.New("unknown layout mode")
	ErrInvalidRatio       = errors.New("ratio out of range")
	ErrFullPaneActive     = errors.New("full-pane is active")
	ErrNoDrag             = errors.New("no drag gesture in progress")
	ErrFrameNotRegistered = errors.New("frame not registered")
	ErrSessionClosed      = errors.New("session closed")
)
