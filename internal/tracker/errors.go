package tracker

import "errors"

// Transition rejections. All of these are user-facing: command handlers
// translate them into replies and never let them escalate.
var (
	ErrAlreadyStarted          = errors.New("workday already started")
	ErrNotStarted              = errors.New("workday not started")
	ErrAlreadyOnBreak          = errors.New("already on break")
	ErrNotOnBreak              = errors.New("not on break")
	ErrBreakAllowanceExhausted = errors.New("daily break allowance exhausted")
	ErrOnBreak                 = errors.New("on break, end it first")
)
