package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRoundResolved       = errors.New("round already resolved")
	ErrRoundClosed         = errors.New("round closed for staking")
	ErrDuplicateRound      = errors.New("round with this scheduled time already exists")
	ErrOutcomeMismatch     = errors.New("stake outcome conflicts with existing position")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrLockHeld            = errors.New("lock already held")
)
