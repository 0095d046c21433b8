package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("ticker not found")
	ErrInvalidLimit  = errors.New("invalid leaderboard limit")
	ErrInvalidResult = errors.New("result has no ticker")
)
