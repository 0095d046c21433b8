package service

import "errors"

var (
	// ErrNotStarted is returned when work is submitted to a stopped service.
	ErrNotStarted = errors.New("service not started")
	// ErrNoWatchlist is returned by RunWatchlist when no path is configured.
	ErrNoWatchlist = errors.New("no watchlist configured")
)
