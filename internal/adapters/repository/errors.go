package repository

import "errors"

// Sentinel kinds for subscription store errors.
var (
	ErrNotFound      = errors.New("subscription not found")
	ErrEmptyEmail    = errors.New("empty email")
	ErrUnknownSource = errors.New("unknown subscription source")
	ErrUnknownDriver = errors.New("unknown store driver")
)
