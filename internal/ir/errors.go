package ir

import "errors"

// Common errors.
var (
	ErrDuplicateName   = errors.New("duplicate value name")
	ErrEmptyName       = errors.New("empty value name")
	ErrPayloadSize     = errors.New("payload size does not match type")
	ErrViewOutOfBounds = errors.New("tensor view extends beyond its base")
	ErrUnknownValue    = errors.New("unknown value")
)
