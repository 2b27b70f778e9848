// Package roverrors defines the error kinds shared across the autonomy stack.
package roverrors

import "errors"

// Sentinel error kinds. Components wrap these with context via fmt.Errorf's
// %w verb; callers test with errors.Is.
var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrDeviceFault       = errors.New("device fault")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNoPath            = errors.New("no path")
	ErrTimeout           = errors.New("timeout")
	ErrIO                = errors.New("io error")
	ErrNotFound          = errors.New("not found")
)
