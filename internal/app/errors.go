// Package app wires the pipeline, keymap and devices together and owns
// the application lifecycle and the main loop.
package app

import "errors"

// Application errors.
var (
	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates the application is not running.
	ErrNotRunning = errors.New("application not running")

	// ErrNoDevices indicates Run was called before SetDevices.
	ErrNoDevices = errors.New("no key source or sink configured")
)
