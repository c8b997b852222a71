// File: internal/browser/errors.go
package browser

import "fmt"

// LaunchError means the browser process failed to start. It is fatal for the
// run and is not retried automatically.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// PageConfigurationError means fingerprint or interception setup partially
// failed. The page is still usable; callers log it and continue.
type PageConfigurationError struct {
	Stage string
	Err   error
}

func (e *PageConfigurationError) Error() string {
	return fmt.Sprintf("page configuration failed at %s: %v", e.Stage, e.Err)
}

func (e *PageConfigurationError) Unwrap() error { return e.Err }
