package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Capture errors
	ErrMediaAccess    = fmt.Errorf("camera access failed")
	ErrNoActiveStream = fmt.Errorf("no active camera stream")
	ErrNoImage        = fmt.Errorf("no image to submit")

	// API and service errors
	ErrDetectionRequest   = fmt.Errorf("failed to detect emotion or get recommendations")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSuperseded         = fmt.Errorf("superseded by a newer request")
	ErrDetectionNotFound  = fmt.Errorf("detection not found")
	ErrUserNotFound       = fmt.Errorf("user not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
