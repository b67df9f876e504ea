package acquire

import (
	"errors"

	"prism/pkg/api"
)

const (
	msgLoadFailed    = "Failed to load"
	msgOnboardFailed = "Onboarding failed"
)

// AcquisitionError is a failed profile load. Message is shown to the user as is.
type AcquisitionError struct {
	Address string
	Message string
	Err     error
}

func (e *AcquisitionError) Error() string { return e.Message }

func (e *AcquisitionError) Unwrap() error { return e.Err }

// serverMessage returns the backend's own message carried by err, or fallback.
func serverMessage(err error, fallback string) string {
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var un *api.UnsuccessfulError
	if errors.As(err, &un) && un.Message != "" {
		return un.Message
	}
	return fallback
}
