package api

import "fmt"

// AuxiliaryFetchError marks a failed non-essential read (holdings, prices,
// feed, insights). Callers log it and degrade to empty or stale data.
type AuxiliaryFetchError struct {
	Resource string
	Err      error
}

func (e *AuxiliaryFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *AuxiliaryFetchError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response. Message carries the server's message when it sent one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// UnsuccessfulError is a 2xx response whose envelope reported success=false.
type UnsuccessfulError struct {
	Message string
}

func (e *UnsuccessfulError) Error() string {
	if e.Message == "" {
		return "request unsuccessful"
	}
	return e.Message
}
