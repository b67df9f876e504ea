package feed

import "fmt"

// TransportError reports that the push channel is unavailable. The poll
// source keeps the feed current meanwhile.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("push %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
