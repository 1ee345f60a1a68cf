package source

import (
	"errors"
	"fmt"
)

// TransportError is a network failure or non-2xx status that survived every
// retry of a page fetch.
type TransportError struct {
	FeedUID    string
	Slice      int
	StatusCode int // 0 for network errors
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed %s slice %d: transport failed after %d attempt(s): %v",
		e.FeedUID, e.Slice, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response body that does not have the expected shape.
// It is never retried.
type ProtocolError struct {
	FeedUID string
	Slice   int
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("feed %s slice %d: unexpected response: %v", e.FeedUID, e.Slice, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// statusError carries a non-2xx HTTP status between attempts.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	var perr *ProtocolError
	return err != nil && !errors.As(err, &perr)
}
