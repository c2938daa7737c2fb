package homework

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport  = errors.New("transport error")
	ErrStatusCode = errors.New("unexpected status code")
	ErrSchema     = errors.New("schema error")
)

// TransportError reports a request that could not be completed or whose body
// could not be read or decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("endpoint request failed: %v", e.Err)
	}
	return fmt.Sprintf("endpoint request failed: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusCodeError reports a response whose HTTP status is not 200.
type StatusCodeError struct {
	Code int
}

func (e *StatusCodeError) Error() string {
	return fmt.Sprintf("status code is different from 200: %d", e.Code)
}

func (e *StatusCodeError) Is(target error) bool { return target == ErrStatusCode }

// SchemaError reports a payload or item that does not have the expected shape.
// Keys lists every offending key, in a stable order.
type SchemaError struct {
	Reason string
	Keys   []string
}

func (e *SchemaError) Error() string {
	if len(e.Keys) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Keys, ", ")
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
