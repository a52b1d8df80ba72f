package types

import (
	"errors"
	"fmt"
)

// UnknownStreamError is registry misuse: the stream name is not defined
type UnknownStreamError struct {
	Name string
}

func (e *UnknownStreamError) Error() string {
	return fmt.Sprintf("unknown stream[%s]", e.Name)
}

// TransientFetchError covers network and rate-limit failures; the page may be retried
type TransientFetchError struct {
	Stream     string
	Page       int
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error fetching stream[%s] page[%d] (status %d): %s", e.Stream, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient error fetching stream[%s] page[%d]: %s", e.Stream, e.Page, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// FatalFetchError covers auth and malformed responses; never retried
type FatalFetchError struct {
	Stream     string
	Page       int
	StatusCode int
	Err        error
}

func (e *FatalFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fatal error fetching stream[%s] page[%d] (status %d): %s", e.Stream, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fatal error fetching stream[%s] page[%d]: %s", e.Stream, e.Page, e.Err)
}

func (e *FatalFetchError) Unwrap() error {
	return e.Err
}

// CursorRegressionError rejects a checkpoint smaller than the stored bookmark
type CursorRegressionError struct {
	Stream    string
	Stored    any
	Attempted any
}

func (e *CursorRegressionError) Error() string {
	return fmt.Sprintf("bookmark regression for stream[%s]: stored[%v] attempted[%v]", e.Stream, e.Stored, e.Attempted)
}

// StreamFailure is the per-stream boundary error recorded by the orchestrator
type StreamFailure struct {
	Stream string
	Err    error
}

func (e *StreamFailure) Error() string {
	return fmt.Sprintf("stream[%s] failed: %s", e.Stream, e.Err)
}

func (e *StreamFailure) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var transient *TransientFetchError
	return errors.As(err, &transient)
}

func IsFatal(err error) bool {
	var fatal *FatalFetchError
	return errors.As(err, &fatal)
}
