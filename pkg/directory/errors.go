// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package directory

import (
	"fmt"
	"strings"
)

// Error codes for directory errors
const (
	ErrCodeRejected      = "REJECTED"
	ErrCodeIndeterminate = "INDETERMINATE"
	ErrCodeInvalidFields = "INVALID_FIELDS"
	ErrCodeTransport     = "TRANSPORT"
)

var (
	ErrRejected      = &DirectoryError{Code: ErrCodeRejected}
	ErrIndeterminate = &DirectoryError{Code: ErrCodeIndeterminate}
	ErrInvalidFields = &DirectoryError{Code: ErrCodeInvalidFields}
	ErrTransport     = &DirectoryError{Code: ErrCodeTransport}
)

// DirectoryError is a coded error raised by directory operations
type DirectoryError struct {
	Code       string   // Machine-readable error code
	Op         string   // Operation that failed (e.g., "CreateUser")
	Messages   []string // Messages reported by the remote system, in order
	Underlying error
}

// Error implements the error interface
func (e *DirectoryError) Error() string {
	msg := strings.ToLower(e.Code)
	if len(e.Messages) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Messages, "; "))
	} else if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

// Is implements error matching on the code for errors.Is
func (e *DirectoryError) Is(target error) bool {
	t, ok := target.(*DirectoryError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *DirectoryError) Unwrap() error {
	return e.Underlying
}

// NewRejectedError wraps the validation messages the remote system showed
// after a submit.
func NewRejectedError(op string, messages ...string) *DirectoryError {
	return &DirectoryError{
		Code:     ErrCodeRejected,
		Op:       op,
		Messages: messages,
	}
}

func NewInvalidFieldsError(op string, err error) *DirectoryError {
	return &DirectoryError{
		Code:       ErrCodeInvalidFields,
		Op:         op,
		Underlying: err,
	}
}

func NewTransportError(op string, err error) *DirectoryError {
	return &DirectoryError{
		Code:       ErrCodeTransport,
		Op:         op,
		Underlying: err,
	}
}
