// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package directory

import (
	"context"
)

// LookupStatus is the result of searching the directory by email.
type LookupStatus int

const (
	// Indeterminate means the search result could not be read as a single
	// account or as a clear absence.
	Indeterminate LookupStatus = iota
	NotFound
	Found
)

func (s LookupStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return "indeterminate"
	}
}

// UserRef points at an existing account. Adapters decide what goes in it.
type UserRef struct {
	ID      string
	EditURL string
}

// Lookup is returned by FindByEmail. Ref is only set when Status is Found.
type Lookup struct {
	Status LookupStatus
	Ref    UserRef
	// Detail explains an Indeterminate status.
	Detail string
}

type LookupOptions struct {
	// FirstInRun is true for the first lookup of a run, when no previous
	// search filter can be present in the remote session.
	FirstInRun bool
}

// Fields are the account attributes submitted to the directory.
type Fields struct {
	Username  string `validate:"required"`
	Email     string `validate:"required,email"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Password  string `validate:"required"`
}

// NameFields keeps only the attributes an edit is allowed to change.
func (f Fields) NameFields() Fields {
	return Fields{FirstName: f.FirstName, LastName: f.LastName}
}

// ClientInterface is implemented by the transports able to reach the remote
// directory. Calls block and are not retried.
type ClientInterface interface {
	FindByEmail(context.Context, string, LookupOptions) (Lookup, error)
	CreateUser(context.Context, Fields) (UserRef, error)
	EditUser(context.Context, UserRef, Fields) error
	ConfirmPresence(context.Context, string) (bool, error)
	Close() error
}

type ServiceInterface interface {
	FindByEmail(context.Context, string, LookupOptions) (Lookup, error)
	CreateUser(context.Context, Fields) (UserRef, error)
	EditUser(context.Context, UserRef, Fields) error
	ConfirmPresence(context.Context, string) (bool, error)
}
