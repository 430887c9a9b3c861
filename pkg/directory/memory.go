// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var _ ClientInterface = (*Memory)(nil)

// Memory is an in-process directory. It backs tests and dry runs and can be
// told to misbehave the way a remote system does.
type Memory struct {
	mu sync.RWMutex

	users   map[string]Fields
	byEmail map[string][]string

	rejections   map[string][]string
	hidden       map[string]bool
	lookupErrors map[string]error

	lookups []LookupOptions
}

func memoryKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Memory) FindByEmail(ctx context.Context, email string, opts LookupOptions) (Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Lookup{}, err
	}

	key := memoryKey(email)
	m.lookups = append(m.lookups, opts)

	if err, ok := m.lookupErrors[key]; ok {
		return Lookup{}, err
	}

	ids := m.byEmail[key]
	switch len(ids) {
	case 0:
		return Lookup{Status: NotFound}, nil
	case 1:
		return Lookup{Status: Found, Ref: UserRef{ID: ids[0]}}, nil
	default:
		return Lookup{Status: Indeterminate, Detail: fmt.Sprintf("%d accounts share %s", len(ids), key)}, nil
	}
}

func (m *Memory) CreateUser(ctx context.Context, f Fields) (UserRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return UserRef{}, err
	}

	key := memoryKey(f.Email)
	if msgs, ok := m.rejections[key]; ok {
		return UserRef{}, NewRejectedError("CreateUser", msgs...)
	}

	for _, u := range m.users {
		if u.Username == f.Username {
			return UserRef{}, NewRejectedError("CreateUser", "This username already exists, choose another")
		}
	}

	return m.insert(f), nil
}

func (m *Memory) EditUser(ctx context.Context, ref UserRef, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	u, ok := m.users[ref.ID]
	if !ok {
		return NewRejectedError("EditUser", fmt.Sprintf("invalid user id %s", ref.ID))
	}
	if msgs, ok := m.rejections[memoryKey(u.Email)]; ok {
		return NewRejectedError("EditUser", msgs...)
	}

	u.FirstName = f.FirstName
	u.LastName = f.LastName
	m.users[ref.ID] = u

	return nil
}

func (m *Memory) ConfirmPresence(ctx context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := memoryKey(email)
	if m.hidden[key] {
		return false, nil
	}
	return len(m.byEmail[key]) > 0, nil
}

func (m *Memory) Close() error {
	return nil
}

// Seed adds an existing account without going through CreateUser.
func (m *Memory) Seed(f Fields) UserRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insert(f)
}

// Get returns the account stored for email, when exactly one exists.
func (m *Memory) Get(email string) (Fields, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byEmail[memoryKey(email)]
	if len(ids) != 1 {
		return Fields{}, false
	}
	return m.users[ids[0]], true
}

// Len returns the number of accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.users)
}

// Reject makes every create or edit for email fail with messages.
func (m *Memory) Reject(email string, messages ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rejections[memoryKey(email)] = messages
}

// Hide makes ConfirmPresence report email as absent.
func (m *Memory) Hide(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hidden[memoryKey(email)] = true
}

// FailLookup makes FindByEmail return err for email.
func (m *Memory) FailLookup(email string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookupErrors[memoryKey(email)] = err
}

// Lookups returns the options of every FindByEmail call so far.
func (m *Memory) Lookups() []LookupOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LookupOptions, len(m.lookups))
	copy(out, m.lookups)
	return out
}

func (m *Memory) insert(f Fields) UserRef {
	id := uuid.NewString()
	key := memoryKey(f.Email)

	m.users[id] = f
	m.byEmail[key] = append(m.byEmail[key], id)

	return UserRef{ID: id}
}

func NewMemory() *Memory {
	m := new(Memory)

	m.users = make(map[string]Fields)
	m.byEmail = make(map[string][]string)
	m.rejections = make(map[string][]string)
	m.hidden = make(map[string]bool)
	m.lookupErrors = make(map[string]error)

	return m
}
