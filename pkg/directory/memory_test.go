// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package directory

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	l, err := m.FindByEmail(ctx, "Ana.Gil@Example.com", LookupOptions{FirstInRun: true})
	if err != nil || l.Status != NotFound {
		t.Fatalf("expected NotFound, got %v (%v)", l.Status, err)
	}

	ref, err := m.CreateUser(ctx, validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l, err = m.FindByEmail(ctx, " ANA.GIL@example.com", LookupOptions{})
	if err != nil || l.Status != Found || l.Ref.ID != ref.ID {
		t.Fatalf("expected Found %s, got %+v (%v)", ref.ID, l, err)
	}

	if err := m.EditUser(ctx, ref, Fields{FirstName: "Ana María", LastName: "Gil"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := m.Get("ana.gil@example.com")
	if !ok || got.FirstName != "Ana María" || got.Username != "ana.gil" {
		t.Fatalf("unexpected stored account %+v", got)
	}

	if ok, _ := m.ConfirmPresence(ctx, "ana.gil@example.com"); !ok {
		t.Fatal("expected presence")
	}

	lookups := m.Lookups()
	if len(lookups) != 2 || !lookups[0].FirstInRun || lookups[1].FirstInRun {
		t.Fatalf("unexpected lookups %+v", lookups)
	}
}

func TestMemoryMisbehaviour(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Reject("bad@x.com", "Invalid email address")
	_, err := m.CreateUser(ctx, Fields{Username: "bad", Email: "bad@x.com", FirstName: "B", LastName: "D", Password: "p"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}

	m.Hide("ghost@x.com")
	if _, err := m.CreateUser(ctx, Fields{Username: "ghost", Email: "ghost@x.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := m.ConfirmPresence(ctx, "ghost@x.com"); ok {
		t.Fatal("hidden email must not be confirmed")
	}

	boom := errors.New("boom")
	m.FailLookup("down@x.com", boom)
	if _, err := m.FindByEmail(ctx, "down@x.com", LookupOptions{}); !errors.Is(err, boom) {
		t.Fatalf("expected lookup failure, got %v", err)
	}

	m.Seed(Fields{Username: "twin1", Email: "twin@x.com"})
	m.Seed(Fields{Username: "twin2", Email: "TWIN@x.com"})
	l, err := m.FindByEmail(ctx, "twin@x.com", LookupOptions{})
	if err != nil || l.Status != Indeterminate {
		t.Fatalf("expected Indeterminate, got %v (%v)", l.Status, err)
	}

	if _, err := m.CreateUser(ctx, Fields{Username: "twin1", Email: "other@x.com"}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected duplicate username rejection, got %v", err)
	}
}
