// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package directory

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/internal/monitoring"
	"github.com/canonical/roster-sync/internal/tracing"
)

var _ ServiceInterface = (*Service)(nil)

// Service fronts a directory client with local validation, tracing and call
// metrics. It does not retry.
type Service struct {
	client   ClientInterface
	validate *validator.Validate

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Service) FindByEmail(ctx context.Context, email string, opts LookupOptions) (Lookup, error) {
	ctx, span := s.tracer.Start(ctx, "directory.Service.FindByEmail",
		trace.WithAttributes(attribute.Bool("first_in_run", opts.FirstInRun)),
	)
	defer span.End()

	start := time.Now()
	l, err := s.client.FindByEmail(ctx, email, opts)
	s.observe(span, "find_by_email", start, err)
	if err != nil {
		return Lookup{Status: Indeterminate}, s.wrap("FindByEmail", err)
	}

	span.SetAttributes(attribute.String("lookup.status", l.Status.String()))
	if l.Status == Indeterminate {
		s.logger.Debugf("lookup for %s is indeterminate: %s", email, l.Detail)
	}
	return l, nil
}

func (s *Service) CreateUser(ctx context.Context, f Fields) (UserRef, error) {
	ctx, span := s.tracer.Start(ctx, "directory.Service.CreateUser")
	defer span.End()

	if err := s.validate.Struct(f); err != nil {
		span.SetStatus(codes.Error, "invalid fields")
		return UserRef{}, NewInvalidFieldsError("CreateUser", err)
	}

	start := time.Now()
	ref, err := s.client.CreateUser(ctx, f)
	s.observe(span, "create_user", start, err)
	if err != nil {
		return UserRef{}, s.wrap("CreateUser", err)
	}
	return ref, nil
}

func (s *Service) EditUser(ctx context.Context, ref UserRef, f Fields) error {
	ctx, span := s.tracer.Start(ctx, "directory.Service.EditUser")
	defer span.End()

	f = f.NameFields()
	if err := s.validate.StructPartial(f, "FirstName", "LastName"); err != nil {
		span.SetStatus(codes.Error, "invalid fields")
		return NewInvalidFieldsError("EditUser", err)
	}

	start := time.Now()
	err := s.client.EditUser(ctx, ref, f)
	s.observe(span, "edit_user", start, err)
	if err != nil {
		return s.wrap("EditUser", err)
	}
	return nil
}

func (s *Service) ConfirmPresence(ctx context.Context, email string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "directory.Service.ConfirmPresence")
	defer span.End()

	start := time.Now()
	ok, err := s.client.ConfirmPresence(ctx, email)
	s.observe(span, "confirm_presence", start, err)
	if err != nil {
		return false, s.wrap("ConfirmPresence", err)
	}

	span.SetAttributes(attribute.Bool("confirmed", ok))
	return ok, nil
}

func (s *Service) observe(span trace.Span, op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrRejected):
		status = "rejected"
	default:
		status = "failed"
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}

	s.monitor.ObserveRemoteCall(op, status, time.Since(start))
}

// wrap leaves coded errors alone and turns everything else, timeouts
// included, into a transport error.
func (s *Service) wrap(op string, err error) error {
	var derr *DirectoryError
	if errors.As(err, &derr) {
		return err
	}

	s.logger.Errorf("directory %s failed: %v", op, err)
	return NewTransportError(op, err)
}

func NewService(
	client ClientInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.client = client
	s.validate = validator.New(validator.WithRequiredStructEnabled())

	s.monitor = monitor
	s.tracer = tracer
	s.logger = logger

	return s
}
