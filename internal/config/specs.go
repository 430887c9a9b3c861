// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"false"`

	LogLevel string `envconfig:"log_level" default:"error"`
	LogDir   string `envconfig:"log_dir" default:"logs"`

	MetricsTextfile string `envconfig:"metrics_textfile" default:""`

	MoodleDriver        string `envconfig:"moodle_driver" default:"browser"`
	MoodleBaseURL       string `envconfig:"moodle_base_url"`
	MoodleAdminUser     string `envconfig:"moodle_admin_user"`
	MoodleAdminPassword string `envconfig:"moodle_admin_password"`
	MoodleToken         string `envconfig:"moodle_token"`

	BrowserBin      string        `envconfig:"browser_bin" default:""`
	BrowserHeadless bool          `envconfig:"browser_headless" default:"true"`
	UITimeout       time.Duration `envconfig:"ui_timeout" default:"15s" validate:"gt=0s"`
	HTTPTimeout     time.Duration `envconfig:"http_timeout" default:"30s" validate:"gt=0s"`
}

// Validate rejects settings that would leave remote calls without a bound.
func (s *EnvSpec) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("invalid environment settings %v", fields)
		}
		return err
	}

	return nil
}

// SessionSpec holds the parameters of a remote directory session once flags
// and environment have been merged.
type SessionSpec struct {
	Driver        string `validate:"oneof=browser webservice memory"`
	BaseURL       string `validate:"required_unless=Driver memory"`
	AdminUser     string `validate:"required_if=Driver browser"`
	AdminPassword string `validate:"required_if=Driver browser"`
	Token         string `validate:"required_if=Driver webservice"`
}

// Validate reports missing or malformed session parameters, a failure is fatal
// for the run.
func (s *SessionSpec) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("missing or invalid remote session parameters %v for driver %q", fields, s.Driver)
		}
		return err
	}

	if s.BaseURL != "" {
		if err := v.Var(s.BaseURL, "url"); err != nil {
			return fmt.Errorf("invalid base url %q", s.BaseURL)
		}
	}

	return nil
}
