// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/pkg/directory"
)

const (
	restPath = "/webservice/rest/server.php"

	fnGetUsersByField = "core_user_get_users_by_field"
	fnCreateUsers     = "core_user_create_users"
	fnUpdateUsers     = "core_user_update_users"
)

var _ directory.ClientInterface = (*WebService)(nil)

type WebServiceConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// WebService talks to the Moodle REST web services with a token that has
// the core_user functions enabled.
type WebService struct {
	endpoint string
	token    string
	client   *http.Client

	logger logging.LoggerInterface
}

type wsUser struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type wsWarning struct {
	Item        string `json:"item"`
	ItemID      int    `json:"itemid"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

// wsException is the body Moodle returns instead of a result when a call
// fails, always with a 200 status.
type wsException struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
	DebugInfo string `json:"debuginfo"`
}

func (e *wsException) Error() string {
	return fmt.Sprintf("moodle %s (%s): %s", e.Exception, e.ErrorCode, e.Message)
}

func (e *wsException) messages() []string {
	msgs := []string{e.Message}
	if d := strings.TrimSpace(e.DebugInfo); d != "" {
		msgs = append(msgs, d)
	}
	return msgs
}

func (w *WebService) FindByEmail(ctx context.Context, email string, _ directory.LookupOptions) (directory.Lookup, error) {
	users, err := w.usersByEmail(ctx, email)
	if err != nil {
		return directory.Lookup{}, err
	}

	switch len(users) {
	case 0:
		return directory.Lookup{Status: directory.NotFound}, nil
	case 1:
		return directory.Lookup{
			Status: directory.Found,
			Ref:    directory.UserRef{ID: strconv.Itoa(users[0].ID)},
		}, nil
	default:
		return directory.Lookup{
			Status: directory.Indeterminate,
			Detail: fmt.Sprintf("%d accounts share %s", len(users), email),
		}, nil
	}
}

func (w *WebService) CreateUser(ctx context.Context, f directory.Fields) (directory.UserRef, error) {
	params := url.Values{}
	params.Set("users[0][username]", strings.ToLower(f.Username))
	params.Set("users[0][auth]", "manual")
	params.Set("users[0][password]", f.Password)
	params.Set("users[0][firstname]", f.FirstName)
	params.Set("users[0][lastname]", f.LastName)
	params.Set("users[0][email]", f.Email)

	var created []wsUser
	if err := w.call(ctx, fnCreateUsers, params, &created); err != nil {
		return directory.UserRef{}, w.rejection("CreateUser", err)
	}
	if len(created) == 0 {
		return directory.UserRef{}, directory.NewRejectedError("CreateUser", "no account was returned")
	}

	return directory.UserRef{ID: strconv.Itoa(created[0].ID)}, nil
}

func (w *WebService) EditUser(ctx context.Context, ref directory.UserRef, f directory.Fields) error {
	if ref.ID == "" {
		return directory.NewRejectedError("EditUser", "missing account id")
	}

	params := url.Values{}
	params.Set("users[0][id]", ref.ID)
	params.Set("users[0][firstname]", f.FirstName)
	params.Set("users[0][lastname]", f.LastName)

	// Older releases answer null, newer ones a warnings object.
	var res struct {
		Warnings []wsWarning `json:"warnings"`
	}
	if err := w.call(ctx, fnUpdateUsers, params, &res); err != nil {
		return w.rejection("EditUser", err)
	}

	if len(res.Warnings) > 0 {
		msgs := make([]string, 0, len(res.Warnings))
		for _, warn := range res.Warnings {
			msgs = append(msgs, warn.Message)
		}
		return directory.NewRejectedError("EditUser", msgs...)
	}
	return nil
}

func (w *WebService) ConfirmPresence(ctx context.Context, email string) (bool, error) {
	users, err := w.usersByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}

func (w *WebService) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

// usersByEmail returns the accounts whose stored email equals email.
func (w *WebService) usersByEmail(ctx context.Context, email string) ([]wsUser, error) {
	params := url.Values{}
	params.Set("field", "email")
	params.Set("values[0]", email)

	var users []wsUser
	if err := w.call(ctx, fnGetUsersByField, params, &users); err != nil {
		return nil, err
	}

	out := users[:0]
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Email), email) {
			out = append(out, u)
		}
	}
	return out, nil
}

// rejection maps a Moodle exception on a write to a rejection carrying its
// messages. Anything else is left to the caller.
func (w *WebService) rejection(op string, err error) error {
	var exc *wsException
	if !errors.As(err, &exc) {
		return err
	}
	return directory.NewRejectedError(op, exc.messages()...)
}

func (w *WebService) call(ctx context.Context, function string, params url.Values, out interface{}) error {
	params.Set("wstoken", w.token)
	params.Set("wsfunction", function)
	params.Set("moodlewsrestformat", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", function, resp.Status)
	}

	w.logger.Debugf("%s: %d bytes", function, len(body))

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		exc := new(wsException)
		if err := json.Unmarshal(body, exc); err == nil && exc.Exception != "" {
			return exc
		}
	}
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", function, err)
	}
	return nil
}

func NewWebService(cfg WebServiceConfig, logger logging.LoggerInterface) *WebService {
	w := new(WebService)

	w.endpoint = strings.TrimRight(cfg.BaseURL, "/") + restPath
	w.token = cfg.Token
	w.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	w.logger = logger

	return w
}
