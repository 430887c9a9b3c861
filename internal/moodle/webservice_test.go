// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package moodle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/canonical/roster-sync/internal/logging"
	"github.com/canonical/roster-sync/pkg/directory"
)

const testToken = "t0k3n"

// newTestWebService serves every web service function from responses and
// records the form of each call.
func newTestWebService(t *testing.T, responses map[string]string) (*WebService, *[]url.Values) {
	t.Helper()

	calls := new([]url.Values)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != restPath {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		*calls = append(*calls, r.PostForm)

		if r.PostForm.Get("wstoken") != testToken || r.PostForm.Get("moodlewsrestformat") != "json" {
			w.Write([]byte(`{"exception":"moodle_exception","errorcode":"invalidtoken","message":"Invalid token"}`))
			return
		}

		body, ok := responses[r.PostForm.Get("wsfunction")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	ws := NewWebService(WebServiceConfig{BaseURL: srv.URL + "/", Token: testToken, Timeout: 5 * time.Second}, logging.NewNoopLogger())
	t.Cleanup(func() { ws.Close() })

	return ws, calls
}

func TestWebServiceFindByEmail(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		expectedStatus directory.LookupStatus
		expectedID     string
		expectedErr    bool
	}{
		{name: "not found", response: `[]`, expectedStatus: directory.NotFound},
		{name: "found", response: `[{"id":42,"username":"ana","email":"Ana@x.com"}]`, expectedStatus: directory.Found, expectedID: "42"},
		{name: "loose matches are ignored", response: `[{"id":42,"email":"ana@x.com.ar"}]`, expectedStatus: directory.NotFound},
		{name: "shared email", response: `[{"id":1,"email":"ana@x.com"},{"id":2,"email":"ana@x.com"}]`, expectedStatus: directory.Indeterminate},
		{name: "exception", response: `{"exception":"webservice_access_exception","errorcode":"accessexception","message":"Access control exception"}`, expectedErr: true},
		{name: "garbage", response: `<html>`, expectedErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ws, calls := newTestWebService(t, map[string]string{fnGetUsersByField: test.response})

			l, err := ws.FindByEmail(context.Background(), "ana@x.com", directory.LookupOptions{FirstInRun: true})

			if (err != nil) != test.expectedErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				return
			}
			if l.Status != test.expectedStatus || l.Ref.ID != test.expectedID {
				t.Fatalf("unexpected lookup %+v", l)
			}

			form := (*calls)[0]
			if form.Get("field") != "email" || form.Get("values[0]") != "ana@x.com" {
				t.Fatalf("unexpected form %v", form)
			}
		})
	}
}

func TestWebServiceCreateUser(t *testing.T) {
	fields := directory.Fields{Username: "Ana", Email: "ana@x.com", FirstName: "Ana", LastName: "Gil", Password: "Ana+A1+-"}

	ws, calls := newTestWebService(t, map[string]string{fnCreateUsers: `[{"id":7,"username":"ana"}]`})

	ref, err := ws.CreateUser(context.Background(), fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "7" {
		t.Fatalf("expected id 7, got %q", ref.ID)
	}

	form := (*calls)[0]
	expected := map[string]string{
		"users[0][username]":  "ana",
		"users[0][auth]":      "manual",
		"users[0][password]":  "Ana+A1+-",
		"users[0][firstname]": "Ana",
		"users[0][lastname]":  "Gil",
		"users[0][email]":     "ana@x.com",
	}
	for k, v := range expected {
		if form.Get(k) != v {
			t.Fatalf("expected %s=%q, got %q", k, v, form.Get(k))
		}
	}
}

func TestWebServiceCreateUserRejected(t *testing.T) {
	ws, _ := newTestWebService(t, map[string]string{
		fnCreateUsers: `{"exception":"invalid_parameter_exception","errorcode":"invalidparameter","message":"Invalid parameter value detected","debuginfo":"Username already exists: ana"}`,
	})

	_, err := ws.CreateUser(context.Background(), directory.Fields{Username: "ana"})

	var derr *directory.DirectoryError
	if !errors.As(err, &derr) || derr.Code != directory.ErrCodeRejected {
		t.Fatalf("expected a rejection, got %v", err)
	}
	if !reflect.DeepEqual(derr.Messages, []string{"Invalid parameter value detected", "Username already exists: ana"}) {
		t.Fatalf("unexpected messages %q", derr.Messages)
	}
}

func TestWebServiceEditUser(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		expectedErr error
	}{
		{name: "null answer", response: `null`},
		{name: "no warnings", response: `{"warnings":[]}`},
		{name: "warnings", response: `{"warnings":[{"item":"user","itemid":7,"warningcode":"usernotupdated","message":"User not updated"}]}`, expectedErr: directory.ErrRejected},
		{name: "exception", response: `{"exception":"moodle_exception","errorcode":"invaliduser","message":"Invalid user"}`, expectedErr: directory.ErrRejected},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ws, calls := newTestWebService(t, map[string]string{fnUpdateUsers: test.response})

			err := ws.EditUser(context.Background(), directory.UserRef{ID: "7"}, directory.Fields{FirstName: "Ana", LastName: "Gil"})

			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("expected %v, got %v", test.expectedErr, err)
			}

			form := (*calls)[0]
			if form.Get("users[0][id]") != "7" || form.Get("users[0][lastname]") != "Gil" || form.Has("users[0][email]") {
				t.Fatalf("unexpected form %v", form)
			}
		})
	}
}

func TestWebServiceTransportFailure(t *testing.T) {
	ws, _ := newTestWebService(t, map[string]string{})

	_, err := ws.CreateUser(context.Background(), directory.Fields{Username: "ana"})
	if err == nil || errors.Is(err, directory.ErrRejected) {
		t.Fatalf("a server error must not read as a rejection, got %v", err)
	}

	if _, err := ws.ConfirmPresence(context.Background(), "ana@x.com"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestWebServiceConfirmPresence(t *testing.T) {
	ws, _ := newTestWebService(t, map[string]string{fnGetUsersByField: `[{"id":1,"email":"ana@x.com"}]`})

	ok, err := ws.ConfirmPresence(context.Background(), "ana@x.com")
	if err != nil || !ok {
		t.Fatalf("expected presence, got %t (%v)", ok, err)
	}

	ok, err = ws.ConfirmPresence(context.Background(), "bea@x.com")
	if err != nil || ok {
		t.Fatalf("expected absence, got %t (%v)", ok, err)
	}
}
