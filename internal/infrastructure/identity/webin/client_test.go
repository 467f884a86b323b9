package webin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/submission-gateway/internal/core/domain"
)

func TestVerifyTokenResolvesAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"Webin-60000"}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	account, err := client.VerifyToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if account == nil || account.ID != "Webin-60000" || account.Provider != domain.ProviderWebin {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestVerifyTokenRejectionIsNotAnError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	account, err := client.VerifyToken(context.Background(), "not-a-webin-token")
	if err != nil {
		t.Fatalf("expected rejection without error, got %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single introspection call, got %d", got)
	}
}

func TestVerifyTokenUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.VerifyToken(context.Background(), "tok-1")

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
}

func TestVerifyTokenEmptyAccountIDIsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":""}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	account, err := client.VerifyToken(context.Background(), "tok-1")
	if err != nil || account != nil {
		t.Fatalf("expected nil account without error, got %+v / %v", account, err)
	}
}
