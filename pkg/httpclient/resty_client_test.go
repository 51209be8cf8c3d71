package httpclient

import (
	"context"
	"errors"
	"strings"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRestyClientSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "reader-test" {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/rss+xml" {
			t.Errorf("unexpected accept %q", got)
		}
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	client := NewRestyClient(2*time.Second, WithUserAgent("reader-test"))
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"Accept": "application/rss+xml"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
	if string(resp.Body()) != "<rss/>" {
		t.Fatalf("unexpected body %q", resp.Body())
	}
}

func TestRestyClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRestyClient(2*time.Second, WithRetries(2, time.Millisecond))
	resp, err := client.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", resp.StatusCode())
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestRestyClientEnforcesBodyLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	client := NewRestyClient(2*time.Second, WithBodyLimit(1024), WithRetries(2, time.Millisecond))
	_, err := client.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("oversized body should not be retried, got %d calls", calls.Load())
	}

	small := NewRestyClient(2*time.Second, WithBodyLimit(8192))
	resp, err := small.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get under limit: %v", err)
	}
	if len(resp.Body()) != 4096 {
		t.Fatalf("unexpected body length %d", len(resp.Body()))
	}
}
