package preview

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response and records the requested URL.
type stubHTTPClient struct {
	resp httpclient.Response
	err  error
	urls []string
}

func (s *stubHTTPClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.urls = append(s.urls, url)
	return s.resp, s.err
}

func strPtr(s string) *string { return &s }

func TestParseMetaPrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="OG Title">
    <meta property="og:description" content="OG Desc">
    <meta property="og:image" content="/img/og.png">
    <link rel="canonical" href="https://example.com/canonical">
  </head>
</html>`)

	meta, err := parseMeta(html)
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "OG Desc" || meta.ImageURL != "/img/og.png" {
		t.Fatalf("unexpected meta %#v", meta)
	}
	if meta.CanonicalURL != "https://example.com/canonical" {
		t.Fatalf("unexpected canonical %q", meta.CanonicalURL)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	got := resolveURL("/img.png", "https://example.com/articles/1")
	if got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}

	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestPreviewMergesPageMetadata(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(`
<html><head>
  <meta property="og:title" content="Page Title">
  <meta property="og:image" content="/hero.jpg">
</head></html>`)}}

	item := domain.FeedItem{
		Title:       strPtr("Feed Title"),
		Description: strPtr("Feed Desc"),
		Link:        strPtr("https://example.com/post/1"),
	}
	got, err := NewPreviewer(client, nil).Preview(context.Background(), item)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got.Title != "Page Title" || got.Description != "Feed Desc" {
		t.Fatalf("unexpected preview %#v", got)
	}
	if got.ImageURL != "https://example.com/hero.jpg" {
		t.Fatalf("image not resolved: %q", got.ImageURL)
	}
	if len(client.urls) != 1 || client.urls[0] != "https://example.com/post/1" {
		t.Fatalf("unexpected requests %v", client.urls)
	}
}

func TestPreviewLimitsBody(t *testing.T) {
	body := bytes.Repeat([]byte("a"), maxHTMLBodyBytes+10)
	client := &stubHTTPClient{resp: stubHTTPResponse{body: body, statusCode: 200}}

	got, err := NewPreviewer(client, nil).Preview(context.Background(), domain.FeedItem{Link: strPtr("https://example.com")})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got.Title != "" {
		t.Fatalf("expected empty title because body had no metadata, got %q", got.Title)
	}
	if got.URL != "https://example.com" {
		t.Fatalf("unexpected url %q", got.URL)
	}
}

func TestPreviewWithoutLink(t *testing.T) {
	client := &stubHTTPClient{}
	_, err := NewPreviewer(client, nil).Preview(context.Background(), domain.FeedItem{Title: strPtr("x")})
	if !errors.Is(err, ErrNoLink) {
		t.Fatalf("expected ErrNoLink, got %v", err)
	}
	if len(client.urls) != 0 {
		t.Fatalf("expected no requests")
	}
}

func TestPreviewReturnsFallbackOnFailure(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 500, body: []byte("boom")}}
	got, err := NewPreviewer(client, nil).Preview(context.Background(), domain.FeedItem{
		Title: strPtr("Feed Title"),
		Link:  strPtr("https://example.com/a"),
	})
	if err == nil {
		t.Fatalf("expected error for 500")
	}
	if got.Title != "Feed Title" || got.URL != "https://example.com/a" {
		t.Fatalf("fallback preview missing: %#v", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
