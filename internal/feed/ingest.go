package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/internal/logger"
	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
)

const (
	// MaxBodyBytes caps a feed document. Clients built here stop reading past it.
	MaxBodyBytes        = 8 << 20 // 8 MiB
	defaultFetchTimeout = 15 * time.Second
)

// Service validates feed URLs, downloads and parses documents, and normalizes items.
// It holds no item state; callers apply results to their own store.
type Service struct {
	client     httpclient.Client
	parser     DocumentParser
	normalizer *Normalizer
	headers    map[string]string
	log        logger.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithParser overrides the document parser.
func WithParser(p DocumentParser) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithNormalizer overrides the item normalizer.
func WithNormalizer(n *Normalizer) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithDefaultHeaders sets headers sent with every request (e.g. User-Agent).
func WithDefaultHeaders(headers map[string]string) ServiceOption {
	return func(s *Service) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// NewService builds an ingestion service with the provided HTTP client (or default).
func NewService(client httpclient.Client, log logger.Logger, opts ...ServiceOption) *Service {
	if client == nil {
		client = httpclient.NewRestyClient(defaultFetchTimeout, httpclient.WithBodyLimit(MaxBodyBytes))
	}
	s := &Service{
		client:     client,
		parser:     NewGofeedParser(),
		normalizer: NewNormalizer(nil),
		headers:    map[string]string{},
		log:        logger.Ensure(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchOption customizes a single Fetch call.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	headers map[string]string
}

// WithHeaders adds request headers for one fetch, overriding defaults.
func WithHeaders(headers map[string]string) FetchOption {
	return func(o *fetchOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// Fetch downloads rawURL and returns its items in document order.
//
// Errors: ErrInvalidURL before any network activity, ErrUnsupportedFormat for
// documents in other dialects, *FetchError for transport and parse failures.
func (s *Service) Fetch(ctx context.Context, rawURL string, opts ...FetchOption) ([]domain.FeedItem, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("feed service is not initialized")
	}

	u, err := ValidateURL(rawURL)
	if err != nil {
		s.log.DebugObj("feed url rejected", "feed_url", rawURL)
		return nil, err
	}
	target := u.String()

	o := fetchOptions{headers: make(map[string]string, len(s.headers))}
	for k, v := range s.headers {
		o.headers[k] = v
	}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	body, err := s.download(ctx, target, o.headers)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	doc, err := s.parser.Parse(body)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	if _, ok := doc.(UnsupportedDocument); ok {
		s.log.WarnObj("feed format unsupported", "feed_meta", map[string]any{
			"url":    target,
			"format": doc.Format().String(),
		})
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.Format())
	}

	items := s.normalizer.Normalize(doc)
	s.log.InfoObj("feed fetched", "feed_meta", map[string]any{
		"url":        target,
		"format":     doc.Format().String(),
		"items":      len(items),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return items, nil
}

func (s *Service) download(ctx context.Context, target string, headers map[string]string) ([]byte, error) {
	resp, err := s.client.Get(ctx, target, headers)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("status %d body: %s", code, responseSnippet(body))
	}
	// injected clients may not cap the read
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("feed body exceeds %d bytes: %w", MaxBodyBytes, httpclient.ErrBodyTooLarge)
	}
	return body, nil
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, trimmed)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: scheme %q not supported", ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
