package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL reports input that is not an absolute http(s) URL. No request was made.
	ErrInvalidURL = errors.New("invalid feed url")
	// ErrUnsupportedFormat reports a parsed document in a dialect the reader does not list.
	ErrUnsupportedFormat = errors.New("unsupported feed format")
)

// FetchError wraps transport and parse failures. Callers may retry.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrorKind classifies ingestion failures for presentation.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidURL
	KindUnsupportedFormat
	KindFetchFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidURL:
		return "invalid_url"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// ErrorKindOf classifies err. Errors from outside the ingestion path count as fetch failures.
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var fetchErr *FetchError
	switch {
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.As(err, &fetchErr):
		return KindFetchFailed
	default:
		return KindFetchFailed
	}
}
