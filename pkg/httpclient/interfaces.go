package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP GETs so feed fetches and link previews can be faked in tests.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
