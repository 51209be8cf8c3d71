package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
)

const rssThreeItems = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <link>https://x/</link>
    <description>Example channel</description>
    <image>
      <url>https://x/img.png</url>
      <title>Example</title>
      <link>https://x/</link>
    </image>
    <item>
      <title>First</title>
      <link>https://x/1</link>
      <description>One</description>
      <guid>urn:x:1</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
    </item>
    <item>
      <title>Second</title>
      <link>https://x/2</link>
    </item>
    <item>
      <description>Third has no title</description>
    </item>
  </channel>
</rss>`

const rssWithSparseItem = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <item><title>Kept</title></item>
    <item><link>https://x/only-link</link><guid>urn:x:link-only</guid></item>
    <item><description>Also kept</description></item>
  </channel>
</rss>`

const atomSparseEntry = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Sparse</title>
  <id>urn:atom:sparse</id>
  <updated>2024-03-01T10:00:00Z</updated>
  <entry>
    <link href="https://a/untitled"/>
    <updated>2024-03-01T10:00:00Z</updated>
  </entry>
</feed>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <id>urn:atom:feed</id>
  <updated>2024-03-01T10:00:00Z</updated>
  <logo>https://a/logo.png</logo>
  <entry>
    <title>Entry One</title>
    <id>urn:atom:1</id>
    <link rel="self" href="https://a/1.atom"/>
    <link rel="alternate" href="https://a/1"/>
    <updated>2024-03-01T10:00:00Z</updated>
    <summary>Summary one</summary>
  </entry>
  <entry>
    <title>Entry Two</title>
    <id>urn:atom:2</id>
    <link href="https://a/2"/>
    <published>2024-02-01T08:00:00Z</published>
    <updated>2024-02-02T08:00:00Z</updated>
    <content type="text">Content two</content>
  </entry>
</feed>`

const jsonFeed = `{"version": "https://jsonfeed.org/version/1.1", "title": "JSON", "items": [{"id": "1", "content_text": "hi"}]}`

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body       []byte
	statusCode int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.statusCode }

// stubClient returns canned responses per URL and records calls.
type stubClient struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	err       error
	calls     []string
	headers   []map[string]string
}

func (s *stubClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, url)
	s.headers = append(s.headers, headers)
	if s.err != nil {
		return nil, s.err
	}
	resp, ok := s.responses[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return resp, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func okResponse(body string) stubResponse {
	return stubResponse{body: []byte(body), statusCode: 200}
}

// sequentialIDs yields id-1, id-2, ...
func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
