package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/internal/logger"
	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	defaultTimeout   = 10 * time.Second
)

// ErrNoLink is returned when the item has nothing to open.
var ErrNoLink = errors.New("item has no link")

// LinkPreview is what the article page says about itself. Empty page fields
// fall back to the feed item's own values.
type LinkPreview struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
}

// Previewer fetches article pages and extracts metadata from OG tags.
type Previewer struct {
	client httpclient.Client
	log    logger.Logger
}

// NewPreviewer constructs a previewer with the provided HTTP client (or default).
func NewPreviewer(client httpclient.Client, log logger.Logger) *Previewer {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	return &Previewer{client: client, log: logger.Ensure(log)}
}

// Preview fetches item.Link and merges its page metadata over the item fields.
func (p *Previewer) Preview(ctx context.Context, item domain.FeedItem) (LinkPreview, error) {
	link := strings.TrimSpace(item.LinkOr(""))
	if link == "" {
		return LinkPreview{}, ErrNoLink
	}

	base := LinkPreview{
		URL:         link,
		Title:       item.TitleOr(""),
		Description: item.DescriptionOr(""),
	}
	if item.ThumbnailURL != nil {
		base.ImageURL = *item.ThumbnailURL
	}

	resp, err := p.client.Get(ctx, link, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		p.log.WarnObj("link preview fetch failed", "preview_error", map[string]any{
			"url":   link,
			"error": err.Error(),
		})
		return base, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return base, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return base, err
	}

	out := LinkPreview{
		URL:         firstNonEmpty(resolveURL(meta.CanonicalURL, link), link),
		Title:       firstNonEmpty(meta.Title, base.Title),
		Description: firstNonEmpty(meta.Description, base.Description),
		ImageURL:    firstNonEmpty(resolveURL(meta.ImageURL, link), base.ImageURL),
	}
	p.log.DebugObj("link preview built", "preview_meta", map[string]any{
		"url":       out.URL,
		"has_image": out.ImageURL != "",
	})
	return out, nil
}

type pageMeta struct {
	Title        string
	Description  string
	ImageURL     string
	CanonicalURL string
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	canonical, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			extract(`meta[name="twitter:title"]`),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
		CanonicalURL: firstNonEmpty(extract(`meta[property="og:url"]`), canonical),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
