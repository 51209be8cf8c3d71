package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

// IDFunc generates opaque item identifiers.
type IDFunc func() string

// Normalizer maps parsed documents onto domain.FeedItem.
type Normalizer struct {
	newID IDFunc
}

// NewNormalizer builds a normalizer; a nil newID defaults to random UUIDs.
func NewNormalizer(newID IDFunc) *Normalizer {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Normalizer{newID: newID}
}

// Normalize returns one item per document record, in document order. Records
// missing title, description or link are kept with those fields nil; only nil
// records are skipped. Unsupported documents yield no items.
//
// The channel image (RSS) or logo/icon (Atom) becomes every item's thumbnail only
// when it is an absolute URL; a relative image URL leaves ThumbnailURL nil.
func (n *Normalizer) Normalize(doc Document) []domain.FeedItem {
	switch d := doc.(type) {
	case RSSDocument:
		return n.normalizeRSS(d.Feed)
	case AtomDocument:
		return n.normalizeAtom(d.Feed)
	case UnsupportedDocument:
		return nil
	default:
		return nil
	}
}

func (n *Normalizer) normalizeRSS(f *rss.Feed) []domain.FeedItem {
	if f == nil {
		return nil
	}

	var thumb *string
	if f.Image != nil {
		thumb = absoluteURL(f.Image.URL)
	}

	items := make([]domain.FeedItem, 0, len(f.Items))
	for _, it := range f.Items {
		if it == nil {
			continue
		}

		guid := ""
		if it.GUID != nil {
			guid = strings.TrimSpace(it.GUID.Value)
		}

		items = append(items, domain.FeedItem{
			ID:              n.newID(),
			GUID:            n.guidOrGenerated(guid),
			Title:           optionalString(it.Title),
			Description:     optionalString(it.Description),
			Link:            optionalString(it.Link),
			PublicationDate: copyTime(it.PubDateParsed),
			ThumbnailURL:    copyString(thumb),
		})
	}
	return items
}

func (n *Normalizer) normalizeAtom(f *atom.Feed) []domain.FeedItem {
	if f == nil {
		return nil
	}

	thumb := absoluteURL(f.Logo)
	if thumb == nil {
		thumb = absoluteURL(f.Icon)
	}

	items := make([]domain.FeedItem, 0, len(f.Entries))
	for _, e := range f.Entries {
		if e == nil {
			continue
		}

		description := e.Summary
		if isBlank(description) && e.Content != nil {
			description = e.Content.Value
		}

		published := e.PublishedParsed
		if published == nil {
			published = e.UpdatedParsed
		}

		items = append(items, domain.FeedItem{
			ID:              n.newID(),
			GUID:            n.guidOrGenerated(strings.TrimSpace(e.ID)),
			Title:           optionalString(e.Title),
			Description:     optionalString(description),
			Link:            optionalString(atomLink(e.Links)),
			PublicationDate: copyTime(published),
			ThumbnailURL:    copyString(thumb),
		})
	}
	return items
}

func (n *Normalizer) guidOrGenerated(guid string) string {
	if guid != "" {
		return guid
	}
	return n.newID()
}

// atomLink prefers the alternate link, which is what readers open.
func atomLink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil || isBlank(l.Href) {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
		if first == "" {
			first = l.Href
		}
	}
	return first
}

func absoluteURL(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil
	}
	s := u.String()
	return &s
}

func optionalString(s string) *string {
	if isBlank(s) {
		return nil
	}
	return &s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
