package publishers

import (
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestNewEventMapsItem(t *testing.T) {
	published := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	item := domain.FeedItem{
		ID:              "local-id",
		GUID:            "urn:x:1",
		Title:           strPtr("Hello"),
		Link:            strPtr("https://x/1"),
		PublicationDate: &published,
		IsFavorite:      true,
	}

	evt := NewEvent(EventFavoriteAdded, item, time.Time{})
	if evt.ID == "" || evt.Kind != EventFavoriteAdded || evt.OccurredAt.IsZero() {
		t.Fatalf("unexpected envelope %#v", evt)
	}
	if evt.Item.GUID != "urn:x:1" || evt.Item.Title != "Hello" || evt.Item.Description != "" {
		t.Fatalf("unexpected item %#v", evt.Item)
	}
	if evt.Item.PublishedAt == nil || evt.Item.PublishedAt.Location() != time.UTC || !evt.Item.PublishedAt.Equal(published) {
		t.Fatalf("published date not carried in UTC: %v", evt.Item.PublishedAt)
	}
}

func TestEventAttributesSkipEmptyValues(t *testing.T) {
	evt := NewEvent(EventFavoriteRemoved, domain.FeedItem{GUID: "g1"}, time.Time{})
	attrs := evt.Attributes()

	if attrs[AttrEventKind] != EventFavoriteRemoved || attrs[AttrItemGUID] != "g1" || attrs[AttrEventID] != evt.ID {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if _, ok := attrs[AttrItemLink]; ok {
		t.Fatalf("empty link should be omitted: %v", attrs)
	}

	long := NewEvent(EventFavoriteAdded, domain.FeedItem{GUID: "g", Link: strPtr("https://x/" + strings.Repeat("a", 2000))}, time.Time{})
	if got := len(long.Attributes()[AttrItemLink]); got != maxAttrLen {
		t.Fatalf("link attribute not truncated, len=%d", got)
	}
}

func TestEventGroupKey(t *testing.T) {
	cases := map[string]struct {
		item domain.FeedItem
		want string
	}{
		"guid":      {domain.FeedItem{GUID: "urn:x:1", Link: strPtr("https://x/1")}, "urn:x:1"},
		"link":      {domain.FeedItem{Link: strPtr("https://x/1")}, "https://x/1"},
		"none":      {domain.FeedItem{}, "unkeyed"},
		"too long":  {domain.FeedItem{GUID: strings.Repeat("g", 200)}, ""},
		"has space": {domain.FeedItem{GUID: "tag:x, 2024"}, ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			key := NewEvent(EventFavoriteAdded, tc.item, time.Time{}).GroupKey()
			if tc.want != "" && key != tc.want {
				t.Fatalf("GroupKey = %q, want %q", key, tc.want)
			}
			if !validGroupID(key) {
				t.Fatalf("GroupKey %q is not a valid group id", key)
			}
			again := NewEvent(EventFavoriteRemoved, tc.item, time.Time{}).GroupKey()
			if again != key {
				t.Fatalf("add and remove of one item got different keys %q, %q", key, again)
			}
		})
	}
}
