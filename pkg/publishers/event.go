package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

// Event kinds sent downstream.
const (
	EventFavoriteAdded   = "favorite_added"
	EventFavoriteRemoved = "favorite_removed"
)

// Message attribute keys set by the queue sinks.
const (
	AttrEventKind = "event_kind"
	AttrEventID   = "event_id"
	AttrItemGUID  = "item_guid"
	AttrItemLink  = "item_link"
)

// maxAttrLen keeps attributes small; the full item travels in the body.
const maxAttrLen = 1024

func knownKind(kind string) bool {
	return kind == EventFavoriteAdded || kind == EventFavoriteRemoved
}

// Event is the payload published downstream.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Item       Item      `json:"item"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Item is the favorited entry as consumers see it. Absent fields are omitted.
type Item struct {
	GUID         string     `json:"guid"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Link         string     `json:"link,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
}

// NewEvent builds the event for a favorites change of the given kind.
func NewEvent(kind string, item domain.FeedItem, at time.Time) Event {
	if at.IsZero() {
		at = time.Now()
	}
	out := Item{
		GUID:        item.GUID,
		Title:       item.TitleOr(""),
		Description: item.DescriptionOr(""),
		Link:        item.LinkOr(""),
	}
	if item.PublicationDate != nil {
		published := item.PublicationDate.UTC()
		out.PublishedAt = &published
	}
	if item.ThumbnailURL != nil {
		out.ThumbnailURL = *item.ThumbnailURL
	}
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Item:       out,
		OccurredAt: at.UTC(),
	}
}

// Attributes are the routing fields queue sinks attach to each message. Empty
// values are left out since SNS rejects them.
func (e Event) Attributes() map[string]string {
	attrs := map[string]string{
		AttrEventKind: e.Kind,
		AttrEventID:   e.ID,
		AttrItemGUID:  e.Item.GUID,
		AttrItemLink:  e.Item.Link,
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
			continue
		}
		if len(v) > maxAttrLen {
			attrs[k] = v[:maxAttrLen]
		}
	}
	return attrs
}

// GroupKey identifies the item across events, for FIFO groups and ordering
// keys. Items without a guid fall back to their link.
func (e Event) GroupKey() string {
	key := e.Item.GUID
	if key == "" {
		key = e.Item.Link
	}
	if key == "" {
		key = "unkeyed"
	}
	if !validGroupID(key) {
		key = uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	return key
}

// validGroupID mirrors the SQS/SNS group id rule: up to 128 printable ASCII
// characters, no spaces.
func validGroupID(key string) bool {
	if len(key) > 128 {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] > '~' {
			return false
		}
	}
	return true
}
