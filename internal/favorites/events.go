package favorites

import (
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

// EventKind names a store change.
type EventKind string

const (
	EventItemsReplaced   EventKind = "items_replaced"
	EventItemsRemoved    EventKind = "items_removed"
	EventFavoriteAdded   EventKind = "favorite_added"
	EventFavoriteRemoved EventKind = "favorite_removed"
	EventFetchDiscarded  EventKind = "fetch_discarded"
)

// Event describes one change applied by the store.
type Event struct {
	Kind EventKind
	// Item is set for favorite events.
	Item *domain.FeedItem
	// Count is the new item count for replacements and the removed count for removals.
	Count      int
	Generation uint64
	At         time.Time
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	Items      []domain.FeedItem
	Favorites  []domain.FeedItem
	Generation uint64
}
