// Package storage snapshots favorites so a new session can restore them.
package storage

import (
	"fmt"
	"strings"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

// Store persists favorites in favorited order.
type Store interface {
	Close() error
	SaveFavorite(item domain.FeedItem) error
	DeleteFavorite(id string) error
	LoadFavorites() ([]domain.FeedItem, error)
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled", "memory":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                              { return nil }
func (noopStore) SaveFavorite(domain.FeedItem) error        { return nil }
func (noopStore) DeleteFavorite(string) error               { return nil }
func (noopStore) LoadFavorites() ([]domain.FeedItem, error) { return nil, nil }
