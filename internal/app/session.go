package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/config"
	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/internal/favorites"
	"github.com/Adda-Baaj/khobor-reader/internal/feed"
	"github.com/Adda-Baaj/khobor-reader/internal/logger"
	"github.com/Adda-Baaj/khobor-reader/internal/preview"
	"github.com/Adda-Baaj/khobor-reader/internal/storage"
	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-reader/pkg/publishers"
	"github.com/Adda-Baaj/khobor-reader/pkg/sources"
)

const (
	publishTimeout = 10 * time.Second
	fetchRetries   = 1
	retryWait      = 500 * time.Millisecond
	acceptFeeds    = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
)

// ErrPreviewDisabled is returned by Preview when link previews are turned off.
var ErrPreviewDisabled = errors.New("link preview disabled")

// FetchResult is delivered once per Session.Fetch call.
type FetchResult struct {
	Target string
	URL    string
	Items  []domain.FeedItem
	// Applied is false when a newer fetch was started before this one finished.
	Applied bool
	Err     error
}

// Session is the reader runtime. It wires the ingestion service, the favorites
// store and its archive, and relays favorite changes to the change publishers.
type Session struct {
	cfg       *config.Config
	log       logger.Logger
	service   *feed.Service
	store     *favorites.Store
	archive   storage.Store
	fanout    *publishers.Fanout
	previewer *preview.Previewer
	sources   *sources.Registry

	cancelSub func()
	relayDone chan struct{}
	closeOnce sync.Once
}

// Option customizes a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	client     httpclient.Client
	archive    storage.Store
	publishers []publishers.Publisher
	sources    *sources.Registry
}

// WithHTTPClient replaces the resty client used for feeds and previews.
func WithHTTPClient(c httpclient.Client) Option {
	return func(o *sessionOptions) { o.client = c }
}

// WithArchive replaces the storage backend selected by config.
func WithArchive(s storage.Store) Option {
	return func(o *sessionOptions) { o.archive = s }
}

// WithPublishers replaces the publishers loaded from the publishers file.
func WithPublishers(pubs ...publishers.Publisher) Option {
	return func(o *sessionOptions) { o.publishers = pubs }
}

// WithSources replaces the registry loaded from the sources file.
func WithSources(reg *sources.Registry) Option {
	return func(o *sessionOptions) { o.sources = reg }
}

// NewSession builds a reader session from config. Favorites found in the archive
// are restored before the session is returned.
func NewSession(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	srcReg := o.sources
	if srcReg == nil {
		var err error
		if srcReg, err = loadSources(cfg.SourcesFile, log); err != nil {
			return nil, err
		}
	}

	client := o.client
	if client == nil {
		client = httpclient.NewRestyClient(cfg.FetchTimeout,
			httpclient.WithUserAgent(cfg.UserAgent),
			httpclient.WithRetries(fetchRetries, retryWait),
			httpclient.WithBodyLimit(feed.MaxBodyBytes),
		)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, o.publishers, log)
	if err != nil {
		return nil, err
	}

	archive := o.archive
	if archive == nil {
		if archive, err = storage.NewStore(cfg.StorageType, cfg.BBoltPath); err != nil {
			_ = fanout.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	store := favorites.NewStore(log, favorites.WithArchive(archive))
	saved, err := archive.LoadFavorites()
	if err != nil {
		store.Close()
		archive.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	if err := store.RestoreFavorites(saved); err != nil {
		store.Close()
		archive.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("restore favorites: %w", err)
	}
	if len(saved) > 0 {
		log.InfoObj("favorites restored", "favorites_meta", map[string]any{"count": len(saved)})
	}

	s := &Session{
		cfg:   cfg,
		log:   log,
		store: store,
		service: feed.NewService(client, log, feed.WithDefaultHeaders(map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     acceptFeeds,
		})),
		archive:   archive,
		fanout:    fanout,
		sources:   srcReg,
		relayDone: make(chan struct{}),
	}
	if cfg.PreviewEnabled {
		s.previewer = preview.NewPreviewer(client, log)
	}

	events, cancel := store.Subscribe(cfg.EventBuffer)
	s.cancelSub = cancel
	go s.relay(events)

	return s, nil
}

func loadSources(path string, log logger.Logger) (*sources.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return sources.NewRegistry(nil)
	}
	reg, err := sources.LoadRegistry(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WarnObj("sources file not found; only urls can be fetched", "sources_file", path)
		return sources.NewRegistry(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}

	ids := make([]string, 0, reg.Len())
	for _, src := range reg.All() {
		ids = append(ids, src.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})
	return reg, nil
}

func buildFanout(ctx context.Context, path string, override []publishers.Publisher, log logger.Logger) (*publishers.Fanout, error) {
	if override != nil {
		return publishers.NewFanout(override), nil
	}
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}

	cfgs, err := publishers.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers config: %w", err)
	}
	pubs, err := publishers.Build(ctx, cfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"declared": len(cfgs),
		"active":   len(pubs),
	})
	return publishers.NewFanout(pubs), nil
}

// Store exposes the favorites store for reads and edits.
func (s *Session) Store() *favorites.Store { return s.store }

// Sources returns the configured feed sources.
func (s *Session) Sources() []sources.Source { return s.sources.All() }

// Fetch loads target, which is a source id or a feed URL, on its own goroutine
// and applies the items to the store. Only the most recently issued Fetch call is
// applied; the returned channel receives exactly one result.
func (s *Session) Fetch(ctx context.Context, target string) <-chan FetchResult {
	out := make(chan FetchResult, 1)
	target = strings.TrimSpace(target)

	rawURL := target
	var fetchOpts []feed.FetchOption
	if src, ok := s.sources.ByID(target); ok {
		rawURL = src.URL
		fetchOpts = append(fetchOpts, feed.WithHeaders(sources.Headers(src)))
	}

	res := FetchResult{Target: target, URL: rawURL}

	// numbered before the goroutine starts so call order decides which result wins
	gen, err := s.store.BeginFetch()
	if err != nil {
		res.Err = err
		out <- res
		close(out)
		return out
	}

	go func() {
		defer close(out)

		items, err := s.service.Fetch(ctx, rawURL, fetchOpts...)
		if err != nil {
			s.log.WarnObj("feed fetch failed", "fetch_error", map[string]any{
				"target": target,
				"kind":   feed.ErrorKindOf(err).String(),
				"error":  err.Error(),
			})
			res.Err = err
			out <- res
			return
		}

		res.Items = items
		res.Applied, res.Err = s.store.ApplyFetch(gen, items)
		out <- res
	}()

	return out
}

// Preview fetches the page behind item's link.
func (s *Session) Preview(ctx context.Context, item domain.FeedItem) (preview.LinkPreview, error) {
	if s.previewer == nil {
		return preview.LinkPreview{}, ErrPreviewDisabled
	}
	return s.previewer.Preview(ctx, item)
}

// Close stops the event relay, then the store, the archive and the publishers.
// Events already queued for the relay are still published.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.cancelSub()
		<-s.relayDone
		s.store.Close()
		if err := s.archive.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err)
		}
		if err := s.fanout.Close(); err != nil {
			s.log.ErrorObj("publishers close failed", "error", err)
		}
	})
}

// relay forwards favorite changes to the publishers. The archive is written by
// the store itself, so a slow publisher cannot cost it a change.
func (s *Session) relay(events <-chan favorites.Event) {
	defer close(s.relayDone)
	for evt := range events {
		switch evt.Kind {
		case favorites.EventFavoriteAdded:
			s.publish(publishers.EventFavoriteAdded, evt)
		case favorites.EventFavoriteRemoved:
			s.publish(publishers.EventFavoriteRemoved, evt)
		default:
			s.log.DebugObj("store event", "store_event", map[string]any{
				"kind":       string(evt.Kind),
				"count":      evt.Count,
				"generation": evt.Generation,
			})
		}
	}
}

func (s *Session) publish(kind string, evt favorites.Event) {
	if s.fanout.Size() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	sent, err := s.fanout.Publish(ctx, publishers.NewEvent(kind, *evt.Item, evt.At))
	if err != nil {
		s.log.ErrorObj("favorite event publish failed", "publish_error", map[string]any{
			"kind":      kind,
			"item_id":   evt.Item.ID,
			"delivered": sent,
			"error":     err.Error(),
		})
		return
	}
	s.log.DebugObj("favorite event published", "publish_meta", map[string]any{
		"kind":      kind,
		"item_id":   evt.Item.ID,
		"delivered": sent,
	})
}
