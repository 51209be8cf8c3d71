package favorites

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/internal/logger"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("favorites store closed")
	// ErrIndexOutOfRange reports an index outside the list it addresses.
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// Store owns the working list and the favorites list. All state lives on one
// goroutine; methods send commands to it and wait for them to run, so callers on
// any goroutine observe a serial history.
type Store struct {
	cmds      chan func(*state)
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Archive mirrors favorites membership. Calls run on the store goroutine in the
// order the changes happen, so the archive never misses one.
type Archive interface {
	SaveFavorite(item domain.FeedItem) error
	DeleteFavorite(id string) error
}

// Option configures a Store.
type Option func(*state)

// WithArchive writes every favorite added or removed through a.
func WithArchive(a Archive) Option {
	return func(st *state) { st.archive = a }
}

type state struct {
	archive    Archive
	items      []domain.FeedItem
	favorites  []domain.FeedItem
	generation uint64
	subs       map[uint64]chan Event
	nextSubID  uint64
	log        logger.Logger
	now        func() time.Time
}

// NewStore starts the store goroutine. Call Close to stop it.
func NewStore(log logger.Logger, opts ...Option) *Store {
	s := &Store{
		cmds: make(chan func(*state)),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	st := &state{
		subs: make(map[uint64]chan Event),
		log:  logger.Ensure(log),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	go s.run(st)
	return s
}

func (s *Store) run(st *state) {
	defer close(s.done)
	for {
		select {
		case fn := <-s.cmds:
			fn(st)
		case <-s.quit:
			for id, ch := range st.subs {
				close(ch)
				delete(st.subs, id)
			}
			return
		}
	}
}

// do runs fn on the store goroutine and waits for it to finish.
func (s *Store) do(fn func(*state)) error {
	if s == nil {
		return ErrClosed
	}
	finished := make(chan struct{})
	cmd := func(st *state) {
		defer close(finished)
		fn(st)
	}
	select {
	case s.cmds <- cmd:
	case <-s.quit:
		return ErrClosed
	}
	<-finished
	return nil
}

// Close stops the store goroutine and closes all subscriber channels.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// ReplaceItems sets the working list wholesale. Favorites are not touched and
// favorite flags are not carried over to the new items.
func (s *Store) ReplaceItems(items []domain.FeedItem) error {
	return s.do(func(st *state) {
		st.replace(items)
	})
}

// ToggleFavorite flips membership of item.ID in favorites and mirrors the new
// state onto the working-list copy, if any. It returns the new membership.
func (s *Store) ToggleFavorite(item domain.FeedItem) (bool, error) {
	var favorited bool
	err := s.do(func(st *state) {
		favorited = st.toggle(item)
	})
	return favorited, err
}

// RemoveItem removes one entry from the working list. Favorites are not touched.
func (s *Store) RemoveItem(index int) error {
	return s.RemoveItems([]int{index})
}

// RemoveItems removes the entries at indices from the working list. Duplicate
// indices collapse; any out-of-range index aborts without mutation.
func (s *Store) RemoveItems(indices []int) error {
	var opErr error
	err := s.do(func(st *state) {
		opErr = st.remove(indices)
	})
	if err != nil {
		return err
	}
	return opErr
}

// RestoreFavorites seeds favorites (e.g. from an archive) without emitting events
// or writing back to the archive. Items already present by ID are skipped.
func (s *Store) RestoreFavorites(items []domain.FeedItem) error {
	return s.do(func(st *state) {
		for _, it := range items {
			if st.favoriteIndex(it.ID) >= 0 {
				continue
			}
			it.IsFavorite = true
			st.favorites = append(st.favorites, it)
			if idx := st.itemIndex(it.ID); idx >= 0 {
				st.items[idx].IsFavorite = true
			}
		}
	})
}

// BeginFetch issues a new fetch generation. Results from earlier generations are
// discarded by ApplyFetch.
func (s *Store) BeginFetch() (uint64, error) {
	var gen uint64
	err := s.do(func(st *state) {
		st.generation++
		gen = st.generation
	})
	return gen, err
}

// ApplyFetch replaces the working list with items if generation is still the
// latest issued one. It reports whether the items were applied.
func (s *Store) ApplyFetch(generation uint64, items []domain.FeedItem) (bool, error) {
	var applied bool
	err := s.do(func(st *state) {
		if generation != st.generation {
			st.log.InfoObj("stale fetch result discarded", "fetch_generation", map[string]any{
				"generation": generation,
				"latest":     st.generation,
				"items":      len(items),
			})
			st.emit(Event{Kind: EventFetchDiscarded, Count: len(items), Generation: generation})
			return
		}
		st.replace(items)
		applied = true
	})
	return applied, err
}

// Snapshot returns copies of both lists taken at the same point in the history.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func(st *state) {
		snap = Snapshot{
			Items:      cloneItems(st.items),
			Favorites:  cloneItems(st.favorites),
			Generation: st.generation,
		}
	})
	return snap, err
}

// Items returns a copy of the working list.
func (s *Store) Items() ([]domain.FeedItem, error) {
	snap, err := s.Snapshot()
	return snap.Items, err
}

// Favorites returns a copy of the favorites list in favorited order.
func (s *Store) Favorites() ([]domain.FeedItem, error) {
	snap, err := s.Snapshot()
	return snap.Favorites, err
}

// Item returns the working-list entry at index.
func (s *Store) Item(index int) (domain.FeedItem, error) {
	var (
		item  domain.FeedItem
		opErr error
	)
	err := s.do(func(st *state) {
		if index < 0 || index >= len(st.items) {
			opErr = fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(st.items))
			return
		}
		item = st.items[index]
	})
	if err != nil {
		return domain.FeedItem{}, err
	}
	return item, opErr
}

// Favorite returns the favorites entry at index.
func (s *Store) Favorite(index int) (domain.FeedItem, error) {
	var (
		item  domain.FeedItem
		opErr error
	)
	err := s.do(func(st *state) {
		if index < 0 || index >= len(st.favorites) {
			opErr = fmt.Errorf("%w: %d (have %d favorites)", ErrIndexOutOfRange, index, len(st.favorites))
			return
		}
		item = st.favorites[index]
	})
	if err != nil {
		return domain.FeedItem{}, err
	}
	return item, opErr
}

// Subscribe registers a change listener with the given channel buffer. Delivery
// never blocks the store: when the buffer is full the event is dropped and logged.
// The returned cancel func unregisters and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)
	var id uint64
	if err := s.do(func(st *state) {
		st.nextSubID++
		id = st.nextSubID
		st.subs[id] = ch
	}); err != nil {
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = s.do(func(st *state) {
				if sub, ok := st.subs[id]; ok {
					delete(st.subs, id)
					close(sub)
				}
			})
		})
	}
	return ch, cancel
}

func (st *state) replace(items []domain.FeedItem) {
	st.items = cloneItems(items)
	st.emit(Event{Kind: EventItemsReplaced, Count: len(st.items), Generation: st.generation})
}

func (st *state) toggle(item domain.FeedItem) bool {
	favorited := false
	if idx := st.favoriteIndex(item.ID); idx >= 0 {
		removed := st.favorites[idx]
		st.favorites = append(st.favorites[:idx], st.favorites[idx+1:]...)
		removed.IsFavorite = false
		if st.archive != nil {
			st.archived(EventFavoriteRemoved, removed.ID, st.archive.DeleteFavorite(removed.ID))
		}
		st.emit(Event{Kind: EventFavoriteRemoved, Item: &removed})
	} else {
		added := item
		added.IsFavorite = true
		st.favorites = append(st.favorites, added)
		favorited = true
		if st.archive != nil {
			st.archived(EventFavoriteAdded, added.ID, st.archive.SaveFavorite(added))
		}
		st.emit(Event{Kind: EventFavoriteAdded, Item: &added})
	}

	if idx := st.itemIndex(item.ID); idx >= 0 {
		st.items[idx].IsFavorite = favorited
	}
	return favorited
}

func (st *state) remove(indices []int) error {
	if len(indices) == 0 {
		return nil
	}

	drop := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(st.items) {
			return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, idx, len(st.items))
		}
		drop[idx] = struct{}{}
	}

	ordered := make([]int, 0, len(drop))
	for idx := range drop {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)

	kept := make([]domain.FeedItem, 0, len(st.items)-len(ordered))
	next := 0
	for i, it := range st.items {
		if next < len(ordered) && ordered[next] == i {
			next++
			continue
		}
		kept = append(kept, it)
	}
	st.items = kept
	st.emit(Event{Kind: EventItemsRemoved, Count: len(ordered), Generation: st.generation})
	return nil
}

// archived logs a failed archive write. The in-memory change stands.
func (st *state) archived(kind EventKind, id string, err error) {
	if err == nil {
		return
	}
	st.log.ErrorObj("favorite archive update failed", "storage_error", map[string]any{
		"kind":    string(kind),
		"item_id": id,
		"error":   err.Error(),
	})
}

func (st *state) emit(evt Event) {
	evt.At = st.now()
	for id, ch := range st.subs {
		select {
		case ch <- evt:
		default:
			st.log.WarnObj("store event dropped", "subscriber_meta", map[string]any{
				"subscriber_id": id,
				"event":         string(evt.Kind),
			})
		}
	}
}

func (st *state) favoriteIndex(id string) int {
	for i := range st.favorites {
		if st.favorites[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *state) itemIndex(id string) int {
	for i := range st.items {
		if st.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.FeedItem) []domain.FeedItem {
	out := make([]domain.FeedItem, len(items))
	copy(out, items)
	return out
}
