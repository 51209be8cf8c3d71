package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
)

const (
	favoritesBucket = "favorites"
	seqPrefixBytes  = 8
)

// boltStore implements a Store backed by BoltDB. Each value is an 8-byte
// big-endian insertion sequence followed by the JSON-encoded item.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(favoritesBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveFavorite stores item under its ID. Re-saving keeps the original position.
func (b *boltStore) SaveFavorite(item domain.FeedItem) error {
	if b == nil || b.db == nil {
		return nil
	}
	if item.ID == "" {
		return fmt.Errorf("favorite has empty id")
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal favorite: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(favoritesBucket))
		if bucket == nil {
			return fmt.Errorf("favorites bucket missing")
		}

		key := []byte(item.ID)
		seq, ok := decodeSeq(bucket.Get(key))
		if !ok {
			next, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			seq = next
		}
		return bucket.Put(key, encodeRecord(seq, payload))
	})
}

// DeleteFavorite removes the favorite with the given ID, if present.
func (b *boltStore) DeleteFavorite(id string) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(favoritesBucket))
		if bucket == nil {
			return fmt.Errorf("favorites bucket missing")
		}
		return bucket.Delete([]byte(id))
	})
}

// LoadFavorites returns all stored favorites in the order they were first saved.
// Undecodable records are removed.
func (b *boltStore) LoadFavorites() ([]domain.FeedItem, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	type record struct {
		seq  uint64
		item domain.FeedItem
	}
	var records []record

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(favoritesBucket))
		if bucket == nil {
			return fmt.Errorf("favorites bucket missing")
		}

		var corrupt [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			seq, ok := decodeSeq(v)
			var item domain.FeedItem
			if ok {
				ok = json.Unmarshal(v[seqPrefixBytes:], &item) == nil && item.ID == string(k)
			}
			if !ok {
				corrupt = append(corrupt, append([]byte(nil), k...))
				continue
			}
			item.IsFavorite = true
			records = append(records, record{seq: seq, item: item})
		}

		for _, k := range corrupt {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("delete corrupt favorite: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	out := make([]domain.FeedItem, len(records))
	for i, r := range records {
		out[i] = r.item
	}
	return out, nil
}

func encodeRecord(seq uint64, payload []byte) []byte {
	buf := make([]byte, seqPrefixBytes+len(payload))
	binary.BigEndian.PutUint64(buf, seq)
	copy(buf[seqPrefixBytes:], payload)
	return buf
}

// decodeSeq reads the insertion sequence from a stored value.
func decodeSeq(value []byte) (uint64, bool) {
	if len(value) <= seqPrefixBytes {
		return 0, false
	}
	seq := binary.BigEndian.Uint64(value[:seqPrefixBytes])
	if seq == 0 {
		return 0, false
	}
	return seq, true
}
