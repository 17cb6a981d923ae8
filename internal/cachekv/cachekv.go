// Package cachekv is RepoStore's persistent metadata index: a small
// transactional typed key-value store over bbolt with three top-level
// buckets (repos, commits, mergeAnalysis) plus a per-store lastUpdated
// secondary index bucket used for range-scanned stale cleanup.
package cachekv

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// SchemaVersion is the current on-disk schema version. Upgrades are
// additive only; a store never needs a destructive migration between
// versions that only add buckets or fields.
const SchemaVersion = 3

const (
	bucketRepos         = "repos"
	bucketCommits       = "commits"
	bucketMergeAnalysis = "mergeAnalysis"
	bucketMeta          = "meta"

	metaSchemaVersionKey = "schemaVersion"
)

var buckets = []string{bucketRepos, bucketCommits, bucketMergeAnalysis, bucketMeta}

func lastUpdatedBucket(store string) string { return store + ".lastUpdated" }

// Store is the open handle onto the cache database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt database at path and ensures
// every logical bucket, including the lastUpdated secondary index buckets,
// exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("opening cache store at %s", path))
	}
	s := &Store{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(lastUpdatedBucket(b))); err != nil {
				return err
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte(metaSchemaVersionKey)) == nil {
			return meta.Put([]byte(metaSchemaVersionKey), []byte(fmt.Sprintf("%d", SchemaVersion)))
		}
		return nil
	})
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores value (JSON-encoded) under key in store, and records now in
// store's lastUpdated index for range-scanned cleanup. The write is one
// bbolt transaction, so readers see either the pre- or post-state.
func (s *Store) Put(store, key string, value interface{}, now time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return ngerrors.Wrap(err, "marshaling cache entry")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(store))
		if b == nil {
			return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, fmt.Sprintf("unknown cache store %q", store))
		}
		if err := b.Put([]byte(key), payload); err != nil {
			return err
		}
		idx := tx.Bucket([]byte(lastUpdatedBucket(store)))
		if err := removeFromIndex(idx, key); err != nil {
			return err
		}
		return idx.Put(timeKey(now, key), []byte(key))
	})
}

// Get loads the value stored under key in store into out. Returns
// (false, nil) if absent.
func (s *Store) Get(store, key string, out interface{}) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(store))
		if b == nil {
			return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, fmt.Sprintf("unknown cache store %q", store))
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	if err != nil {
		return false, ngerrors.Wrap(err, fmt.Sprintf("reading %s/%s", store, key))
	}
	return found, nil
}

// Delete removes key from store and its lastUpdated index entries.
func (s *Store) Delete(store, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(store))
		if b == nil {
			return ngerrors.New(ngerrors.InvalidInput, ngerrors.UserActionable, fmt.Sprintf("unknown cache store %q", store))
		}
		if err := b.Delete([]byte(key)); err != nil {
			return err
		}
		idx := tx.Bucket([]byte(lastUpdatedBucket(store)))
		return removeFromIndex(idx, key)
	})
}

// StaleCleanup drops every entry across all stores whose lastUpdated is
// older than olderThan, in one atomic transaction.
func (s *Store) StaleCleanup(olderThan time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, store := range []string{bucketRepos, bucketCommits, bucketMergeAnalysis} {
			idx := tx.Bucket([]byte(lastUpdatedBucket(store)))
			b := tx.Bucket([]byte(store))
			c := idx.Cursor()
			cutoff := timeKey(olderThan, "")
			var staleKeys [][]byte
			for k, v := c.First(); k != nil && string(k) < string(cutoff); k, v = c.Next() {
				staleKeys = append(staleKeys, append([]byte(nil), k...))
				if err := b.Delete(v); err != nil {
					return err
				}
			}
			for _, k := range staleKeys {
				if err := idx.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// timeKey builds a lexicographically time-sortable secondary index key:
// fixed-width UTC timestamp with nanoseconds, then the primary key, so range scans by time work
// with plain byte comparison and ties are broken by key.
func timeKey(t time.Time, key string) []byte {
	return []byte(t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00") + "\x00" + key)
}

func removeFromIndex(idx *bolt.Bucket, key string) error {
	c := idx.Cursor()
	var toDelete [][]byte
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if string(v) == key {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}
	}
	for _, k := range toDelete {
		if err := idx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
