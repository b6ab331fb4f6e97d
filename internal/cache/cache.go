package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ogero/movie-catalog/internal/common"
)

// Cache is a badger backed key/value store holding JSON encoded lookup results.
type Cache struct {
	db *badger.DB
}

// Open opens the cache at path. An empty path keeps everything in memory.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(0).
		WithLogger(&l{})
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts = opts.WithValueLogFileSize(1024 * 1024 * 100)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to badger.Open: %w", err)
	}

	return &Cache{db: db}, nil
}

// Memoize retrieves a cached value for the specified cacheKey.
// If the value is present it is returned along with hit set to true. Otherwise fn is called
// to compute the value, which is then stored in the cache with the specified expiration and returned.
// Errors returned by fn are passed through untouched and never cached. A value that cannot be stored
// is still returned.
func Memoize[V any](c *Cache, cacheKey string, ttl time.Duration, fn func() (*V, error)) (value *V, hit bool, err error) {

	value = new(V)

	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, value)
		})
		if err != nil {
			return fmt.Errorf("failed to json.Unmarshal: %w", err)
		}

		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	} else if err == nil {
		return value, true, nil
	}

	value, err = fn()
	if err != nil {
		return nil, false, err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		valueJSONBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to json.Marshal: %w", err)
		}
		entry := badger.NewEntry([]byte(cacheKey), valueJSONBytes).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		common.Log.Warn("Failed to store on cache", "key", cacheKey, "err", err)
	}

	return value, false, nil
}

// Close closes the cache DB. It's crucial to call it to ensure all the pending updates make their way to disk. Calling Close multiple times would still only close the DB once.
func (c *Cache) Close() error {
	return c.db.Close()
}

// l routes badger's internal logging to the app logger.
type l struct{}

func (l *l) Errorf(s string, i ...interface{}) {
	common.Log.Error(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Warningf(s string, i ...interface{}) {
	common.Log.Warn(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Infof(s string, i ...interface{}) {
	common.Log.Debug(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Debugf(s string, i ...interface{}) {
	common.Log.Debug(fmt.Sprintf(s, i...), "component", "badger")
}
