package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"ocdify-go/logcolors"
	"ocdify-go/utils"
)

const bucketName = "lyrics"

// PersistentCache wraps BoltDB with an in-memory front for fast reads.
// Values may be gzip-compressed; entries carry their own expiration.
type PersistentCache struct {
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	compressionEnabled bool
}

// Entry is a cached value with a nanosecond expiration timestamp.
// Expiration zero means the entry never expires.
type Entry struct {
	Value      string `json:"value"`
	Expiration int64  `json:"expiration"`
}

func (e Entry) expired() bool {
	return e.Expiration > 0 && time.Now().UnixNano() > e.Expiration
}

// NewPersistentCache opens (or creates) the cache database.
func NewPersistentCache(dbPath string, compressionEnabled bool) (*PersistentCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	pc := &PersistentCache{
		db:                 db,
		dbPath:             dbPath,
		compressionEnabled: compressionEnabled,
	}

	if err := pc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}

	log.Infof("%s Persistent cache initialized at %s (compression: %v)", logcolors.LogCacheInit, dbPath, compressionEnabled)
	return pc, nil
}

func (pc *PersistentCache) loadToMemory() error {
	count := 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Failed to unmarshal cache entry for key %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if entry.expired() {
				return nil
			}
			pc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}
	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogCache, count)
	return nil
}

// Get retrieves and, if needed, decompresses a cached value. Expired
// entries are treated as misses and lazily removed.
func (pc *PersistentCache) Get(key string) (string, bool) {
	raw, ok := pc.memCache.Load(key)
	if !ok {
		return "", false
	}
	entry := raw.(Entry)
	if entry.expired() {
		pc.Delete(key)
		return "", false
	}

	if pc.compressionEnabled {
		decompressed, err := utils.DecompressString(entry.Value)
		if err != nil {
			log.Errorf("%s Error decompressing value for key %s: %v", logcolors.LogCache, key, err)
			return "", false
		}
		return decompressed, true
	}
	return entry.Value, true
}

// Set stores a value in memory and on disk with the given TTL.
// ttl zero means the entry never expires.
func (pc *PersistentCache) Set(key, value string, ttl time.Duration) error {
	stored := value
	if pc.compressionEnabled {
		compressed, err := utils.CompressString(value)
		if err != nil {
			return fmt.Errorf("failed to compress cache value: %w", err)
		}
		stored = compressed
	}

	entry := Entry{Value: stored}
	if ttl > 0 {
		entry.Expiration = time.Now().Add(ttl).UnixNano()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	err = pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}

	pc.memCache.Store(key, entry)
	return nil
}

// Delete removes an entry from memory and disk.
func (pc *PersistentCache) Delete(key string) {
	pc.memCache.Delete(key)
	err := pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
	if err != nil {
		log.Warnf("%s Failed to delete key %s from disk: %v", logcolors.LogCache, key, err)
	}
}

// Keys returns every live cache key.
func (pc *PersistentCache) Keys() []string {
	var keys []string
	pc.memCache.Range(func(k, v interface{}) bool {
		if !v.(Entry).expired() {
			keys = append(keys, k.(string))
		}
		return true
	})
	return keys
}

// Len returns the number of live entries.
func (pc *PersistentCache) Len() int {
	count := 0
	pc.memCache.Range(func(_, v interface{}) bool {
		if !v.(Entry).expired() {
			count++
		}
		return true
	})
	return count
}

// Sweep removes expired entries from memory and disk. Returns the number
// of entries removed.
func (pc *PersistentCache) Sweep() int {
	var expired []string
	pc.memCache.Range(func(k, v interface{}) bool {
		if v.(Entry).expired() {
			expired = append(expired, k.(string))
		}
		return true
	})
	for _, key := range expired {
		pc.Delete(key)
	}
	if len(expired) > 0 {
		log.Infof("%s Swept %d expired entries", logcolors.LogCache, len(expired))
	}
	return len(expired)
}

// Clear drops every entry.
func (pc *PersistentCache) Clear() error {
	err := pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	pc.memCache.Range(func(k, _ interface{}) bool {
		pc.memCache.Delete(k)
		return true
	})
	log.Infof("%s Cache cleared", logcolors.LogCache)
	return nil
}

// Close closes the underlying database.
func (pc *PersistentCache) Close() error {
	return pc.db.Close()
}
