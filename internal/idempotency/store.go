// internal/idempotency/store.go
//
// Checkout is the one operation a client will blindly retry after a
// timeout, and retrying a committed checkout would sell the stock twice.
// The store maps an Idempotency-Key to the first response produced under
// that key; replays return the stored response and perform no work.
package idempotency

import (
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "checkout_responses"

// ErrNotFound is returned when no response is stored under the key.
var ErrNotFound = errors.New("idempotency key not found")

// Record is a stored response.
type Record struct {
	Key       string          `json:"key"`
	Status    int             `json:"status"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store wraps a BoltDB file holding checkout responses keyed by
// idempotency key. First write wins; later writes under the same key are
// ignored.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) the database at path and ensures the bucket
// exists.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the response stored under key.
func (s *Store) Get(key string) (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		record = &Record{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Put stores a response under its key unless one is already present, and
// reports whether this call performed the write.
func (s *Store) Put(record Record) (bool, error) {
	record.CreatedAt = time.Now().UTC()
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(record.Key)) != nil {
			return nil
		}

		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		created = true
		return bucket.Put([]byte(record.Key), data)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}
