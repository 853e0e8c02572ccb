// Package kvstore persists cross-restart daemon state (the last computed
// StatusResult, shell-completion name lists) in a small embedded
// key-value file, so a freshly started daemon has something to answer
// with before its first refresh cycle completes.
package kvstore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/arc-language/omg/internal/model"
)

var (
	statusBucket = []byte("status")
	metaBucket   = []byte("meta")
)

const (
	statusKey          = "status"
	schemaVersion      = 1
	lastRefreshMetaKey = "last_refresh_unix_s"
)

// Store wraps a single bbolt file holding the status and meta buckets.
// It is owned by exactly one daemon process at a time (bbolt enforces
// this with an OS file lock on Open).
type Store struct {
	db *bbolt.DB
}

// statusEnvelope schema-versions the stored payload so a future format
// change can detect and migrate (or reject) an older on-disk record.
type statusEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// Open opens (creating if absent) the bbolt file at path and ensures the
// status and meta buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(statusBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: initializing buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// GetStatus returns the last persisted StatusResult, if any.
func (s *Store) GetStatus() (model.StatusResult, bool, error) {
	var result model.StatusResult
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(statusBucket).Get([]byte(statusKey))
		if raw == nil {
			return nil
		}
		var env statusEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decoding envelope: %w", err)
		}
		if env.SchemaVersion != schemaVersion {
			// An unrecognized schema is treated as absent rather than an
			// error, so an upgrade never crash-loops the daemon.
			return nil
		}
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return fmt.Errorf("decoding status: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return model.StatusResult{}, false, err
	}
	return result, found, nil
}

// SetStatus persists the current StatusResult, overwriting any previous
// value and stamping the meta bucket's last-refresh time.
func (s *Store) SetStatus(result model.StatusResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("kvstore: encoding status: %w", err)
	}
	env := statusEnvelope{SchemaVersion: schemaVersion, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kvstore: encoding envelope: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(statusBucket).Put([]byte(statusKey), raw); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(lastRefreshMetaKey), []byte(fmt.Sprintf("%d", time.Now().Unix())))
	})
}

// GetNames returns the name list stored under key (e.g.
// "completion:pacman", "completion:apt"), or nil if absent.
func (s *Store) GetNames(key string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &names)
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// SetNames stores names under key.
func (s *Store) SetNames(key string, names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("kvstore: encoding names: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), raw)
	})
}

// Close closes the underlying bbolt file, releasing its lock.
func (s *Store) Close() error {
	return s.db.Close()
}
