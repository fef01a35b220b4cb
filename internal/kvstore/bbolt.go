package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.etcd.io/bbolt"
)

var storageBucket = []byte("storage")

// BoltStore keeps all keys in a single bucket of a bbolt file.
type BoltStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// NewBolt opens (creating if needed) the bbolt file at path.
func NewBolt(path string, logger *slog.Logger) (*BoltStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("bbolt store path is empty")
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(storageBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create storage bucket: %w", err)
	}

	return &BoltStore{
		db:     db,
		logger: logger.With("component", "kvstore_bbolt"),
	}, nil
}

// Get returns the value stored under key.
func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(storageBucket).Get([]byte(key))
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bbolt get %s: %w", key, err)
	}
	return value, value != nil, nil
}

// Put stores value under key.
func (s *BoltStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storageBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bbolt put %s: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(storageBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bbolt delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
