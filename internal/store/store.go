// Package store holds the listings dataset: three collections loaded
// once per process from the persistent local store (or the bundled seed
// on first run) and written back in full after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"estate-hub/internal/kvstore"
	"estate-hub/internal/metrics"
)

// DatasetKey is the storage key holding the full listings dataset.
const DatasetKey = "real_state_database"

var (
	// ErrNotFound indicates the requested listing id is absent.
	ErrNotFound = errors.New("listing not found")
	// ErrUnknownCollection indicates an unrecognised collection name.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Collection identifies one of the three listing categories.
type Collection string

const (
	CollectionSale Collection = "sale"
	CollectionRent Collection = "rent"
	CollectionCars Collection = "cars"
)

// Collections lists every valid collection.
func Collections() []Collection {
	return []Collection{CollectionSale, CollectionRent, CollectionCars}
}

// ParseCollection maps a URL segment to a Collection.
func ParseCollection(s string) (Collection, error) {
	switch s {
	case "sale":
		return CollectionSale, nil
	case "rent":
		return CollectionRent, nil
	case "cars", "car":
		return CollectionCars, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCollection, s)
}

// Dataset mirrors the seed document layout.
type Dataset struct {
	PropertiesForSale []Record `json:"propertiesForSale"`
	PropertiesForRent []Record `json:"propertiesForRent"`
	Cars              []Record `json:"cars"`
}

func (d *Dataset) collection(c Collection) *[]Record {
	switch c {
	case CollectionSale:
		return &d.PropertiesForSale
	case CollectionRent:
		return &d.PropertiesForRent
	case CollectionCars:
		return &d.Cars
	}
	return nil
}

// Store is the in-memory cache over the persistent dataset blob.
// Construct one per process and pass it by injection.
type Store struct {
	mu      sync.Mutex
	kv      kvstore.Store
	seed    []byte
	logger  *slog.Logger
	metrics *metrics.Metrics

	data       *Dataset
	loaded     bool
	persistErr error
}

// New creates a Store on top of the persistent local store. seedData is
// the bundled dataset used when nothing has been persisted yet.
func New(kv kvstore.Store, seedData []byte, logger *slog.Logger, metricRegistry *metrics.Metrics) *Store {
	return &Store{
		kv:      kv,
		seed:    seedData,
		logger:  logger.With("component", "store"),
		metrics: metricRegistry,
	}
}

// Load populates the in-memory dataset. It is idempotent: once loaded,
// subsequent calls return immediately. Resolution order: persisted blob,
// then the bundled seed (which is persisted right away). A corrupt
// persisted blob is logged and replaced by the seed.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded && s.data != nil {
		return nil
	}

	blob, ok, err := s.kv.Get(ctx, DatasetKey)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	if ok {
		var ds Dataset
		if err := json.Unmarshal(blob, &ds); err == nil {
			s.data = &ds
			s.loaded = true
			return nil
		}
		s.logger.Error("persisted dataset is corrupt, falling back to seed", "error", err)
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("store").Inc()
		}
	}

	var ds Dataset
	if err := json.Unmarshal(s.seed, &ds); err != nil {
		return fmt.Errorf("decode seed dataset: %w", err)
	}
	s.data = &ds
	s.loaded = true
	s.persistLocked(ctx)
	s.logger.Info("dataset seeded",
		"sale", len(ds.PropertiesForSale), "rent", len(ds.PropertiesForRent), "cars", len(ds.Cars))
	return nil
}

// List returns every record in the collection sorted by id descending.
// An empty collection yields an empty slice.
func (s *Store) List(ctx context.Context, c Collection) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	col := s.data.collection(c)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	out := make([]Record, 0, len(*col))
	for _, rec := range *col {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if s.metrics != nil {
		s.metrics.ListingReads.WithLabelValues(string(c)).Inc()
	}
	return out, nil
}

// GetByID returns the matching record, or found=false when absent.
func (s *Store) GetByID(ctx context.Context, c Collection, id int64) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Record{}, false, err
	}
	col := s.data.collection(c)
	if col == nil {
		return Record{}, false, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	for _, rec := range *col {
		if rec.ID == id {
			return rec.Clone(), true, nil
		}
	}
	return Record{}, false, nil
}

// Add stores a new record under the next free id (max+1, or 1 when the
// collection is empty), prepends it so list order reflects recency, and
// persists the dataset.
func (s *Store) Add(ctx context.Context, c Collection, fields map[string]json.RawMessage) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Record{}, err
	}
	col := s.data.collection(c)
	if col == nil {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	rec := Record{ID: nextID(*col), Fields: map[string]json.RawMessage{}}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec.Fields[k] = v
	}

	*col = append([]Record{rec}, *col...)
	s.persistLocked(ctx)
	s.logger.Info("listing added", "collection", c, "id", rec.ID)
	if s.metrics != nil {
		s.metrics.ListingMutations.WithLabelValues(string(c), "add").Inc()
	}
	return rec.Clone(), nil
}

// Update shallow-merges patch over the stored record. Patch fields win,
// the id is forced back to the original. Returns ErrNotFound when absent.
func (s *Store) Update(ctx context.Context, c Collection, id int64, patch map[string]json.RawMessage) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return Record{}, err
	}
	col := s.data.collection(c)
	if col == nil {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	for i, rec := range *col {
		if rec.ID != id {
			continue
		}
		updated := rec.merged(patch)
		(*col)[i] = updated
		s.persistLocked(ctx)
		s.logger.Info("listing updated", "collection", c, "id", id)
		if s.metrics != nil {
			s.metrics.ListingMutations.WithLabelValues(string(c), "update").Inc()
		}
		return updated.Clone(), nil
	}
	return Record{}, fmt.Errorf("%w: id %d in %s", ErrNotFound, id, c)
}

// Delete removes the record if present. Deleting an absent id is a
// logged no-op; the dataset is persisted only when something was removed.
func (s *Store) Delete(ctx context.Context, c Collection, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	col := s.data.collection(c)
	if col == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	kept := (*col)[:0]
	removed := false
	for _, rec := range *col {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	*col = kept

	if !removed {
		s.logger.Warn("listing not found, nothing deleted", "collection", c, "id", id)
		return nil
	}
	s.persistLocked(ctx)
	s.logger.Info("listing deleted", "collection", c, "id", id)
	if s.metrics != nil {
		s.metrics.ListingMutations.WithLabelValues(string(c), "delete").Inc()
	}
	return nil
}

// PersistError reports whether the most recent dataset write failed. A
// failed write never rolls back the in-memory mutation; callers surface
// the divergence to the user instead.
func (s *Store) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// persistLocked serializes the full dataset and writes it to the local
// store. Write failures are reported, not propagated: the in-memory
// state stands.
func (s *Store) persistLocked(ctx context.Context) {
	blob, err := json.Marshal(s.data)
	if err == nil {
		err = s.kv.Put(ctx, DatasetKey, blob)
	}
	s.persistErr = err
	if err != nil {
		s.logger.Error("failed persisting dataset", "error", err)
		if s.metrics != nil {
			s.metrics.DatasetPersists.WithLabelValues("error").Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.DatasetPersists.WithLabelValues("ok").Inc()
	}
}

func nextID(col []Record) int64 {
	var max int64
	for _, rec := range col {
		if rec.ID > max {
			max = rec.ID
		}
	}
	return max + 1
}
