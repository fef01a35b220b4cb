package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"estate-hub/internal/kvstore"
)

var emptySeed = []byte(`{"propertiesForSale": [], "propertiesForRent": [], "cars": []}`)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, kv kvstore.Store, seed []byte) *Store {
	t.Helper()
	s := New(kv, seed, testLogger(), nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func rawFields(pairs map[string]string) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	for k, v := range pairs {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	ctx := context.Background()

	first, err := s.Add(ctx, CollectionSale, rawFields(map[string]string{"title": `"X"`}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("expected id 1, got %d", first.ID)
	}

	second, err := s.Add(ctx, CollectionSale, rawFields(map[string]string{"title": `"Y"`}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected id 2, got %d", second.ID)
	}

	records, err := s.List(ctx, CollectionSale)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].ID != 2 || records[1].ID != 1 {
		t.Fatalf("expected newest-first order, got %+v", records)
	}
}

func TestAddThenGetByIDRoundTrips(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	ctx := context.Background()

	in := rawFields(map[string]string{
		"title":    `{"en": "Villa", "ar": "فيلا"}`,
		"price":    `"450000"`,
		"bedrooms": `4`,
	})
	added, err := s.Add(ctx, CollectionSale, in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got, found, err := s.GetByID(ctx, CollectionSale, added.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if got.ID != added.ID {
		t.Fatalf("expected id %d, got %d", added.ID, got.ID)
	}
	for k, v := range in {
		if string(got.Fields[k]) != string(v) {
			t.Fatalf("field %s: expected %s, got %s", k, v, got.Fields[k])
		}
	}
}

func TestGetByIDMissing(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)

	_, found, err := s.GetByID(context.Background(), CollectionCars, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected not-found")
	}
}

func TestListSortsByIDDescending(t *testing.T) {
	seed := []byte(`{
		"propertiesForSale": [],
		"propertiesForRent": [],
		"cars": [
			{"id": 2, "title": "B"},
			{"id": 7, "title": "C"},
			{"id": 1, "title": "A"}
		]
	}`)
	s := newTestStore(t, kvstore.NewMemory(), seed)

	records, err := s.List(context.Background(), CollectionCars)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{7, 2, 1}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("position %d: expected id %d, got %d", i, id, records[i].ID)
		}
	}
}

func TestListEmptyCollection(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	records, err := s.List(context.Background(), CollectionRent)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty slice, got %d records", len(records))
	}
}

func TestUpdateMergesAndPreservesID(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	ctx := context.Background()

	added, err := s.Add(ctx, CollectionRent, rawFields(map[string]string{
		"title": `"Studio"`,
		"price": `"550"`,
	}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	updated, err := s.Update(ctx, CollectionRent, added.ID, rawFields(map[string]string{
		"id":    `999`,
		"price": `"600"`,
	}))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != added.ID {
		t.Fatalf("id changed: expected %d, got %d", added.ID, updated.ID)
	}
	if string(updated.Fields["price"]) != `"600"` {
		t.Fatalf("patch did not win: %s", updated.Fields["price"])
	}
	if string(updated.Fields["title"]) != `"Studio"` {
		t.Fatalf("unpatched field lost: %s", updated.Fields["title"])
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	_, err := s.Update(context.Background(), CollectionSale, 42, rawFields(map[string]string{"title": `"Z"`}))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemory(), emptySeed)
	ctx := context.Background()

	added, err := s.Add(ctx, CollectionCars, rawFields(map[string]string{"title": `"Corolla"`}))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Delete(ctx, CollectionCars, added.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := s.GetByID(ctx, CollectionCars, added.ID); found {
		t.Fatal("expected record to be gone")
	}
	// Second delete is a no-op, not an error.
	if err := s.Delete(ctx, CollectionCars, added.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLoadPrefersPersistedDataset(t *testing.T) {
	kv := kvstore.NewMemory()
	ctx := context.Background()

	persisted := []byte(`{"propertiesForSale": [{"id": 5, "title": "Persisted"}], "propertiesForRent": [], "cars": []}`)
	if err := kv.Put(ctx, DatasetKey, persisted); err != nil {
		t.Fatalf("put: %v", err)
	}

	s := newTestStore(t, kv, emptySeed)
	records, err := s.List(ctx, CollectionSale)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != 5 {
		t.Fatalf("expected persisted record, got %+v", records)
	}
}

func TestLoadSeedsAndPersistsOnFirstRun(t *testing.T) {
	kv := kvstore.NewMemory()
	ctx := context.Background()

	seed := []byte(`{"propertiesForSale": [{"id": 1, "title": "Seeded"}], "propertiesForRent": [], "cars": []}`)
	s := newTestStore(t, kv, seed)

	records, err := s.List(ctx, CollectionSale)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != 1 {
		t.Fatalf("expected seeded record, got %+v", records)
	}

	// The seed must have been written back to the local store.
	blob, ok, err := kv.Get(ctx, DatasetKey)
	if err != nil || !ok {
		t.Fatalf("expected persisted dataset, ok=%v err=%v", ok, err)
	}
	var ds Dataset
	if err := json.Unmarshal(blob, &ds); err != nil {
		t.Fatalf("persisted dataset unreadable: %v", err)
	}
	if len(ds.PropertiesForSale) != 1 {
		t.Fatalf("unexpected persisted dataset: %+v", ds)
	}
}

func TestLoadRecoversFromCorruptDataset(t *testing.T) {
	kv := kvstore.NewMemory()
	ctx := context.Background()
	if err := kv.Put(ctx, DatasetKey, []byte(`{not json`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	seed := []byte(`{"propertiesForSale": [], "propertiesForRent": [], "cars": [{"id": 3, "title": "Seed"}]}`)
	s := newTestStore(t, kv, seed)

	records, err := s.List(ctx, CollectionCars)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != 3 {
		t.Fatalf("expected seed fallback, got %+v", records)
	}
}

// failingPutStore rejects writes after a configurable number of
// successes, simulating a full storage substrate.
type failingPutStore struct {
	*kvstore.MemoryStore
	allowed int
}

func (f *failingPutStore) Put(ctx context.Context, key string, value []byte) error {
	if f.allowed <= 0 {
		return errors.New("quota exceeded")
	}
	f.allowed--
	return f.MemoryStore.Put(ctx, key, value)
}

func TestFailedPersistKeepsInMemoryMutation(t *testing.T) {
	kv := &failingPutStore{MemoryStore: kvstore.NewMemory(), allowed: 0}
	s := newTestStore(t, kv, emptySeed)
	ctx := context.Background()

	added, err := s.Add(ctx, CollectionSale, rawFields(map[string]string{"title": `"X"`}))
	if err != nil {
		t.Fatalf("add should succeed despite persist failure: %v", err)
	}
	if s.PersistError() == nil {
		t.Fatal("expected a persist error to be reported")
	}

	// The mutation is still visible in memory for this process.
	got, found, err := s.GetByID(ctx, CollectionSale, added.ID)
	if err != nil || !found {
		t.Fatalf("expected in-memory record, found=%v err=%v", found, err)
	}
	if got.ID != added.ID {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestParseCollection(t *testing.T) {
	for input, want := range map[string]Collection{
		"sale": CollectionSale,
		"rent": CollectionRent,
		"cars": CollectionCars,
		"car":  CollectionCars,
	} {
		got, err := ParseCollection(input)
		if err != nil || got != want {
			t.Fatalf("ParseCollection(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseCollection("boats"); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}
