package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ratneshs230/Digital-Courtroom-sub001/logger"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

var testSchema = types.Schema{
	{Name: "projects", Kind: types.KindRecords},
	{Name: "documents", Kind: types.KindRecords},
	{Name: "doc", Kind: types.KindCache},
	{Name: "doc_meta", Kind: types.KindCache},
}

func newSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()

	b := NewSQLiteBackend(&types.PrimaryStoreConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "court.db"),
	}, testSchema, logger.NewNop())

	if err := b.Open(context.Background()); err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newFlat(t *testing.T) *FlatBackend {
	t.Helper()

	b := NewFlatBackend(NewMemoryFlatStore(), testSchema, 0, logger.NewNop())
	if err := b.Open(context.Background()); err != nil {
		t.Fatalf("open flat: %v", err)
	}
	return b
}

func eachBackend(t *testing.T, fn func(t *testing.T, b types.Backend)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("flat", func(t *testing.T) { fn(t, newFlat(t)) })
}

func mustRecord(t *testing.T, id string, createdAt int64, group string) types.Record {
	t.Helper()

	r, err := types.NewRecord(id, createdAt, group, map[string]interface{}{"id": id})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return r
}

func ids(records []types.Record) string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return strings.Join(out, ",")
}

func TestBackendGetAllOrdering(t *testing.T) {
	eachBackend(t, func(t *testing.T, b types.Backend) {
		ctx := context.Background()

		for _, r := range []types.Record{
			mustRecord(t, "old", 100, ""),
			mustRecord(t, "tie-a", 200, ""),
			mustRecord(t, "tie-b", 200, ""),
			mustRecord(t, "new", 300, ""),
		} {
			if err := b.Put(ctx, "projects", r); err != nil {
				t.Fatalf("put %s: %v", r.ID, err)
			}
		}

		// Upsert keeps the original insertion position among ties.
		if err := b.Put(ctx, "projects", mustRecord(t, "tie-a", 200, "g1")); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		records, err := b.GetAll(ctx, "projects")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if got, want := ids(records), "new,tie-a,tie-b,old"; got != want {
			t.Fatalf("order = %s, want %s", got, want)
		}

		r, found, err := b.Get(ctx, "projects", "tie-a")
		if err != nil || !found {
			t.Fatalf("get: found=%v err=%v", found, err)
		}
		if r.GroupKey != "g1" {
			t.Fatalf("group key = %q, want g1", r.GroupKey)
		}

		for _, id := range []string{"zeta", "alpha", "mid", "alpha"} {
			if err := b.Put(ctx, "doc_meta", mustRecord(t, id, 500, "")); err != nil {
				t.Fatalf("put cache %s: %v", id, err)
			}
		}
		entries, err := b.GetAll(ctx, "doc_meta")
		if err != nil {
			t.Fatalf("get all cache: %v", err)
		}
		if got, want := ids(entries), "zeta,alpha,mid"; got != want {
			t.Fatalf("cache order = %s, want %s", got, want)
		}
	})
}

func TestBackendCollectionPrefixesDoNotOverlap(t *testing.T) {
	eachBackend(t, func(t *testing.T, b types.Backend) {
		ctx := context.Background()

		expiring := mustRecord(t, "meta_x", 1, "")
		expiring.ExpiresAt = 10
		if err := b.Put(ctx, "doc", expiring); err != nil {
			t.Fatalf("put: %v", err)
		}

		if _, found, _ := b.Get(ctx, "doc_meta", "x"); found {
			t.Fatal("doc entry visible through doc_meta")
		}
		if others, _ := b.GetAll(ctx, "doc_meta"); len(others) != 0 {
			t.Fatalf("doc_meta holds %d entries, want 0", len(others))
		}
		if own, _ := b.GetAll(ctx, "doc"); ids(own) != "meta_x" {
			t.Fatalf("doc entries = %s, want meta_x", ids(own))
		}

		removed, err := b.PurgeExpired(ctx, "doc", 10)
		if err != nil || removed != 1 {
			t.Fatalf("purge removed=%d err=%v, want 1", removed, err)
		}
	})
}

func TestBackendIndexesAndDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, b types.Backend) {
		ctx := context.Background()

		a := mustRecord(t, "a", 1, "case-1")
		c := mustRecord(t, "c", 2, "case-1")
		d := mustRecord(t, "d", 3, "case-2")
		for _, r := range []types.Record{a, c, d} {
			if err := b.Put(ctx, "documents", r); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		byGroup, err := b.GetByIndex(ctx, "documents", types.IndexGroupKey, "case-1")
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		if got := ids(byGroup); got != "c,a" {
			t.Fatalf("group index = %s, want c,a", got)
		}

		if _, err := b.GetByIndex(ctx, "documents", "payload", "x"); !types.IsError(err, types.ErrInvalidParameter) {
			t.Fatalf("expected ErrInvalidParameter, got %v", err)
		}

		if err := b.Delete(ctx, "documents", "a"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, found, _ := b.Get(ctx, "documents", "a"); found {
			t.Fatal("deleted record still present")
		}
		if err := b.Delete(ctx, "documents", "missing"); err != nil {
			t.Fatalf("delete missing: %v", err)
		}

		if _, err := b.GetAll(ctx, "nope"); !types.IsError(err, types.ErrCollectionUnknown) {
			t.Fatalf("expected ErrCollectionUnknown, got %v", err)
		}
	})
}

func TestBackendCacheCollection(t *testing.T) {
	eachBackend(t, func(t *testing.T, b types.Backend) {
		ctx := context.Background()

		live := types.CacheEntry{Key: "k1", Value: []byte(`{"foo":1}`), CreatedAt: 10, ExpiresAt: 1000, ContentHash: "deadbeef"}
		stale := types.CacheEntry{Key: "k2", Value: []byte(`{"foo":2}`), CreatedAt: 5, ExpiresAt: 50, ContentHash: "deadbeef"}
		other := types.CacheEntry{Key: "k1", Value: []byte(`{"bar":1}`), CreatedAt: 10, ExpiresAt: 1000}

		for _, e := range []types.CacheEntry{live, stale} {
			if err := b.Put(ctx, "doc", e.Record()); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		if err := b.Put(ctx, "doc_meta", other.Record()); err != nil {
			t.Fatalf("put doc_meta: %v", err)
		}

		all, err := b.GetAll(ctx, "doc")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if got := ids(all); got != "k1,k2" {
			t.Fatalf("doc entries = %s, want k1,k2", got)
		}

		byHash, err := b.GetByIndex(ctx, "doc", types.IndexContentHash, "deadbeef")
		if err != nil || len(byHash) != 2 {
			t.Fatalf("hash index = %v, err %v", ids(byHash), err)
		}

		removed, err := b.PurgeExpired(ctx, "doc", 50)
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}

		r, found, err := b.Get(ctx, "doc", "k1")
		if err != nil || !found {
			t.Fatalf("get k1: found=%v err=%v", found, err)
		}
		if string(types.CacheEntryFromRecord(r).Value) != `{"foo":1}` {
			t.Fatalf("value = %s", r.Payload)
		}

		metaEntries, _ := b.GetAll(ctx, "doc_meta")
		if len(metaEntries) != 1 {
			t.Fatalf("doc_meta entries = %d, want 1", len(metaEntries))
		}
	})
}

func TestBackendReplaceAllAndMeta(t *testing.T) {
	eachBackend(t, func(t *testing.T, b types.Backend) {
		ctx := context.Background()

		_ = b.Put(ctx, "projects", mustRecord(t, "gone", 1, ""))

		err := b.ReplaceAll(ctx, "projects", []types.Record{
			mustRecord(t, "x", 1, ""),
			mustRecord(t, "y", 2, ""),
		})
		if err != nil {
			t.Fatalf("replace all: %v", err)
		}

		records, _ := b.GetAll(ctx, "projects")
		if got := ids(records); got != "y,x" {
			t.Fatalf("records = %s, want y,x", got)
		}

		if _, found, err := b.GetMeta(ctx, MetadataKey); err != nil || found {
			t.Fatalf("fresh meta: found=%v err=%v", found, err)
		}
		if err := b.SetMeta(ctx, MetadataKey, []byte(`{"migrated":true}`)); err != nil {
			t.Fatalf("set meta: %v", err)
		}
		value, found, err := b.GetMeta(ctx, MetadataKey)
		if err != nil || !found || string(value) != `{"migrated":true}` {
			t.Fatalf("meta = %s found=%v err=%v", value, found, err)
		}
	})
}

func TestSQLiteOpenFailures(t *testing.T) {
	disabled := NewSQLiteBackend(&types.PrimaryStoreConfig{Enabled: false, Path: "x.db"}, testSchema, logger.NewNop())
	if err := disabled.Open(context.Background()); !types.IsError(err, types.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}

	closed := newSQLite(t)
	_ = closed.Close()
	if err := closed.Put(context.Background(), "projects", mustRecord(t, "a", 1, "")); !types.IsError(err, types.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable after close, got %v", err)
	}
}

func TestFlatBackendCompressesLargeValues(t *testing.T) {
	store := NewMemoryFlatStore()
	b := NewFlatBackend(store, testSchema, 64, logger.NewNop())
	ctx := context.Background()

	payload := map[string]string{"text": strings.Repeat("exhibit ", 200)}
	r, _ := types.NewRecord("big", 1, "", payload)
	if err := b.Put(ctx, "projects", r); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, found, _ := store.Get(ctx, "store_projects")
	if !found {
		t.Fatal("collection key missing")
	}
	if raw[0] != 0x1b {
		t.Fatal("expected compressed value")
	}

	got, found, err := b.Get(ctx, "projects", "big")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}

	var decoded map[string]string
	if err := got.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["text"] != payload["text"] {
		t.Fatal("payload mismatch after compression round trip")
	}
}

func TestFlatBackendKeyLayout(t *testing.T) {
	store := NewMemoryFlatStore()
	b := NewFlatBackend(store, testSchema, 0, logger.NewNop())
	ctx := context.Background()

	_ = b.Put(ctx, "projects", mustRecord(t, "p1", 1, ""))
	_ = b.Put(ctx, "doc_meta", types.CacheEntry{Key: "abc", CreatedAt: 1, ExpiresAt: 2}.Record())
	_ = b.SetMeta(ctx, MetadataKey, []byte(`{}`))

	keys, _ := store.Keys(ctx, "")
	if got, want := strings.Join(keys, " "), "cache_doc_meta:abc meta_storage_metadata seq_doc_meta store_projects"; got != want {
		t.Fatalf("keys = %q, want %q", got, want)
	}
}

func TestFlatBackendRejectsUnsafeCollectionNames(t *testing.T) {
	schema := types.Schema{{Name: "doc:meta", Kind: types.KindCache}}
	b := NewFlatBackend(NewMemoryFlatStore(), schema, 0, logger.NewNop())

	if err := b.Open(context.Background()); !types.IsError(err, types.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestCloverFlatStore(t *testing.T) {
	store := NewCloverFlatStore(filepath.Join(t.TempDir(), "fallback"), logger.NewNop())
	defer store.Close()
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if err := store.Set(ctx, "cache_doc_a", []byte{0x1b, 0x00, 0xff}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "cache_doc_a", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = store.Set(ctx, "cache_doc_b", []byte("b"))
	_ = store.Set(ctx, "store_projects", []byte("[]"))

	value, found, err := store.Get(ctx, "cache_doc_a")
	if err != nil || !found || string(value) != "v2" {
		t.Fatalf("get = %q found=%v err=%v", value, found, err)
	}

	keys, err := store.Keys(ctx, "cache_doc_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if got := strings.Join(keys, ","); got != "cache_doc_a,cache_doc_b" {
		t.Fatalf("keys = %s", got)
	}

	if err := store.Remove(ctx, "cache_doc_a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, _ := store.Get(ctx, "cache_doc_a"); found {
		t.Fatal("removed key still present")
	}
}

func TestNewFlatStoreUnknownDriver(t *testing.T) {
	_, err := NewFlatStore(context.Background(), &types.FlatStoreConfig{Driver: "etcd"}, logger.NewNop())
	if !types.IsError(err, types.ErrFlatStoreTypeUnknown) {
		t.Fatalf("expected ErrFlatStoreTypeUnknown, got %v", err)
	}
}
