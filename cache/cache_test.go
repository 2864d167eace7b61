package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/fingerprint"
	"github.com/ratneshs230/Digital-Courtroom-sub001/logger"
	"github.com/ratneshs230/Digital-Courtroom-sub001/storage"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

var schema = types.Schema{
	{Name: "projects", Kind: types.KindRecords},
	{Name: "doc_meta", Kind: types.KindCache},
	{Name: "api_responses", Kind: types.KindCache},
}

type fakeClock struct {
	ms atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.ms.Store(1700000000000)
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.UnixMilli(c.ms.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.ms.Add(d.Milliseconds())
}

func newTestCache(t *testing.T) (*Cache, *storage.Facade, *fakeClock) {
	t.Helper()

	log := logger.NewNop()
	primary := storage.NewFlatBackend(storage.NewMemoryFlatStore(), schema, 0, log)
	fallback := storage.NewFlatBackend(storage.NewMemoryFlatStore(), schema, 0, log)
	facade := storage.NewFacade(context.Background(), primary, fallback, log, time.Second)

	hasher, err := fingerprint.New(&types.HashConfig{Algorithm: fingerprint.AlgorithmSHA256}, log)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	clock := newFakeClock()
	c := New(facade, hasher, &types.CacheConfig{}, log,
		WithClock(clock.Now),
		WithCollections("doc_meta", "api_responses"))
	return c, facade, clock
}

func TestSetThenGetUntilExpiry(t *testing.T) {
	ctx := context.Background()
	c, facade, clock := newTestCache(t)

	if err := c.Set(ctx, "doc_meta", "doc_meta_abc", map[string]int{"foo": 1}, time.Second, ""); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok := c.Get(ctx, "doc_meta", "doc_meta_abc")
	if !ok || string(value) != `{"foo":1}` {
		t.Fatalf("get = %s, %v", value, ok)
	}

	clock.Advance(1100 * time.Millisecond)

	if _, ok := c.Get(ctx, "doc_meta", "doc_meta_abc"); ok {
		t.Fatal("entry still visible after ttl")
	}

	entries, err := c.Entries(ctx, "doc_meta")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}

	if _, found, _ := facade.GetByID(ctx, "doc_meta", "doc_meta_abc"); found {
		t.Fatal("expired entry was not lazily deleted")
	}
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t)

	_ = c.Set(ctx, "doc_meta", "k", "v", time.Second, "")

	clock.Advance(999 * time.Millisecond)
	if _, ok := c.Get(ctx, "doc_meta", "k"); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get(ctx, "doc_meta", "k"); ok {
		t.Fatal("entry visible at now == expiresAt")
	}
}

func TestSetOverwritesAndDefaultsTTL(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t)

	_ = c.Set(ctx, "doc_meta", "k", "first", 0, "")
	_ = c.Set(ctx, "doc_meta", "k", "second", 0, "")

	value, ok := c.Get(ctx, "doc_meta", "k")
	if !ok || string(value) != `"second"` {
		t.Fatalf("get = %s, %v", value, ok)
	}

	entries, _ := c.Entries(ctx, "doc_meta")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if ttl := entries[0].ExpiresAt - entries[0].CreatedAt; ttl != DefaultTTL.Milliseconds() {
		t.Fatalf("ttl = %dms, want %dms", ttl, DefaultTTL.Milliseconds())
	}

	clock.Advance(DefaultTTL)
	if _, ok := c.Get(ctx, "doc_meta", "k"); ok {
		t.Fatal("entry outlived the default ttl")
	}
}

func TestGetByHash(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t)

	if _, ok := c.GetByHash(ctx, "api_responses", "deadbeef"); ok {
		t.Fatal("hit on empty cache")
	}

	_ = c.Set(ctx, "api_responses", "resp_1", map[string]string{"ruling": "granted"}, time.Minute, "deadbeef")

	value, ok := c.GetByHash(ctx, "api_responses", "deadbeef")
	if !ok || string(value) != `{"ruling":"granted"}` {
		t.Fatalf("get by hash = %s, %v", value, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.GetByHash(ctx, "api_responses", "deadbeef"); ok {
		t.Fatal("expired entry returned by hash")
	}
}

func TestGetByHashSkipsExpiredDuplicates(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t)

	_ = c.Set(ctx, "api_responses", "short", "old", time.Second, "cafe")
	_ = c.Set(ctx, "api_responses", "long", "new", time.Hour, "cafe")

	clock.Advance(2 * time.Second)

	value, ok := c.GetByHash(ctx, "api_responses", "cafe")
	if !ok || string(value) != `"new"` {
		t.Fatalf("get by hash = %s, %v", value, ok)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	c, facade, clock := newTestCache(t)

	_ = c.Set(ctx, "doc_meta", "a", 1, time.Second, "")
	_ = c.Set(ctx, "doc_meta", "b", 2, time.Hour, "")
	_ = c.Set(ctx, "api_responses", "c", 3, time.Second, "")

	clock.Advance(time.Second)

	removed, err := c.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	records, _ := facade.GetAll(ctx, "doc_meta")
	if len(records) != 1 || records[0].ID != "b" {
		t.Fatalf("remaining = %+v", records)
	}

	if _, err := c.Sweep(ctx, "missing"); !types.IsError(err, types.ErrCollectionUnknown) {
		t.Fatalf("expected ErrCollectionUnknown, got %v", err)
	}
}

func TestKey(t *testing.T) {
	c, _, _ := newTestCache(t)

	key := c.Key("doc_meta_", "case-42", "exhibit-a")
	if !strings.HasPrefix(key, "doc_meta_") {
		t.Fatalf("key = %s", key)
	}
	if len(key) != len("doc_meta_")+DefaultKeyLength {
		t.Fatalf("key length = %d", len(key))
	}
	if key != c.Key("doc_meta_", "case-42", "exhibit-a") {
		t.Fatal("key derivation is not deterministic")
	}
	if key == c.Key("doc_meta_", "case-42", "exhibit-b") {
		t.Fatal("different parts produced the same key")
	}
}

func TestTypedHelpers(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)

	type summary struct {
		Title string `json:"title"`
		Pages int    `json:"pages"`
	}

	want := summary{Title: "Affidavit", Pages: 3}
	if err := Store(ctx, c, "doc_meta", "s1", want, time.Minute, "h1"); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, ok := Load[summary](ctx, c, "doc_meta", "s1")
	if !ok || got != want {
		t.Fatalf("load = %+v, %v", got, ok)
	}

	byHash, ok := LoadByHash[summary](ctx, c, "doc_meta", "h1")
	if !ok || byHash != want {
		t.Fatalf("load by hash = %+v, %v", byHash, ok)
	}

	if _, ok := Load[summary](ctx, c, "doc_meta", "absent"); ok {
		t.Fatal("hit for absent key")
	}
}

type brokenStorage struct{}

var errDisk = errors.New("disk gone")

func (brokenStorage) GetByID(context.Context, string, string) (types.Record, bool, error) {
	return types.Record{}, false, errDisk
}
func (brokenStorage) GetAll(context.Context, string) ([]types.Record, error) {
	return nil, errDisk
}
func (brokenStorage) GetByIndex(context.Context, string, string, string) ([]types.Record, error) {
	return nil, errDisk
}
func (brokenStorage) Put(context.Context, string, types.Record) error { return errDisk }
func (brokenStorage) Delete(context.Context, string, string) error    { return errDisk }
func (brokenStorage) PurgeExpired(context.Context, string, int64) (int, error) {
	return 0, errDisk
}

func TestStorageFailuresDegradeToMiss(t *testing.T) {
	ctx := context.Background()
	hasher, _ := fingerprint.New(&types.HashConfig{}, logger.NewNop())
	c := New(brokenStorage{}, hasher, nil, logger.NewNop())

	if _, ok := c.Get(ctx, "doc_meta", "k"); ok {
		t.Fatal("hit from broken storage")
	}
	if _, ok := c.GetByHash(ctx, "doc_meta", "h"); ok {
		t.Fatal("hash hit from broken storage")
	}
	if err := c.Set(ctx, "doc_meta", "k", 1, time.Second, ""); !errors.Is(err, errDisk) {
		t.Fatalf("set error = %v", err)
	}
	if err := c.Set(ctx, "doc_meta", "", 1, time.Second, ""); !types.IsError(err, types.ErrCacheKeyEmpty) {
		t.Fatalf("expected ErrCacheKeyEmpty, got %v", err)
	}
}

type fakeCron struct {
	name string
	spec string
	job  func()
}

func (f *fakeCron) Start() error           { return nil }
func (f *fakeCron) Stop() error            { return nil }
func (f *fakeCron) IsRunning() bool        { return true }
func (f *fakeCron) Remove(string) error    { return nil }
func (f *fakeCron) Jobs() []types.JobEntry { return nil }
func (f *fakeCron) Add(name, spec string, job func()) error {
	f.name, f.spec, f.job = name, spec, job
	return nil
}

func TestRegisterSweep(t *testing.T) {
	ctx := context.Background()
	c, _, clock := newTestCache(t)
	cron := &fakeCron{}

	if err := c.RegisterSweep(ctx, cron, "*/30 * * * * *"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if cron.name != SweepJobName || cron.spec != "*/30 * * * * *" {
		t.Fatalf("registered %q %q", cron.name, cron.spec)
	}

	_ = c.Set(ctx, "doc_meta", "a", 1, time.Second, "")
	clock.Advance(time.Second)
	cron.job()

	entries, _ := c.storage.GetAll(ctx, "doc_meta")
	if len(entries) != 0 {
		t.Fatalf("scheduled sweep left %d entries", len(entries))
	}
}
