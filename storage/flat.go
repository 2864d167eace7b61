package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

const (
	recordKeyPrefix = "store_"
	cacheKeyPrefix  = "cache_"
	metaKeyPrefix   = "meta_"
	seqKeyPrefix    = "seq_"

	// entrySeparator cannot occur in a collection name, so no collection's
	// entry keys fall under another collection's prefix.
	entrySeparator = ":"
)

// flatEntry is the stored form of a cache record. Seq is the insertion
// sequence of the entry's id and survives overwrites.
type flatEntry struct {
	Seq    int64        `json:"seq"`
	Record types.Record `json:"record"`
}

// FlatBackend serves the backend contract from a FlatStore. Record
// collections live in one JSON array per collection; cache collections keep
// one key per entry so expiry never rewrites unrelated entries, plus a
// per-collection counter that orders entries by first insertion.
// ReplaceAll is a plain overwrite with no atomicity.
type FlatBackend struct {
	logger    types.Logger
	store     types.FlatStore
	schema    types.Schema
	threshold int
	mu        sync.Mutex
}

func NewFlatBackend(store types.FlatStore, schema types.Schema, compressThreshold int, logger types.Logger) *FlatBackend {
	return &FlatBackend{
		logger:    logger,
		store:     store,
		schema:    schema,
		threshold: compressThreshold,
	}
}

func (f *FlatBackend) Name() string {
	return "flat"
}

func (f *FlatBackend) Open(ctx context.Context) error {
	if err := validateSchema(f.schema); err != nil {
		return err
	}

	if err := f.store.Ping(ctx); err != nil {
		if types.IsError(err, types.ErrBackendUnavailable) {
			return err
		}
		return types.Errorf(types.ErrBackendUnavailable, "flat store: %v", err)
	}

	f.logger.Info("Flat backend opened", zap.Int("collections", len(f.schema)))
	return nil
}

func (f *FlatBackend) Close() error {
	return f.store.Close()
}

func (f *FlatBackend) Get(ctx context.Context, collection, id string) (types.Record, bool, error) {
	kind, err := f.kind(collection)
	if err != nil {
		return types.Record{}, false, err
	}

	if kind == types.KindCache {
		entry, found, err := f.readEntry(ctx, entryKey(collection, id))
		return entry.Record, found, err
	}

	records, err := f.readArray(ctx, collection)
	if err != nil {
		return types.Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return types.Record{}, false, nil
}

func (f *FlatBackend) GetAll(ctx context.Context, collection string) ([]types.Record, error) {
	records, err := f.list(ctx, collection)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}

func (f *FlatBackend) GetByIndex(ctx context.Context, collection, index, value string) ([]types.Record, error) {
	var match func(types.Record) bool
	switch index {
	case types.IndexGroupKey:
		match = func(r types.Record) bool { return r.GroupKey == value }
	case types.IndexContentHash:
		match = func(r types.Record) bool { return r.ContentHash == value }
	default:
		return nil, types.Errorf(types.ErrInvalidParameter, "index %q is not queryable by value", index)
	}

	records, err := f.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := make([]types.Record, 0)
	for _, r := range records {
		if match(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func (f *FlatBackend) Put(ctx context.Context, collection string, record types.Record) error {
	if record.ID == "" {
		return types.ErrRecordIDEmpty
	}

	kind, err := f.kind(collection)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if kind == types.KindCache {
		return f.putEntry(ctx, collection, record)
	}

	records, err := f.readArray(ctx, collection)
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	return f.write(ctx, recordKeyPrefix+collection, records)
}

func (f *FlatBackend) Delete(ctx context.Context, collection, id string) error {
	kind, err := f.kind(collection)
	if err != nil {
		return err
	}

	if kind == types.KindCache {
		return f.store.Remove(ctx, entryKey(collection, id))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readArray(ctx, collection)
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}

	return f.write(ctx, recordKeyPrefix+collection, kept)
}

func (f *FlatBackend) ReplaceAll(ctx context.Context, collection string, records []types.Record) error {
	for _, r := range records {
		if r.ID == "" {
			return types.ErrRecordIDEmpty
		}
	}

	kind, err := f.kind(collection)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if kind == types.KindRecords {
		return f.write(ctx, recordKeyPrefix+collection, dedupe(records))
	}

	keys, err := f.entryKeys(ctx, collection)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := f.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	for _, r := range dedupe(records) {
		if err := f.putEntry(ctx, collection, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlatBackend) PurgeExpired(ctx context.Context, collection string, nowMs int64) (int, error) {
	kind, err := f.kind(collection)
	if err != nil {
		return 0, err
	}

	expired := func(r types.Record) bool {
		return r.ExpiresAt > 0 && r.ExpiresAt <= nowMs
	}

	if kind == types.KindCache {
		keys, err := f.entryKeys(ctx, collection)
		if err != nil {
			return 0, err
		}

		removed := 0
		for _, key := range keys {
			entry, found, err := f.readEntry(ctx, key)
			if err != nil {
				return removed, err
			}
			if !found || !expired(entry.Record) {
				continue
			}
			if err := f.store.Remove(ctx, key); err != nil {
				return removed, err
			}
			removed++
		}
		return removed, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readArray(ctx, collection)
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	for _, r := range records {
		if !expired(r) {
			kept = append(kept, r)
		}
	}

	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, f.write(ctx, recordKeyPrefix+collection, kept)
}

func (f *FlatBackend) GetMeta(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := f.store.Get(ctx, metaKeyPrefix+key)
	if err != nil || !found {
		return nil, found, err
	}

	data, err = utils.Decompress(data)
	if err != nil {
		return nil, false, types.Errorf(types.ErrSerializationFailure, "meta %s: %v", key, err)
	}
	return data, true, nil
}

func (f *FlatBackend) SetMeta(ctx context.Context, key string, value []byte) error {
	return f.store.Set(ctx, metaKeyPrefix+key, value)
}

func (f *FlatBackend) kind(collection string) (types.CollectionKind, error) {
	c, ok := f.schema.Lookup(collection)
	if !ok {
		return "", types.Errorf(types.ErrCollectionUnknown, "collection: %s", collection)
	}
	return c.Kind, nil
}

func (f *FlatBackend) list(ctx context.Context, collection string) ([]types.Record, error) {
	kind, err := f.kind(collection)
	if err != nil {
		return nil, err
	}

	if kind == types.KindRecords {
		return f.readArray(ctx, collection)
	}

	keys, err := f.entryKeys(ctx, collection)
	if err != nil {
		return nil, err
	}

	entries := make([]flatEntry, 0, len(keys))
	for _, key := range keys {
		entry, found, err := f.readEntry(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})

	records := make([]types.Record, len(entries))
	for i, entry := range entries {
		records[i] = entry.Record
	}
	return records, nil
}

func (f *FlatBackend) entryKeys(ctx context.Context, collection string) ([]string, error) {
	return f.store.Keys(ctx, cacheKeyPrefix+collection+entrySeparator)
}

// putEntry writes a cache record, keeping the sequence of an existing entry
// with the same id. Callers hold f.mu.
func (f *FlatBackend) putEntry(ctx context.Context, collection string, record types.Record) error {
	key := entryKey(collection, record.ID)

	existing, found, err := f.readEntry(ctx, key)
	if err != nil && !types.IsError(err, types.ErrSerializationFailure) {
		return err
	}

	seq := existing.Seq
	if !found || err != nil {
		seq, err = f.nextSeq(ctx, collection)
		if err != nil {
			return err
		}
	}

	return f.write(ctx, key, flatEntry{Seq: seq, Record: record})
}

func (f *FlatBackend) nextSeq(ctx context.Context, collection string) (int64, error) {
	key := seqKeyPrefix + collection

	data, found, err := f.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	var seq int64
	if found {
		seq, err = strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, types.Errorf(types.ErrSerializationFailure, "sequence %s: %v", collection, err)
		}
	}

	seq++
	if err := f.store.Set(ctx, key, strconv.AppendInt(nil, seq, 10)); err != nil {
		return 0, err
	}
	return seq, nil
}

func (f *FlatBackend) readArray(ctx context.Context, collection string) ([]types.Record, error) {
	data, found, err := f.store.Get(ctx, recordKeyPrefix+collection)
	if err != nil {
		return nil, err
	}
	if !found {
		return make([]types.Record, 0), nil
	}

	records := make([]types.Record, 0)
	if err := f.decode(data, &records); err != nil {
		return nil, types.Errorf(types.ErrSerializationFailure, "collection %s: %v", collection, err)
	}
	return records, nil
}

func (f *FlatBackend) readEntry(ctx context.Context, key string) (flatEntry, bool, error) {
	data, found, err := f.store.Get(ctx, key)
	if err != nil || !found {
		return flatEntry{}, false, err
	}

	var entry flatEntry
	if err := f.decode(data, &entry); err != nil {
		return flatEntry{}, false, types.Errorf(types.ErrSerializationFailure, "entry %s: %v", key, err)
	}
	return entry, true, nil
}

func (f *FlatBackend) decode(data []byte, target interface{}) error {
	plain, err := utils.Decompress(data)
	if err != nil {
		return err
	}
	return utils.UnmarshalInto(plain, target)
}

func (f *FlatBackend) write(ctx context.Context, key string, value interface{}) error {
	data, err := utils.Marshal(value)
	if err != nil {
		return types.Errorf(types.ErrSerializationFailure, "key %s: %v", key, err)
	}

	data, err = utils.MaybeCompress(data, f.threshold)
	if err != nil {
		return types.Errorf(types.ErrSerializationFailure, "compress %s: %v", key, err)
	}

	return f.store.Set(ctx, key, data)
}

func entryKey(collection, key string) string {
	return cacheKeyPrefix + collection + entrySeparator + key
}

// dedupe keeps the last record per id at the position of its first occurrence.
func dedupe(records []types.Record) []types.Record {
	index := make(map[string]int, len(records))
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
