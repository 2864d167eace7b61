package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

const MetadataKey = "storage_metadata"

var legacyNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-2b4c6d8e0f12")

// MigrateLegacy copies the legacy flat store into the active backend once.
// The migrated flag is written last, so a failed run is retried on the next
// Initialize and re-put items overwrite their earlier copies by id.
func (f *Facade) MigrateLegacy(ctx context.Context) error {
	if f.legacy == nil || f.legacyConfig == nil {
		return nil
	}

	meta, err := f.Metadata(ctx)
	if err != nil {
		return types.Errorf(types.ErrMigrationFailure, "read metadata: %v", err)
	}
	if meta.Migrated {
		return nil
	}

	collections := make([]string, 0, len(f.legacyConfig.Keys))
	for collection := range f.legacyConfig.Keys {
		collections = append(collections, collection)
	}
	sort.Strings(collections)

	total := 0
	for _, collection := range collections {
		key := f.legacyConfig.Keys[collection]

		records, err := f.readLegacy(ctx, key)
		if err != nil {
			return types.Errorf(types.ErrMigrationFailure, "legacy key %s: %v", key, err)
		}

		for _, record := range records {
			if err := f.Put(ctx, collection, record); err != nil {
				return types.Errorf(types.ErrMigrationFailure, "put %s/%s: %v", collection, record.ID, err)
			}
		}
		total += len(records)
	}

	meta = types.StorageMetadata{Migrated: true, MigratedAt: f.now().UnixMilli()}
	if err := f.SetMetadata(ctx, meta); err != nil {
		return types.Errorf(types.ErrMigrationFailure, "write metadata: %v", err)
	}

	f.logger.Info("Legacy data migrated",
		zap.Int("records", total),
		zap.Int("collections", len(collections)))
	return nil
}

func (f *Facade) Metadata(ctx context.Context) (types.StorageMetadata, error) {
	var meta types.StorageMetadata
	var data []byte
	var found bool

	err := f.run(ctx, "get_meta", func(ctx context.Context, b types.Backend) error {
		var err error
		data, found, err = b.GetMeta(ctx, MetadataKey)
		return err
	})
	if err != nil || !found {
		return meta, err
	}

	if err := utils.Unmarshal(data, &meta); err != nil {
		return meta, types.Errorf(types.ErrSerializationFailure, "storage metadata: %v", err)
	}
	return meta, nil
}

func (f *Facade) SetMetadata(ctx context.Context, meta types.StorageMetadata) error {
	data, err := utils.Marshal(meta)
	if err != nil {
		return types.Errorf(types.ErrSerializationFailure, "storage metadata: %v", err)
	}

	return f.run(ctx, "set_meta", func(ctx context.Context, b types.Backend) error {
		return b.SetMeta(ctx, MetadataKey, data)
	})
}

// readLegacy decodes one legacy key: a JSON array of objects carrying an id,
// an optional creation time in milliseconds and an optional grouping field.
// Items without an id get one derived from the key, position and raw item,
// so a retried run rewrites the same records instead of adding copies.
func (f *Facade) readLegacy(ctx context.Context, key string) ([]types.Record, error) {
	data, found, err := f.legacy.Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}

	data, err = utils.Decompress(data)
	if err != nil {
		return nil, types.Errorf(types.ErrSerializationFailure, "decompress: %v", err)
	}

	var raw []json.RawMessage
	if err := utils.Unmarshal(data, &raw); err != nil {
		return nil, types.Errorf(types.ErrSerializationFailure, "decode: %v", err)
	}

	createdField := f.legacyConfig.CreatedAtField
	if createdField == "" {
		createdField = "createdAt"
	}

	nowMs := f.now().UnixMilli()
	records := make([]types.Record, 0, len(raw))

	for i, itemData := range raw {
		var item map[string]interface{}
		if err := utils.Unmarshal(itemData, &item); err != nil {
			return nil, types.Errorf(types.ErrSerializationFailure, "item %d: %v", i, err)
		}
		if item == nil {
			continue
		}

		id := stringField(item, "id")
		if id == "" {
			id = legacyID(key, i, itemData)
			item["id"] = id
		}

		createdAt, ok := millisField(item, createdField)
		if !ok {
			createdAt = nowMs
		}

		record, err := types.NewRecord(id, createdAt, stringField(item, f.legacyConfig.GroupField), item)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func legacyID(key string, index int, item []byte) string {
	name := make([]byte, 0, len(key)+len(item)+24)
	name = append(name, key...)
	name = append(name, '|')
	name = strconv.AppendInt(name, int64(index), 10)
	name = append(name, '|')
	name = append(name, item...)
	return uuid.NewSHA1(legacyNamespace, name).String()
}

func stringField(item map[string]interface{}, field string) string {
	if field == "" {
		return ""
	}

	switch v := item[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func millisField(item map[string]interface{}, field string) (int64, bool) {
	switch v := item[field].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
