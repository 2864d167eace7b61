package types

import (
	"encoding/json"
)

// CacheEntry is one TTL-bounded value. Timestamps are unix milliseconds.
type CacheEntry struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	CreatedAt   int64           `json:"createdAt"`
	ExpiresAt   int64           `json:"expiresAt"`
	ContentHash string          `json:"contentHash,omitempty"`
}

// Expired reports whether the entry is logically absent at nowMs.
func (e CacheEntry) Expired(nowMs int64) bool {
	return nowMs >= e.ExpiresAt
}

func (e CacheEntry) Record() Record {
	return Record{
		ID:          e.Key,
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
		ContentHash: e.ContentHash,
		Payload:     e.Value,
	}
}

func CacheEntryFromRecord(r Record) CacheEntry {
	return CacheEntry{
		Key:         r.ID,
		Value:       r.Payload,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		ContentHash: r.ContentHash,
	}
}
