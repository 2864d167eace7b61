package types

import (
	"context"
	"encoding/json"

	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

const (
	IndexCreatedAt   = "created_at"
	IndexGroupKey    = "group_key"
	IndexExpiresAt   = "expires_at"
	IndexContentHash = "content_hash"
)

type CollectionKind string

const (
	KindRecords CollectionKind = "records"
	KindCache   CollectionKind = "cache"
)

type Collection struct {
	Name string         `yaml:"name" json:"name" validate:"required"`
	Kind CollectionKind `yaml:"kind" json:"kind" validate:"required,oneof=records cache"`
}

// Schema lists the collections every backend must be able to serve.
type Schema []Collection

func (s Schema) Lookup(name string) (Collection, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

func (s Schema) Names(kind CollectionKind) []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		if c.Kind == kind {
			names = append(names, c.Name)
		}
	}
	return names
}

// Record is an opaque payload keyed by ID. CreatedAt and ExpiresAt are unix milliseconds.
type Record struct {
	ID          string          `json:"id"`
	CreatedAt   int64           `json:"createdAt"`
	GroupKey    string          `json:"groupKey,omitempty"`
	ExpiresAt   int64           `json:"expiresAt,omitempty"`
	ContentHash string          `json:"contentHash,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func NewRecord(id string, createdAt int64, groupKey string, payload interface{}) (Record, error) {
	data, err := utils.Marshal(payload)
	if err != nil {
		return Record{}, Errorf(ErrSerializationFailure, "record %s: %v", id, err)
	}

	return Record{
		ID:        id,
		CreatedAt: createdAt,
		GroupKey:  groupKey,
		Payload:   data,
	}, nil
}

func (r Record) Decode(target interface{}) error {
	if len(r.Payload) == 0 {
		return Errorf(ErrSerializationFailure, "record %s has no payload", r.ID)
	}
	if err := utils.UnmarshalInto(r.Payload, target); err != nil {
		return Errorf(ErrSerializationFailure, "record %s: %v", r.ID, err)
	}
	return nil
}

type StorageMetadata struct {
	Migrated   bool  `json:"migrated"`
	MigratedAt int64 `json:"migratedAt,omitempty"`
}

// Backend is the contract shared by the primary and fallback stores.
type Backend interface {
	Name() string
	Open(ctx context.Context) error
	Close() error
	Get(ctx context.Context, collection, id string) (Record, bool, error)
	GetAll(ctx context.Context, collection string) ([]Record, error)
	GetByIndex(ctx context.Context, collection, index, value string) ([]Record, error)
	Put(ctx context.Context, collection string, record Record) error
	Delete(ctx context.Context, collection, id string) error
	ReplaceAll(ctx context.Context, collection string, records []Record) error
	PurgeExpired(ctx context.Context, collection string, nowMs int64) (int, error)
	GetMeta(ctx context.Context, key string) ([]byte, bool, error)
	SetMeta(ctx context.Context, key string, value []byte) error
}

// FlatStore is a string-keyed blob store with no indexes or transactions.
type FlatStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

type StorageState int32

const (
	StateUninitialized StorageState = iota
	StatePrimary
	StateFallback
)

func (s StorageState) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	default:
		return "uninitialized"
	}
}
