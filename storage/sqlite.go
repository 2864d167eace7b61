package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const metadataTable = "storage_metadata"

var collectionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validateSchema rejects collection names that are not safe as table names
// or that could contain the flat key separator.
func validateSchema(schema types.Schema) error {
	for _, c := range schema {
		if !collectionNamePattern.MatchString(c.Name) {
			return types.Errorf(types.ErrInvalidParameter, "collection name %q", c.Name)
		}
	}
	return nil
}

// openError keeps the caller's cancellation visible so it is never mistaken
// for an unavailable backend.
func openError(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return types.Errorf(types.ErrBackendUnavailable, "%s: %v", step, err)
}

// SQLiteBackend is the primary store: one table per collection, secondary
// indexes on the record metadata, and every call in its own transaction.
type SQLiteBackend struct {
	logger types.Logger
	config *types.PrimaryStoreConfig
	schema types.Schema
	db     *sql.DB
	mu     sync.RWMutex
}

func NewSQLiteBackend(config *types.PrimaryStoreConfig, schema types.Schema, logger types.Logger) *SQLiteBackend {
	return &SQLiteBackend{
		logger: logger,
		config: config,
		schema: schema,
	}
}

func (s *SQLiteBackend) Name() string {
	return "sqlite"
}

func (s *SQLiteBackend) Open(ctx context.Context) error {
	if s.config == nil || !s.config.Enabled {
		return types.Errorf(types.ErrBackendUnavailable, "sqlite backend disabled")
	}
	if strings.TrimSpace(s.config.Path) == "" {
		return types.Errorf(types.ErrBackendUnavailable, "sqlite path is empty")
	}

	if err := validateSchema(s.schema); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	cleanPath := filepath.Clean(s.config.Path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.Errorf(types.ErrBackendUnavailable, "create %s: %v", dir, err)
		}
	}

	busyTimeout := s.config.BusyTimeout.Milliseconds()
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d&_synchronous=NORMAL", cleanPath, busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return types.Errorf(types.ErrBackendUnavailable, "open sqlite db: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return openError(ctx, "ping sqlite db", err)
	}

	if err := s.applySchema(ctx, db); err != nil {
		_ = db.Close()
		return openError(ctx, "apply schema", err)
	}

	s.db = db
	s.logger.Info("SQLite backend opened", zap.String("path", cleanPath), zap.Int("collections", len(s.schema)))
	return nil
}

func (s *SQLiteBackend) applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + metadataTable + ` (key TEXT PRIMARY KEY, value BLOB NOT NULL)`,
	}

	for _, c := range s.schema {
		table := quote(c.Name)
		statements = append(statements,
			`CREATE TABLE IF NOT EXISTS `+table+` (
			   seq INTEGER PRIMARY KEY AUTOINCREMENT,
			   id TEXT NOT NULL UNIQUE,
			   created_at INTEGER NOT NULL DEFAULT 0,
			   group_key TEXT NOT NULL DEFAULT '',
			   expires_at INTEGER NOT NULL DEFAULT 0,
			   content_hash TEXT NOT NULL DEFAULT '',
			   payload BLOB
			 )`,
		)
		for _, column := range []string{types.IndexCreatedAt, types.IndexGroupKey, types.IndexExpiresAt, types.IndexContentHash} {
			statements = append(statements, fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS %s ON %s(%s)`, quote(c.Name+"_"+column), table, column))
		}
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	if err != nil {
		return types.WrapError(err, "failed to close sqlite db")
	}

	s.logger.Info("SQLite backend closed")
	return nil
}

func (s *SQLiteBackend) Get(ctx context.Context, collection, id string) (types.Record, bool, error) {
	var record types.Record
	var found bool

	err := s.withTx(ctx, collection, "get", func(tx *sql.Tx, table string) error {
		rows, err := tx.QueryContext(ctx, selectColumns+` FROM `+table+` WHERE id = ?`, id)
		if err != nil {
			return err
		}
		records, err := scanRecords(rows)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			record, found = records[0], true
		}
		return nil
	})

	return record, found, err
}

func (s *SQLiteBackend) GetAll(ctx context.Context, collection string) ([]types.Record, error) {
	var records []types.Record

	err := s.withTx(ctx, collection, "get_all", func(tx *sql.Tx, table string) error {
		rows, err := tx.QueryContext(ctx, selectColumns+` FROM `+table+` ORDER BY created_at DESC, seq ASC`)
		if err != nil {
			return err
		}
		records, err = scanRecords(rows)
		return err
	})

	return records, err
}

func (s *SQLiteBackend) GetByIndex(ctx context.Context, collection, index, value string) ([]types.Record, error) {
	if index != types.IndexGroupKey && index != types.IndexContentHash {
		return nil, types.Errorf(types.ErrInvalidParameter, "index %q is not queryable by value", index)
	}

	var records []types.Record

	err := s.withTx(ctx, collection, "get_by_index", func(tx *sql.Tx, table string) error {
		rows, err := tx.QueryContext(ctx,
			selectColumns+` FROM `+table+` WHERE `+index+` = ? ORDER BY created_at DESC, seq ASC`, value)
		if err != nil {
			return err
		}
		records, err = scanRecords(rows)
		return err
	})

	return records, err
}

func (s *SQLiteBackend) Put(ctx context.Context, collection string, record types.Record) error {
	if record.ID == "" {
		return types.ErrRecordIDEmpty
	}

	return s.withTx(ctx, collection, "put", func(tx *sql.Tx, table string) error {
		return upsert(ctx, tx, table, record)
	})
}

func (s *SQLiteBackend) Delete(ctx context.Context, collection, id string) error {
	return s.withTx(ctx, collection, "delete", func(tx *sql.Tx, table string) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
		return err
	})
}

func (s *SQLiteBackend) ReplaceAll(ctx context.Context, collection string, records []types.Record) error {
	for _, r := range records {
		if r.ID == "" {
			return types.ErrRecordIDEmpty
		}
	}

	return s.withTx(ctx, collection, "replace_all", func(tx *sql.Tx, table string) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
		for _, r := range records {
			if err := upsert(ctx, tx, table, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteBackend) PurgeExpired(ctx context.Context, collection string, nowMs int64) (int, error) {
	var removed int64

	err := s.withTx(ctx, collection, "purge_expired", func(tx *sql.Tx, table string) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at > 0 AND expires_at <= ?`, nowMs)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})

	return int(removed), err
}

func (s *SQLiteBackend) GetMeta(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := s.withTx(ctx, "", "get_meta", func(tx *sql.Tx, _ string) error {
		err := tx.QueryRowContext(ctx, `SELECT value FROM `+metadataTable+` WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})

	return value, found, err
}

func (s *SQLiteBackend) SetMeta(ctx context.Context, key string, value []byte) error {
	return s.withTx(ctx, "", "set_meta", func(tx *sql.Tx, _ string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+metadataTable+` (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		return err
	})
}

// withTx runs fn in a transaction on the collection's table. An empty
// collection means the call only touches the metadata table.
func (s *SQLiteBackend) withTx(ctx context.Context, collection, op string, fn func(tx *sql.Tx, table string) error) error {
	table := ""
	if collection != "" {
		if _, ok := s.schema.Lookup(collection); !ok {
			return types.Errorf(types.ErrCollectionUnknown, "collection: %s", collection)
		}
		table = quote(collection)
	}

	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return types.Errorf(types.ErrBackendUnavailable, "sqlite backend is not open")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return s.txError(ctx, op, collection, err)
	}

	if err := fn(tx, table); err != nil {
		_ = tx.Rollback()
		return s.txError(ctx, op, collection, err)
	}

	if err := tx.Commit(); err != nil {
		return s.txError(ctx, op, collection, err)
	}

	return nil
}

func (s *SQLiteBackend) txError(ctx context.Context, op, collection string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return types.Errorf(types.ErrTransactionFailure, "sqlite %s %s: %v", op, collection, err)
}

const selectColumns = `SELECT id, created_at, group_key, expires_at, content_hash, payload`

func scanRecords(rows *sql.Rows) ([]types.Record, error) {
	defer rows.Close()

	records := make([]types.Record, 0)
	for rows.Next() {
		var r types.Record
		var payload []byte
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.GroupKey, &r.ExpiresAt, &r.ContentHash, &payload); err != nil {
			return nil, err
		}
		r.Payload = payload
		records = append(records, r)
	}

	return records, rows.Err()
}

func upsert(ctx context.Context, tx *sql.Tx, table string, r types.Record) error {
	var payload interface{}
	if len(r.Payload) > 0 {
		payload = []byte(r.Payload)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+table+` (id, created_at, group_key, expires_at, content_hash, payload)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   created_at = excluded.created_at,
		   group_key = excluded.group_key,
		   expires_at = excluded.expires_at,
		   content_hash = excluded.content_hash,
		   payload = excluded.payload`,
		r.ID, r.CreatedAt, r.GroupKey, r.ExpiresAt, r.ContentHash, payload)
	return err
}

func quote(name string) string {
	return `"` + name + `"`
}
