package storage

import (
	"context"
	"encoding/base64"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

const cloverCollection = "kv"

// CloverFlatStore persists key/value pairs as documents {key, value} in an
// embedded clover database. The database is opened on first use.
type CloverFlatStore struct {
	path   string
	logger types.Logger
	db     *clover.DB
	mu     sync.Mutex
}

func NewCloverFlatStore(path string, logger types.Logger) *CloverFlatStore {
	return &CloverFlatStore{
		path:   path,
		logger: logger,
	}
}

func (c *CloverFlatStore) conn() (*clover.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	if c.path == "" {
		return nil, types.Errorf(types.ErrBackendUnavailable, "clover path is empty")
	}
	if err := os.MkdirAll(c.path, 0755); err != nil {
		return nil, types.Errorf(types.ErrBackendUnavailable, "create %s: %v", c.path, err)
	}

	db, err := clover.Open(c.path)
	if err != nil {
		return nil, types.Errorf(types.ErrBackendUnavailable, "open clover db: %v", err)
	}

	exists, err := db.HasCollection(cloverCollection)
	if err != nil {
		_ = db.Close()
		return nil, types.Errorf(types.ErrBackendUnavailable, "check collection existence: %v", err)
	}
	if !exists {
		if err := db.CreateCollection(cloverCollection); err != nil {
			_ = db.Close()
			return nil, types.Errorf(types.ErrBackendUnavailable, "create collection: %v", err)
		}
	}

	c.db = db
	c.logger.Info("Clover flat store opened", zap.String("path", c.path))
	return db, nil
}

func (c *CloverFlatStore) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.conn()
	return err
}

func (c *CloverFlatStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.conn()
	if err != nil {
		return nil, false, err
	}

	doc, err := db.Query(cloverCollection).Where(clover.Field("key").Eq(key)).FindFirst()
	if err != nil {
		return nil, false, types.Errorf(types.ErrTransactionFailure, "clover get %s: %v", key, err)
	}
	if doc == nil {
		return nil, false, nil
	}

	value, err := decodeCloverValue(doc)
	if err != nil {
		return nil, false, types.Errorf(types.ErrSerializationFailure, "clover value %s: %v", key, err)
	}
	return value, true, nil
}

func (c *CloverFlatStore) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.conn()
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(value)
	query := db.Query(cloverCollection).Where(clover.Field("key").Eq(key))

	count, err := query.Count()
	if err != nil {
		return types.Errorf(types.ErrTransactionFailure, "clover count %s: %v", key, err)
	}

	if count > 0 {
		if err := query.Update(map[string]interface{}{"value": encoded}); err != nil {
			return types.Errorf(types.ErrTransactionFailure, "clover update %s: %v", key, err)
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set("key", key)
	doc.Set("value", encoded)

	if err := db.Insert(cloverCollection, doc); err != nil {
		return types.Errorf(types.ErrTransactionFailure, "clover insert %s: %v", key, err)
	}
	return nil
}

func (c *CloverFlatStore) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.conn()
	if err != nil {
		return err
	}

	if err := db.Query(cloverCollection).Where(clover.Field("key").Eq(key)).Delete(); err != nil {
		return types.Errorf(types.ErrTransactionFailure, "clover delete %s: %v", key, err)
	}
	return nil
}

func (c *CloverFlatStore) Keys(_ context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, err := c.conn()
	if err != nil {
		return nil, err
	}

	query := db.Query(cloverCollection)
	if prefix != "" {
		query = query.Where(clover.Field("key").Like("^" + regexp.QuoteMeta(prefix)))
	}

	docs, err := query.FindAll()
	if err != nil {
		return nil, types.Errorf(types.ErrTransactionFailure, "clover scan %s: %v", prefix, err)
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc.Get("key").(string); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *CloverFlatStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	if err != nil {
		return types.WrapError(err, "failed to close clover db")
	}

	c.logger.Info("Clover flat store closed")
	return nil
}

func decodeCloverValue(doc *clover.Document) ([]byte, error) {
	encoded, _ := doc.Get("value").(string)
	return base64.StdEncoding.DecodeString(encoded)
}
