package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

// ErrCacheMiss is returned by Load when no dataset is stored under the key.
var ErrCacheMiss = errors.New("no cached dataset for key")

// CacheKey identifies one cached dataset: corpus split, model identity and
// fixed sequence length together determine the encoding.
type CacheKey struct {
	Split        string
	Model        string
	MaxSeqLength int
}

// String renders the key in the cached_<split>_<model>_<maxseq> form.
func (k CacheKey) String() string {
	model := filepath.Base(k.Model)
	return fmt.Sprintf("cached_%s_%s_%d", k.Split, model, k.MaxSeqLength)
}

// CacheStore persists encoded datasets as JSON blobs in a libsql database,
// one row per cache key. Writes happen once after a full build; reads happen
// before any worker starts, so there are no concurrent writers.
type CacheStore struct {
	db *sql.DB
}

// NewCacheStore opens or initializes the cache database at the given path.
func NewCacheStore(path string) (*CacheStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create cache directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	store := &CacheStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// init sets up the cache table.
func (s *CacheStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS encoded_datasets (
		id TEXT PRIMARY KEY UNIQUE,
		cache_key TEXT UNIQUE,
		created_at TEXT NOT NULL,
		payload BLOB
	)`)
	if err != nil {
		return fmt.Errorf("failed to create encoded_datasets table: %w", err)
	}
	return nil
}

// Has reports whether a dataset is cached under the key.
func (s *CacheStore) Has(ctx context.Context, key CacheKey) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM encoded_datasets WHERE cache_key = $1", key.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("error querying cache: %w", err)
	}
	return n > 0, nil
}

// Save stores the dataset under the key, replacing any previous entry.
func (s *CacheStore) Save(ctx context.Context, key CacheKey, ds *EncodedDataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("error marshalling dataset: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO encoded_datasets (id, cache_key, created_at, payload) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), key.String(), time.Now().Format(time.RFC3339), payload)
	if err != nil {
		return fmt.Errorf("error inserting dataset into cache: %w", err)
	}

	slog.Info("saved encoded dataset to cache", "key", key.String(), "examples", ds.Len())
	return nil
}

// Load retrieves the dataset stored under the key.
func (s *CacheStore) Load(ctx context.Context, key CacheKey) (*EncodedDataset, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM encoded_datasets WHERE cache_key = $1", key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key.String())
	}
	if err != nil {
		return nil, fmt.Errorf("error querying cache: %w", err)
	}

	ds := &EncodedDataset{}
	if err := json.Unmarshal(payload, ds); err != nil {
		return nil, fmt.Errorf("error unmarshalling cached dataset: %w", err)
	}

	slog.Info("loaded encoded dataset from cache", "key", key.String(), "examples", ds.Len())
	return ds, nil
}

// Close releases the underlying database handle.
func (s *CacheStore) Close() error {
	return s.db.Close()
}
