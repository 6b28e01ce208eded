package store

import (
	"database/sql"

	// Register the sqlite3 driver for the durable store.
	_ "github.com/mattn/go-sqlite3"
)

// tokenKey is the key the access token is stored under.
const tokenKey = "contextToken"

// KVStore is the durable token backend, a single key-value table in a
// local sqlite database. It survives cookie expiry and acts as the
// fallback read location on restore.
type KVStore struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// OpenKV opens (or creates) the sqlite database at path and ensures
// the kv table exists.
func OpenKV(path string) (*KVStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	kv := &KVStore{DB: db}
	if err := kv.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewKVStore wraps an existing database handle. The kv table must
// already exist.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{DB: db}
}

func (s *KVStore) ensureSchema() error {
	_, err := s.DB.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	return err
}

// Token returns the stored access token, or false when absent.
func (s *KVStore) Token() (string, bool) {
	var value string
	err := s.DB.QueryRow(`SELECT value FROM kv WHERE key = ?`, tokenKey).Scan(&value)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// SetToken persists the access token, replacing any previous value.
func (s *KVStore) SetToken(token string) error {
	_, err := s.DB.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		tokenKey, token,
	)
	return err
}

// Clear removes the access token.
func (s *KVStore) Clear() error {
	_, err := s.DB.Exec(`DELETE FROM kv WHERE key = ?`, tokenKey)
	return err
}

// Close closes the underlying database handle.
func (s *KVStore) Close() error {
	return s.DB.Close()
}
