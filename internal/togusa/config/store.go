// Package config provides a key/value configuration store backed by a SQLite
// table.  It holds operator-tunable knobs such as the NLP model name, the
// backend RPC endpoint, and the per-minute rate limit.
//
// Secret-like values (API keys) go through SetSecret, which encrypts them with
// AES-256-GCM before they touch disk.  Get decrypts transparently, so callers
// never see ciphertext; List replaces encrypted values with a placeholder so
// that a casual "show config" dump cannot leak credentials.
package config

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bdobrica/Togusa/common/crypto"
	"github.com/bdobrica/Togusa/internal/togusa/store"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("config: key not found")

// ErrNoMasterKey is returned when an encrypted value is read or written but
// no master key was configured at startup.
var ErrNoMasterKey = errors.New("config: no master key configured")

// Placeholder replaces encrypted values in List output.
const Placeholder = "[encrypted]"

// Store is the read/write interface for the runtime configuration table.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value associated with key, decrypting it when it was
	// written via SetSecret.  Returns ErrNotFound when the key has not been
	// set, and ErrNoMasterKey when the value is encrypted but no key is
	// available.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a plain value under key, creating or overwriting the entry
	// and recording the current UTC timestamp in updated_at.
	Set(ctx context.Context, key string, value string) error

	// SetSecret encrypts value with the master key and stores it under key.
	// Returns ErrNoMasterKey when no master key is available.
	SetSecret(ctx context.Context, key string, value string) error

	// Delete removes key from the store.  It is a no-op (no error) when the
	// key does not exist.
	Delete(ctx context.Context, key string) error

	// List returns a snapshot of all key/value pairs currently in the store.
	// Encrypted values appear as the Placeholder string.  An empty map (not
	// nil) is returned when no entries are present.
	List(ctx context.Context) (map[string]string, error)
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db        *store.Store
	masterKey []byte
}

// New creates a Store backed by the application SQLite database.  masterKey
// may be nil, in which case secret operations return ErrNoMasterKey while
// plain config keeps working.
//
// The migration that creates the config table must have been applied before
// New is called (this is guaranteed by store.New running all migrations on
// startup).
func New(db *store.Store, masterKey []byte) Store {
	return &sqliteStore{db: db, masterKey: masterKey}
}

// Get returns the value for key or ErrNotFound when absent.
func (s *sqliteStore) Get(ctx context.Context, key string) (string, error) {
	var (
		value     string
		encrypted bool
	)
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT value, encrypted FROM config WHERE key = ?`, key,
	).Scan(&value, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("config: get %q: %w", key, err)
	}
	if !encrypted {
		return value, nil
	}

	if len(s.masterKey) == 0 {
		return "", ErrNoMasterKey
	}
	blob, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("config: decode %q: %w", key, err)
	}
	plain, err := crypto.Decrypt(s.masterKey, blob)
	if err != nil {
		return "", fmt.Errorf("config: decrypt %q: %w", key, err)
	}
	return string(plain), nil
}

// Set upserts the key/value pair, updating updated_at to the current UTC time.
func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	return s.put(ctx, key, value, false)
}

// SetSecret encrypts value and upserts it under key with the encrypted flag
// set, so Get knows to decrypt on the way out.
func (s *sqliteStore) SetSecret(ctx context.Context, key, value string) error {
	if len(s.masterKey) == 0 {
		return ErrNoMasterKey
	}
	blob, err := crypto.Encrypt(s.masterKey, []byte(value))
	if err != nil {
		return fmt.Errorf("config: encrypt %q: %w", key, err)
	}
	return s.put(ctx, key, base64.StdEncoding.EncodeToString(blob), true)
}

func (s *sqliteStore) put(ctx context.Context, key, value string, encrypted bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO config (key, value, encrypted, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			encrypted  = excluded.encrypted,
			updated_at = excluded.updated_at
	`, key, value, encrypted, now)
	if err != nil {
		return fmt.Errorf("config: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key.  Deleting a non-existent key returns nil.
func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.DB().ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("config: delete %q: %w", key, err)
	}
	return nil
}

// List returns all key/value pairs in the store, masking encrypted values.
func (s *sqliteStore) List(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.DB().QueryContext(ctx, `SELECT key, value, encrypted FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("config: list: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var (
			k, v      string
			encrypted bool
		)
		if err := rows.Scan(&k, &v, &encrypted); err != nil {
			return nil, fmt.Errorf("config: list scan: %w", err)
		}
		if encrypted {
			v = Placeholder
		}
		result[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: list rows: %w", err)
	}
	return result, nil
}
