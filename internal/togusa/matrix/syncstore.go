package matrix

// syncstore.go persists the mautrix sync position in the Togusa SQLite
// database. Without it every restart replays old room history and the engine
// re-executes commands that already ran.

import (
	"context"
	"database/sql"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*DBSyncStore)(nil)

// Row keys within matrix_sync_state; one row per (user_id, key).
const (
	keyFilterID  = "filter_id"
	keyNextBatch = "next_batch"
)

// DBSyncStore implements mautrix.SyncStore on top of the matrix_sync_state
// table (migration 0004).
type DBSyncStore struct {
	db *sql.DB
}

// NewDBSyncStore wraps an open database connection. The caller is responsible
// for the schema being migrated.
func NewDBSyncStore(db *sql.DB) *DBSyncStore {
	return &DBSyncStore{db: db}
}

// SaveFilterID persists the Matrix event-filter ID for the given user.
func (s *DBSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.save(ctx, userID.String(), keyFilterID, filterID)
}

// LoadFilterID retrieves the persisted event-filter ID. Returns ("", nil)
// when no filter has been saved yet.
func (s *DBSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.load(ctx, userID.String(), keyFilterID)
}

// SaveNextBatch persists the opaque /sync next_batch token.
func (s *DBSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.save(ctx, userID.String(), keyNextBatch, nextBatchToken)
}

// LoadNextBatch retrieves the last saved next_batch token. Returns ("", nil)
// on the first run.
func (s *DBSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.load(ctx, userID.String(), keyNextBatch)
}

func (s *DBSyncStore) save(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	return err
}

func (s *DBSyncStore) load(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
