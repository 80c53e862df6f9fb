package credstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/hrygo/reviewflow/client"
	clienterrors "github.com/hrygo/reviewflow/internal/errors"
)

// sqliteStore implements Store with SQLite persistence.
type sqliteStore struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS credential (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) the credential database at dsn.
func NewSQLiteStore(dsn string) (Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open credential db %s", dsn)
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate credential db")
	}
	return &sqliteStore{db: db}, nil
}

// Read loads both slots. Missing slots are not an error; a corrupt user
// record is reported as MALFORMED_STATE so the caller can clear and fall
// back to anonymous.
func (s *sqliteStore) Read(ctx context.Context) (*Credentials, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM credential WHERE key IN (?, ?)", SlotToken, SlotUser)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read credential slots")
	}
	defer rows.Close()

	var token, userJSON string
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan credential slot")
		}
		switch key {
		case SlotToken:
			token = value
		case SlotUser:
			userJSON = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate credential slots")
	}

	if token == "" || userJSON == "" {
		return nil, nil
	}

	var user client.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, clienterrors.MalformedState(err)
	}
	return &Credentials{Token: token, User: &user}, nil
}

// Write stores both slots in one transaction.
func (s *sqliteStore) Write(ctx context.Context, token string, user *client.User) error {
	if token == "" || user == nil {
		return errors.New("token and user must both be set")
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "failed to marshal user record")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin credential write")
	}
	defer tx.Rollback()

	upsert := "INSERT INTO credential (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value"
	if _, err := tx.ExecContext(ctx, upsert, SlotToken, token); err != nil {
		return errors.Wrap(err, "failed to write token slot")
	}
	if _, err := tx.ExecContext(ctx, upsert, SlotUser, string(userJSON)); err != nil {
		return errors.Wrap(err, "failed to write user slot")
	}

	return errors.Wrap(tx.Commit(), "failed to commit credential write")
}

// Clear removes both slots in one transaction.
func (s *sqliteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM credential WHERE key IN (?, ?)", SlotToken, SlotUser)
	return errors.Wrap(err, "failed to clear credential slots")
}

// Close closes the underlying database.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
