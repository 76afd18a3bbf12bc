package session

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ysy950803/tgflow/internal/errors"
)

// SQLiteStore keeps the session in a single-row sqlite table. Useful when
// several tools share one session database or the file lives on a path
// where partial writes are a concern.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.DBInitFailed(err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS session (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		payload    BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.DBInitFailed(err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() (*Session, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM session WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.SessionLoadFailed(err)
	}
	sess, err := unmarshal(payload)
	if err != nil {
		return nil, errors.SessionLoadFailed(err)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(sess *Session) error {
	payload, err := sess.marshal()
	if err != nil {
		return errors.SessionSaveFailed(err)
	}
	_, err = s.db.Exec(
		`INSERT INTO session (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		payload, time.Now().Unix(),
	)
	if err != nil {
		return errors.SessionSaveFailed(err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
