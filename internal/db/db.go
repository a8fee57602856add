package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; keep a single connection.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := &DB{sql: sqldb}
	if err := db.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id INTEGER PRIMARY KEY,
			from_code TEXT NOT NULL DEFAULT '',
			step TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := d.sql.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

type Session struct {
	UserID    int64
	FromCode  string
	Step      string
	UpdatedAt time.Time
}

// GetSession returns the stored row; ok is false when the user has none.
func (d *DB) GetSession(ctx context.Context, userID int64) (Session, bool, error) {
	s := Session{UserID: userID}
	var updated int64
	err := d.sql.QueryRowContext(ctx, `SELECT from_code,step,updated_at FROM sessions WHERE user_id=?`, userID).
		Scan(&s.FromCode, &s.Step, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	s.UpdatedAt = time.UnixMilli(updated)
	return s, true, nil
}

func (d *DB) PutSession(ctx context.Context, s Session) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO sessions(user_id,from_code,step,updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET from_code=excluded.from_code, step=excluded.step, updated_at=excluded.updated_at`,
		s.UserID, s.FromCode, s.Step, s.UpdatedAt.UnixMilli())
	return err
}

func (d *DB) DeleteSession(ctx context.Context, userID int64) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, userID)
	return err
}

// PruneSessions deletes sessions last touched before cutoff and returns how many were removed.
func (d *DB) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) SessionCount(ctx context.Context) (int, error) {
	var c int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}
