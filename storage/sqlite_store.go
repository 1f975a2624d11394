package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // 纯Go SQLite驱动
)

var sqliteDialect = sqlDialect{
	schema: `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`,
	get:    `SELECT value FROM kv WHERE key = ?`,
	upsert: `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	remove: `DELETE FROM kv WHERE key = ?`,
}

type SQLiteStorage struct {
	*sqlStorage
}

func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, errors.New("sqlite: path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	s, err := newSQLStorage(ctx, db, sqliteDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStorage{sqlStorage: s}, nil
}
