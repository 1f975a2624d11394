package storage

import (
	"context"
	"database/sql"
	"errors"
)

// sqlDialect 不同SQL方言的语句
type sqlDialect struct {
	schema string
	get    string
	upsert string
	remove string
}

// sqlStorage 基于kv表的通用实现，由SQLite和MySQL后端共用
type sqlStorage struct {
	db      *sql.DB
	dialect sqlDialect
}

func newSQLStorage(ctx context.Context, db *sql.DB, dialect sqlDialect) (*sqlStorage, error) {
	if _, err := db.ExecContext(ctx, dialect.schema); err != nil {
		return nil, err
	}
	return &sqlStorage{db: db, dialect: dialect}, nil
}

func (s *sqlStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *sqlStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value)
	return err
}

func (s *sqlStorage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.remove, key)
	return err
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}
