package storage

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = sqlDialect{
	schema: `CREATE TABLE IF NOT EXISTS kv (
    item_key VARCHAR(255) NOT NULL PRIMARY KEY,
    item_value MEDIUMTEXT NOT NULL
)`,
	get:    `SELECT item_value FROM kv WHERE item_key = ?`,
	upsert: `INSERT INTO kv (item_key, item_value) VALUES (?, ?) ON DUPLICATE KEY UPDATE item_value = VALUES(item_value)`,
	remove: `DELETE FROM kv WHERE item_key = ?`,
}

type MySQLStorage struct {
	*sqlStorage
}

func NewMySQLStorage(ctx context.Context, dsn string) (*MySQLStorage, error) {
	if dsn == "" {
		return nil, errors.New("mysql: dsn must not be empty")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := pingWithRetry(ctx, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}

	s, err := newSQLStorage(ctx, db, mysqlDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &MySQLStorage{sqlStorage: s}, nil
}
