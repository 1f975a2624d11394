package storage

import (
	"context"
	"errors"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrClosed         = errors.New("storage closed")
)

// Storage 同步键值存储
type Storage interface {
	// Get 返回键对应的值；键不存在时ok为false
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options 打开存储后端所需参数，各后端只读取自己关心的字段
type Options struct {
	Backend  string
	Path     string // bolt / sqlite 文件路径
	DSN      string // mysql
	Addr     string // redis
	Password string
	DB       int
	Prefix   string
}
