// storage/registry.go
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Opener func(ctx context.Context, opts Options) (Storage, error)

type Registry struct {
	openers map[string]Opener
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		openers: make(map[string]Opener),
	}
}

func (r *Registry) Register(backend string, opener Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[backend] = opener
}

func (r *Registry) GetOpener(backend string) (Opener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.openers[backend]
	return o, ok
}

func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.openers))
	for name := range r.openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Open(ctx context.Context, opts Options) (Storage, error) {
	opener, ok := r.GetOpener(opts.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	return opener(ctx, opts)
}

// 默认注册表，包含所有内置后端
var defaultRegistry = NewRegistry()

func init() {
	defaultRegistry.Register("memory", func(ctx context.Context, opts Options) (Storage, error) {
		return NewMemoryStorage(), nil
	})
	defaultRegistry.Register("bolt", func(ctx context.Context, opts Options) (Storage, error) {
		return NewBoltStorage(opts.Path)
	})
	defaultRegistry.Register("sqlite", func(ctx context.Context, opts Options) (Storage, error) {
		return NewSQLiteStorage(ctx, opts.Path)
	})
	defaultRegistry.Register("mysql", func(ctx context.Context, opts Options) (Storage, error) {
		return NewMySQLStorage(ctx, opts.DSN)
	})
	defaultRegistry.Register("redis", func(ctx context.Context, opts Options) (Storage, error) {
		return NewRedisStorage(ctx, opts.Addr, opts.Password, opts.DB, opts.Prefix)
	})
}

func Register(backend string, opener Opener) {
	defaultRegistry.Register(backend, opener)
}

func Backends() []string {
	return defaultRegistry.Backends()
}

// Open 按名称打开内置或已注册的后端
func Open(ctx context.Context, opts Options) (Storage, error) {
	return defaultRegistry.Open(ctx, opts)
}
