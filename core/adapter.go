// core/adapter.go
package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chhz0/polytasks/storage"
	"github.com/chhz0/polytasks/types"
)

const DefaultKey = "polyTasks.todoList"

// Adapter 将整个任务列表序列化后存放在单个键下
type Adapter struct {
	store  storage.Storage
	key    string
	logger *slog.Logger
}

type AdapterOption func(*Adapter)

func WithKey(key string) AdapterOption {
	return func(a *Adapter) {
		if key != "" {
			a.key = key
		}
	}
}

func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAdapter(store storage.Storage, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Key() string {
	return a.key
}

// Load 读取任务列表；缺失、损坏或读取失败都视为空列表
func (a *Adapter) Load(ctx context.Context) []types.Task {
	raw, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.logger.Error("failed to read tasks from storage", "key", a.key, "error", err)
		return []types.Task{}
	}
	if !ok || raw == "" {
		return []types.Task{}
	}

	tasks, skipped, err := types.DecodeTasks(raw)
	if err != nil {
		a.logger.Warn("failed to parse tasks from storage", "key", a.key, "error", err)
		return []types.Task{}
	}
	if skipped > 0 {
		a.logger.Warn("skipped malformed tasks in storage", "key", a.key, "skipped", skipped)
	}
	return tasks
}

// Save 覆盖写入完整列表
func (a *Adapter) Save(ctx context.Context, tasks []types.Task) error {
	raw, err := types.EncodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	if err := a.store.Set(ctx, a.key, raw); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// Clear 删除存储的列表
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.store.Remove(ctx, a.key); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	return nil
}
