package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/chhz0/polytasks/types"
)

// Publisher 变更信号的发布端，transport.Transport满足该接口
type Publisher interface {
	Publish(ctx context.Context, change types.Change) error
}

// NotifyingStorage 在每次成功写入后发布变更信号
type NotifyingStorage struct {
	Storage
	publisher Publisher
	origin    string
	logger    *slog.Logger
}

func Notifying(inner Storage, publisher Publisher, origin string, logger *slog.Logger) *NotifyingStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyingStorage{
		Storage:   inner,
		publisher: publisher,
		origin:    origin,
		logger:    logger,
	}
}

func (s *NotifyingStorage) Set(ctx context.Context, key, value string) error {
	if err := s.Storage.Set(ctx, key, value); err != nil {
		return err
	}
	s.publish(ctx, key, types.OpSet)
	return nil
}

func (s *NotifyingStorage) Remove(ctx context.Context, key string) error {
	if err := s.Storage.Remove(ctx, key); err != nil {
		return err
	}
	s.publish(ctx, key, types.OpRemove)
	return nil
}

// 写入已经完成，发布失败只记录日志
func (s *NotifyingStorage) publish(ctx context.Context, key string, op types.ChangeOp) {
	change := types.Change{
		Origin: s.origin,
		Key:    key,
		Op:     op,
		At:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.Warn("publish change failed", "key", key, "op", string(op), "error", err)
	}
}
