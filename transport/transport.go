package transport

import (
	"context"
	"errors"

	"github.com/chhz0/polytasks/types"
)

var ErrClosed = errors.New("transport closed")

// Transport 跨上下文变更信号通道
type Transport interface {
	Publish(ctx context.Context, change types.Change) error
	// Subscribe 返回的通道在ctx结束或Transport关闭时被关闭
	Subscribe(ctx context.Context) (<-chan types.Change, error)
	Close() error
}

const subscriberBuffer = 100
