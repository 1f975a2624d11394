// middleware/middleware.go
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chhz0/polytasks/types"
)

type Handler func(ctx context.Context, change types.Change) error
type Middleware func(next Handler) Handler

// 中间件链
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// 超时中间件
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, change types.Change) error {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, change)
		}
	}
}

// 日志中间件
func Logger(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, change types.Change) error {
			start := time.Now()
			err := next(ctx, change)

			attrs := []any{
				"origin", change.Origin,
				"key", change.Key,
				"op", string(change.Op),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Error("change handling failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("change handled", attrs...)
			}
			return err
		}
	}
}

// panic转为错误，避免同步协程退出
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, change types.Change) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("change handler panicked: %v", r)
				}
			}()
			return next(ctx, change)
		}
	}
}
