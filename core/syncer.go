// core/syncer.go
package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chhz0/polytasks/middleware"
	"github.com/chhz0/polytasks/retry"
	"github.com/chhz0/polytasks/transport"
	"github.com/chhz0/polytasks/types"
)

// ReloadFunc 收到其他上下文的变更并重新加载后调用，参数为最新快照
type ReloadFunc func(tasks []types.Task)

// Syncer 订阅变更信号，在其他上下文写入后重新加载Manager
type Syncer struct {
	manager   *Manager
	transport transport.Transport
	onReload  ReloadFunc
	handler   middleware.Handler
	policy    retry.RetryPolicy
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // 当前消费协程退出时关闭
}

type SyncerOption func(*Syncer)

func WithSyncerLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithResubscribePolicy(policy retry.RetryPolicy) SyncerOption {
	return func(s *Syncer) {
		if policy != nil {
			s.policy = policy
		}
	}
}

func NewSyncer(manager *Manager, t transport.Transport, onReload ReloadFunc, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		manager:   manager,
		transport: t,
		onReload:  onReload,
		policy: &retry.ExponentialBackoff{
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			MaxAttempts:  10,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = middleware.Chain(
		middleware.Recover(),
		middleware.Logger(s.logger),
		middleware.Timeout(10*time.Second),
	)(s.reload)
	return s
}

// Start 建立订阅后返回；订阅在后台协程中消费。
// 消费协程因重新订阅失败退出后，可以再次 Start。
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningLocked() {
		return nil
	}
	s.resetLocked()

	ctx, cancel := context.WithCancel(ctx)
	ch, err := s.transport.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, ch, s.done)
	return nil
}

func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Running 报告消费协程是否仍在运行
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *Syncer) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Syncer) resetLocked() {
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Syncer) run(ctx context.Context, ch <-chan types.Change, done chan struct{}) {
	defer close(done)

	for {
		for change := range ch {
			if !s.relevant(change) {
				continue
			}
			_ = s.handler(ctx, change)
		}

		if ctx.Err() != nil {
			return
		}

		// 订阅意外中断，按策略重新订阅
		s.logger.Warn("change subscription closed, resubscribing")
		err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
			next, err := s.transport.Subscribe(ctx)
			if errors.Is(err, transport.ErrClosed) {
				return retry.Permanent(err)
			}
			if err != nil {
				return err
			}
			ch = next
			return nil
		})
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrClosed) {
				s.logger.Error("resubscribe failed, syncer stopped", "error", err)
			}
			return
		}
	}
}

// 忽略自身发出的信号和其他键上的信号
func (s *Syncer) relevant(change types.Change) bool {
	return change.Origin != s.manager.ID() && change.Key == s.manager.Adapter().Key()
}

func (s *Syncer) reload(ctx context.Context, change types.Change) error {
	tasks := s.manager.ReloadTasks(ctx)
	if s.onReload != nil {
		s.onReload(tasks)
	}
	return nil
}
