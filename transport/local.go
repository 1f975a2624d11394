package transport

import (
	"context"
	"sync"

	"github.com/chhz0/polytasks/types"
)

// Local 进程内广播，每个订阅者都会收到每个信号
type Local struct {
	mu     sync.Mutex
	subs   map[int]chan types.Change
	nextID int
	closed bool
	done   chan struct{}
}

func NewLocal() *Local {
	return &Local{
		subs: make(map[int]chan types.Change),
		done: make(chan struct{}),
	}
}

// 订阅者缓冲区满时丢弃信号：信号只触发重新加载，已排队的信号足以让订阅者收敛
func (l *Local) Publish(ctx context.Context, change types.Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	for _, ch := range l.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	id := l.nextID
	l.nextID++
	ch := make(chan types.Change, subscriberBuffer)
	l.subs[id] = ch

	go func() {
		select {
		case <-ctx.Done():
			l.unsubscribe(id)
		case <-l.done:
		}
	}()

	return ch, nil
}

func (l *Local) unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.subs[id]; ok {
		delete(l.subs, id)
		close(ch)
	}
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
	return nil
}
