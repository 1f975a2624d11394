// retry/policy.go
package retry

import (
	"math"
	"time"
)

// 重试策略接口
type RetryPolicy interface {
	NextRetry(attempt int) (time.Duration, bool)
}

// 指数退避策略
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

func (p *ExponentialBackoff) NextRetry(attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}

	delay := p.InitialDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}

// 固定间隔策略
type FixedInterval struct {
	Interval    time.Duration
	MaxAttempts int
}

func (p *FixedInterval) NextRetry(attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	return p.Interval, true
}

// 连接网络后端时使用的默认策略
func DefaultPolicy() RetryPolicy {
	return &ExponentialBackoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		MaxAttempts:  5,
	}
}
