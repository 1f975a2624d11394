// core/ids.go
package core

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// IDSource 生成任务ID；返回的bool表示是否使用了降级方案
type IDSource func() (id string, degraded bool)

// 优先使用crypto/rand生成的UUID；安全随机源不可用时退化为
// "task-<毫秒时间戳>-<16位十六进制随机数>"，单次会话内实际不会冲突
func newIDSource(secure func() (uuid.UUID, error), now func() time.Time) IDSource {
	return func() (string, bool) {
		if id, err := secure(); err == nil {
			return id.String(), false
		}
		return fallbackID(now()), true
	}
}

func fallbackID(now time.Time) string {
	return fmt.Sprintf("task-%d-%016x", now.UnixMilli(), rand.Uint64())
}

func defaultIDSource() IDSource {
	return newIDSource(uuid.NewRandom, time.Now)
}
