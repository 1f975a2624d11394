package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chhz0/polytasks/retry"
)

// 网络后端启动时可能尚未就绪，按默认退避策略重试
func pingWithRetry(ctx context.Context, ping func(ctx context.Context) error) error {
	return retry.Do(ctx, retry.DefaultPolicy(), ping)
}

// 文件后端的数据目录可能尚不存在
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
