package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chhz0/polytasks/config"
	"github.com/chhz0/polytasks/core"
	"github.com/chhz0/polytasks/logging"
	"github.com/chhz0/polytasks/retry"
	"github.com/chhz0/polytasks/storage"
	"github.com/chhz0/polytasks/transport"
	"github.com/google/uuid"
)

type globalOptions struct {
	ConfigPath string
	Backend    string
	Path       string
	LogLevel   string
}

// runtime 一次命令执行所需的全部组件
type runtime struct {
	cfg       config.Config
	logger    *slog.Logger
	store     storage.Storage
	transport transport.Transport
	manager   *core.Manager
	closers   []io.Closer
}

func (g *globalOptions) flagOverrides() config.FlagOverrides {
	var flags config.FlagOverrides
	if g.Backend != "" {
		flags.Backend = &g.Backend
	}
	if g.Path != "" {
		flags.Path = &g.Path
	}
	if g.LogLevel != "" {
		flags.LogLevel = &g.LogLevel
	}
	return flags
}

func openRuntime(ctx context.Context, g *globalOptions) (*runtime, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: g.ConfigPath,
		Flags:      g.flagOverrides(),
	})
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, logCloser)

	store, err := storage.Open(ctx, storage.Options{
		Backend:  cfg.Storage.Backend,
		Path:     cfg.Storage.Path,
		DSN:      cfg.Storage.DSN,
		Addr:     cfg.Storage.Addr,
		Password: cfg.Storage.Password,
		DB:       cfg.Storage.DB,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	rt.store = store
	rt.closers = append(rt.closers, store)

	t, err := openTransport(cfg.Transport, logger)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open %s transport: %w", cfg.Transport.Kind, err)
	}

	origin := uuid.NewString()
	var kv storage.Storage = store
	if t != nil {
		rt.transport = t
		rt.closers = append(rt.closers, t)
		kv = storage.Notifying(store, t, origin, logger)
	}

	adapter := core.NewAdapter(kv, core.WithKey(cfg.Storage.Key), core.WithAdapterLogger(logger))
	rt.manager = core.NewManager(ctx, adapter, core.WithOrigin(origin), core.WithLogger(logger))
	return rt, nil
}

func openTransport(cfg config.TransportConfig, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "local":
		return transport.NewLocal(), nil
	case "redis":
		return transport.NewRedisTransport(transport.RedisOptions{
			Addr:          cfg.Addr,
			Password:      cfg.Password,
			DB:            cfg.DB,
			ChannelPrefix: cfg.Channel,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}

// syncerOptions 按配置构造 Syncer 选项
func (rt *runtime) syncerOptions() []core.SyncerOption {
	opts := []core.SyncerOption{core.WithSyncerLogger(rt.logger)}
	if policy := resubscribePolicy(rt.cfg.Transport); policy != nil {
		opts = append(opts, core.WithResubscribePolicy(policy))
	}
	return opts
}

// 未配置固定间隔时返回nil，沿用 Syncer 的指数退避
func resubscribePolicy(cfg config.TransportConfig) retry.RetryPolicy {
	if cfg.ResubscribeInterval <= 0 {
		return nil
	}
	return &retry.FixedInterval{
		Interval:    cfg.ResubscribeInterval,
		MaxAttempts: cfg.ResubscribeAttempts,
	}
}

// Close 逆序关闭
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
