// server/server.go
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chhz0/polytasks/core"
)

type Server struct {
	manager         *core.Manager
	syncer          *core.Syncer
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	Manager         *core.Manager
	// Syncer 可选，为空时不订阅其他上下文的变更
	Syncer *core.Syncer
	Logger *slog.Logger
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("manager cannot be nil")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Server{
		manager:         cfg.Manager,
		syncer:          cfg.Syncer,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           newRouter(cfg.Manager, cfg.Logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 阻塞直到ctx结束、收到退出信号或HTTP服务出错
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 启动同步
	if s.syncer != nil {
		if err := s.syncer.Start(ctx); err != nil {
			return err
		}
		defer s.syncer.Stop()
	}

	// 启动HTTP服务器
	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 处理信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer shutdownCancel()
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
