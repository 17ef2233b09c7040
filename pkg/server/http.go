package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"excel2dataverse/internal/app"
	"excel2dataverse/internal/job"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPServer 封装后台服务运行所需的依赖。
type HTTPServer struct {
	Engine  *gin.Engine
	Logger  *zap.Logger
	Config  app.Config
	Janitor *job.Scheduler
}

// NewHTTPServer 构建 HTTPServer。
func NewHTTPServer(engine *gin.Engine, logger *zap.Logger, cfg app.Config, janitor *job.Scheduler) *HTTPServer {
	return &HTTPServer{
		Engine:  engine,
		Logger:  logger,
		Config:  cfg,
		Janitor: janitor,
	}
}

// Run 启动 HTTP 服务及会话清理任务，ctx 取消后优雅退出。
func (s *HTTPServer) Run(ctx context.Context) error {
	listen := strings.TrimSpace(s.Config.HTTP.Listen)
	if listen == "" {
		listen = ":8080"
	}

	if s.Janitor != nil {
		stop := s.Janitor.Start(ctx)
		defer stop()
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if s.Logger != nil {
			s.Logger.Info("http server starting", zap.String("listen", listen))
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.Logger != nil {
		s.Logger.Info("http server shutting down")
	}
	return srv.Shutdown(shutdownCtx)
}

// Shutdown 释放资源。
func (s *HTTPServer) Shutdown(context.Context) {
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
}
