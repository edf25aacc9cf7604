// Package app 进程生命周期：日志、依赖装配、http 服务与视频分析循环
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/web/api"
	"golang.org/x/sync/errgroup"
)

// SetupLog 初始化全局日志
func SetupLog(cfg conf.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var h slog.Handler = slog.NewTextHandler(os.Stdout, &opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(os.Stdout, &opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// Run 阻塞运行直到收到退出信号
// 视频分析失败不会退出进程，http 服务继续提供历史事件与降级页面
func Run(bc *conf.Bootstrap) error {
	uc, cleanup, err := wireApp(bc)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           api.NewHTTPHandler(uc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := uc.Runner.Run(gctx); err != nil {
			slog.Error("pipeline exited", "err", err)
		}
		return nil
	})
	if bc.Archive.Enabled {
		g.Go(func() error {
			uc.Archive.StartCleanupWorker(gctx, bc.Archive.RetainDays)
			return nil
		})
	}
	g.Go(func() error {
		slog.Info("http server listening", "addr", svc.Addr)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		// 先关闭广播，结束所有推流连接，否则 Shutdown 会一直等待
		uc.Hub.Close()

		timeout := bc.Server.HTTP.ShutdownTimeout.Duration()
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return svc.Shutdown(sctx)
	})
	return g.Wait()
}
