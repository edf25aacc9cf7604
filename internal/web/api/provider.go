package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/gowvp/sentinel/internal/adapter/capture"
	"github.com/gowvp/sentinel/internal/adapter/detector"
	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/gowvp/sentinel/internal/core/hub"
	"github.com/gowvp/sentinel/internal/core/pipeline"
	"github.com/ixugo/goddd/pkg/web"
)

var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewEventJournal, NewEventCore, NewRecordStore, NewArchiveCore, NewEventAPI,
	NewHub, NewStreamAPI,
	NewCaptureSource, NewDetector, NewRunner,
)

type Usecase struct {
	Conf    *conf.Bootstrap
	Hub     *hub.Hub
	Runner  *pipeline.Runner
	Archive event.ArchiveCore

	EventAPI  EventAPI
	StreamAPI StreamAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	cfg := uc.Conf.Server
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	// 如果启用了 Pprof，设置 Pprof 监控
	if cfg.HTTP.PProf.Enabled {
		web.SetupPProf(g, &cfg.HTTP.PProf.AccessIps)
	}
	setupRouter(g, uc)
	return g
}

// NewHub 帧广播
func NewHub(cfg *conf.Bootstrap) *hub.Hub {
	return hub.New(cfg.Stream.Buffer)
}

// NewCaptureSource 视频源
func NewCaptureSource(cfg *conf.Bootstrap) pipeline.Source {
	return capture.NewSource(cfg.Capture)
}

// NewDetector 目标检测服务
func NewDetector(cfg *conf.Bootstrap) pipeline.Detector {
	return detector.NewHTTPDetector(cfg.Detector)
}

// NewRunner 主处理循环，archive.enabled 为 false 时不归档
func NewRunner(cfg *conf.Bootstrap, src pipeline.Source, det pipeline.Detector, events *event.Core, h *hub.Hub, archive event.ArchiveCore) *pipeline.Runner {
	opts := []pipeline.Option{
		pipeline.WithJPEGQuality(cfg.Stream.JPEGQuality),
		pipeline.WithLogger(slog.Default()),
	}
	if cfg.Archive.Enabled {
		opts = append(opts, pipeline.WithArchiver(archive))
	}
	return pipeline.NewRunner(src, det, events, h, opts...)
}
