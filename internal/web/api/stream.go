package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/internal/core/hub"
	"github.com/gowvp/sentinel/internal/core/pipeline"
)

const frameBoundary = "frame"

// StreamAPI MJPEG 实时画面
type StreamAPI struct {
	hub    *hub.Hub
	runner *pipeline.Runner

	receiveTimeout time.Duration
	maxTimeouts    int
	writeTimeout   time.Duration
}

func NewStreamAPI(h *hub.Hub, runner *pipeline.Runner, cfg *conf.Bootstrap) StreamAPI {
	s := cfg.Stream
	api := StreamAPI{
		hub:            h,
		runner:         runner,
		receiveTimeout: s.ReceiveTimeout.Duration(),
		maxTimeouts:    s.MaxTimeouts,
		writeTimeout:   s.WriteTimeout.Duration(),
	}
	if api.receiveTimeout <= 0 {
		api.receiveTimeout = 5 * time.Second
	}
	if api.maxTimeouts <= 0 {
		api.maxTimeouts = 3
	}
	if api.writeTimeout <= 0 {
		api.writeTimeout = 10 * time.Second
	}
	return api
}

func RegisterStream(g gin.IRouter, api StreamAPI, handler ...gin.HandlerFunc) {
	g.GET("/video_feed", append(handler, api.videoFeed)...)
}

// videoFeed multipart/x-mixed-replace 推送 JPEG 帧，直到客户端断开或长时间无帧
func (a StreamAPI) videoFeed(c *gin.Context) {
	if a.runner.Degraded() {
		msg := "视频分析未启动"
		if err := a.runner.Err(); err != nil {
			msg += ": " + err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 1, "msg": msg})
		return
	}

	sub := a.hub.Subscribe()
	defer a.hub.Unsubscribe(sub.ID())

	ctx := c.Request.Context()
	log := slog.With("subscriber", sub.ID(), "remote", c.ClientIP())
	log.InfoContext(ctx, "stream client connected", "subscribers", a.hub.Len())

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Status(http.StatusOK)

	rc := http.NewResponseController(c.Writer)
	if err := rc.Flush(); err != nil {
		return
	}

	var sent, timeouts int
	defer func() {
		log.InfoContext(ctx, "stream client disconnected", "frames", sent, "dropped", sub.Dropped())
	}()
	for {
		frame, err := sub.Receive(ctx, a.receiveTimeout)
		if errors.Is(err, hub.ErrTimeout) {
			timeouts++
			if timeouts >= a.maxTimeouts {
				log.WarnContext(ctx, "no frames, closing stream", "timeouts", timeouts)
				return
			}
			continue
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, hub.ErrClosed) {
				log.WarnContext(ctx, "receive frame", "err", err)
			}
			return
		}
		timeouts = 0

		_ = rc.SetWriteDeadline(time.Now().Add(a.writeTimeout))
		if err := writeFramePart(c.Writer, frame); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
		sent++
	}
}

// writeFramePart 写出一个 multipart 分段
func writeFramePart(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", frameBoundary); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
