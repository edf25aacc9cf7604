// Package pipeline 采集、检测、事件判定与帧广播的主循环
package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/gowvp/sentinel/internal/core/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrCaptureUnavailable 视频源无法打开
	ErrCaptureUnavailable = errors.New("pipeline: capture unavailable")
	// ErrModelUnavailable 检测服务不可用
	ErrModelUnavailable = errors.New("pipeline: model unavailable")
	// ErrAlreadyStarted 同一个 Runner 只能运行一次
	ErrAlreadyStarted = errors.New("pipeline: already started")
)

// Frame 采集到的一帧画面
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Image      image.Image
}

// Detection 检测结果，Annotated 为绘制了检测框的画面
type Detection struct {
	Objects   []event.DetectedObject
	Annotated image.Image
}

// Source 视频源，Read 在流结束时返回 io.EOF
type Source interface {
	Open(ctx context.Context) error
	Read(ctx context.Context) (*Frame, error)
	Close() error
}

// Detector 目标检测
type Detector interface {
	Open(ctx context.Context) error
	Detect(ctx context.Context, img image.Image) (*Detection, error)
	Close() error
}

// EventStore 事件判定与记录
type EventStore interface {
	Consider(ctx context.Context, objects []event.DetectedObject, at time.Time) (bool, error)
}

// Archiver 事件归档
type Archiver interface {
	Archive(ctx context.Context, ev event.SecurityEvent, snapshot []byte) error
}

// Publisher 帧广播
type Publisher interface {
	Publish(frame []byte)
}

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_pipeline_ticks_total",
		Help: "Frames processed by the pipeline.",
	})
	detectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_pipeline_detection_failures_total",
		Help: "Frames published raw because detection failed.",
	})
	encodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_pipeline_encode_failures_total",
		Help: "Frames dropped from the stream because JPEG encoding failed.",
	})
	considered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_events_considered_total",
		Help: "Event considerations by result.",
	}, []string{"result"})
)
