package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gowvp/sentinel/internal/core/event"
)

// DefaultJPEGQuality 发布帧的默认 JPEG 质量
const DefaultJPEGQuality = 80

// Runner 驱动 采集 → 检测 → 事件判定 → 广播
// 单个 goroutine 调用 Run，其它 goroutine 只读取状态
type Runner struct {
	source   Source
	detector Detector
	events   EventStore
	hub      Publisher
	archiver Archiver

	quality int
	log     *slog.Logger
	now     func() time.Time

	started atomic.Bool
	state   atomic.Int32
	running atomic.Bool

	mu  sync.RWMutex
	err error
}

// Option 可选配置
type Option func(*Runner)

// WithArchiver 接受的事件同时归档
func WithArchiver(a Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithJPEGQuality 1~100，超出范围使用默认值
func WithJPEGQuality(q int) Option {
	return func(r *Runner) {
		if q >= 1 && q <= 100 {
			r.quality = q
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

func NewRunner(source Source, detector Detector, events EventStore, hub Publisher, opts ...Option) *Runner {
	r := Runner{
		source:   source,
		detector: detector,
		events:   events,
		hub:      hub,
		quality:  DefaultJPEGQuality,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&r)
	}
	r.log = r.log.With("component", "pipeline")
	return &r
}

// State 当前状态
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Err 运行结束的原因，正常结束为 nil
func (r *Runner) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Degraded 已停止且从未进入运行状态
func (r *Runner) Degraded() bool {
	return r.State() == StateStopped && !r.running.Load()
}

// Run 阻塞运行直到流结束、出错或 ctx 取消
// ctx 只在每帧开始前检查，取消后会处理完当前帧再退出
func (r *Runner) Run(ctx context.Context) (err error) {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	r.state.Store(int32(StateStarting))
	defer func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		r.state.Store(int32(StateStopped))
		r.log.Info("pipeline stopped", "err", err)
	}()

	if err := r.source.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := r.source.Close(); err != nil {
				r.log.Warn("close capture", "err", err)
			}
		})
	}
	defer release()

	if err := r.detector.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer func() {
		if err := r.detector.Close(); err != nil {
			r.log.Warn("close detector", "err", err)
		}
	}()

	r.running.Store(true)
	r.state.Store(int32(StateRunning))
	r.log.InfoContext(ctx, "pipeline running")

	for {
		if ctx.Err() != nil {
			r.state.Store(int32(StateStopping))
			return nil
		}
		if err := r.tick(ctx); err != nil {
			r.state.Store(int32(StateStopping))
			switch {
			case errors.Is(err, io.EOF):
				r.log.InfoContext(ctx, "capture stream ended")
				return nil
			case ctx.Err() != nil:
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
	}
}

// tick 处理一帧，只有读取失败才返回错误
func (r *Runner) tick(ctx context.Context) error {
	frame, err := r.source.Read(ctx)
	if err != nil {
		return err
	}
	ticksTotal.Inc()
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = r.now()
	}

	rec := r.process(ctx, frame)

	ok, err := r.events.Consider(ctx, rec.Objects, rec.CapturedAt)
	switch {
	case err != nil:
		considered.WithLabelValues("error").Inc()
		r.log.ErrorContext(ctx, "record event", "err", err)
	case ok:
		considered.WithLabelValues("accepted").Inc()
		r.archive(ctx, rec)
	default:
		considered.WithLabelValues("rejected").Inc()
	}

	// 编码失败的帧不广播，事件判定不受影响
	if rec.Frame != nil {
		r.hub.Publish(rec.Frame)
	}
	return nil
}

// process 检测失败时退回原始画面，编码失败时 Frame 为 nil
func (r *Runner) process(ctx context.Context, frame *Frame) DetectionRecord {
	img := frame.Image
	outcome := Annotated
	var objects []event.DetectedObject

	det, err := r.detect(ctx, frame.Image)
	if err != nil || det == nil {
		detectFailures.Inc()
		r.log.WarnContext(ctx, "detect failed, publishing raw frame", "seq", frame.Seq, "err", err)
		outcome = RawFallback
	} else {
		objects = det.Objects
		if det.Annotated != nil {
			img = det.Annotated
		}
	}

	data, err := r.encode(img)
	if err != nil {
		encodeFailures.Inc()
		r.log.ErrorContext(ctx, "encode frame", "seq", frame.Seq, "err", err)
	}
	return newRecord(frame, objects, data, outcome)
}

// detect 将检测器的 panic 转为错误，单帧异常不终止流水线
func (r *Runner) detect(ctx context.Context, img image.Image) (det *Detection, err error) {
	defer func() {
		if p := recover(); p != nil {
			det, err = nil, fmt.Errorf("detector panic: %v", p)
		}
	}()
	return r.detector.Detect(ctx, img)
}

func (r *Runner) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Runner) archive(ctx context.Context, rec DetectionRecord) {
	if r.archiver == nil {
		return
	}
	ev := event.SecurityEvent{Timestamp: rec.CapturedAt, ObjectsDetected: rec.Objects}
	if err := r.archiver.Archive(ctx, ev, rec.Frame); err != nil {
		r.log.ErrorContext(ctx, "archive event", "err", err)
	}
}
