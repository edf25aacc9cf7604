package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gowvp/sentinel/internal/conf"
	"github.com/gowvp/sentinel/pkg/ffwork"
)

var _ Source = (*FFmpeg)(nil)

// FFmpeg 通过 ffmpeg 子进程读取摄像头或网络流
type FFmpeg struct {
	cfg conf.Capture
	log *slog.Logger

	fc      *ffwork.FrameCapture
	pending *ffwork.FrameData
	once    sync.Once
}

func NewFFmpeg(cfg conf.Capture) *FFmpeg {
	return &FFmpeg{
		cfg: cfg,
		log: slog.With("component", "capture", "source", cfg.Source),
	}
}

func (f *FFmpeg) readTimeout() time.Duration {
	if d := f.cfg.ReadTimeout.Duration(); d > 0 {
		return d
	}
	return 10 * time.Second
}

// Open 启动 ffmpeg 并等待第一帧，读到画面才认为视频源可用
func (f *FFmpeg) Open(ctx context.Context) error {
	attempts := max(f.cfg.OpenAttempts, 1)
	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(time.Second):
			}
		}
		lastErr = f.open(ctx)
		if lastErr == nil {
			return nil
		}
		f.log.WarnContext(ctx, "open capture failed", "attempt", i+1, "err", lastErr)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
}

func (f *FFmpeg) open(ctx context.Context) error {
	fc, err := ffwork.NewFrameCapture(ffwork.Config{
		Width:     f.cfg.Width,
		Height:    f.cfg.Height,
		FPS:       f.cfg.FPS,
		Input:     f.cfg.Source,
		Format:    f.cfg.Format,
		Transport: f.cfg.Transport,
		HWAccel:   f.cfg.HWAccel,
		Name:      f.cfg.Source,
	})
	if err != nil {
		return err
	}
	if err := fc.Start(); err != nil {
		return err
	}
	first, err := fc.GetFrame(ctx, f.readTimeout())
	if err != nil {
		_ = fc.Stop()
		if tail := fc.Log(); len(tail) > 0 {
			return fmt.Errorf("%w (ffmpeg: %s)", err, strings.Join(tail[max(len(tail)-3, 0):], "; "))
		}
		return err
	}
	f.fc = fc
	f.pending = first
	f.log.InfoContext(ctx, "capture opened", "width", f.cfg.Width, "height", f.cfg.Height, "fps", f.cfg.FPS)
	return nil
}

// Read implements Source.
func (f *FFmpeg) Read(ctx context.Context) (*Frame, error) {
	if f.fc == nil {
		return nil, errors.New("capture: not opened")
	}
	data := f.pending
	f.pending = nil
	if data == nil {
		var err error
		data, err = f.fc.GetFrame(ctx, f.readTimeout())
		if err != nil {
			return nil, err
		}
	}
	img, err := ffwork.ToImage(data.Data, f.cfg.Width, f.cfg.Height)
	if err != nil {
		return nil, err
	}
	return &Frame{Seq: data.FrameNum, CapturedAt: data.Timestamp, Image: img}, nil
}

// Close implements Source.
func (f *FFmpeg) Close() error {
	var err error
	f.once.Do(func() {
		if f.fc == nil {
			return
		}
		stats := f.fc.GetStats()
		err = f.fc.Stop()
		f.log.Info("capture closed", "frames", stats.FrameCount, "skipped", stats.SkipCount)
	})
	return err
}
