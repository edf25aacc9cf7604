package capture

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync/atomic"
	"time"
)

var _ Source = (*Synthetic)(nil)

// Synthetic 生成移动色块的测试画面，用于无摄像头环境联调
type Synthetic struct {
	width, height int
	interval      time.Duration
	limit         uint64

	seq    uint64
	opened atomic.Bool
	closed atomic.Bool
	last   time.Time
}

// NewSynthetic fps 为 0 时不限速，limit 为 0 时不结束
func NewSynthetic(width, height, fps, limit int) *Synthetic {
	if width <= 0 || height <= 0 {
		width, height = 320, 240
	}
	var interval time.Duration
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	return &Synthetic{
		width:    width,
		height:   height,
		interval: interval,
		limit:    uint64(max(limit, 0)),
	}
}

func (s *Synthetic) Open(context.Context) error {
	s.opened.Store(true)
	return nil
}

func (s *Synthetic) Read(ctx context.Context) (*Frame, error) {
	if !s.opened.Load() || s.closed.Load() {
		return nil, io.EOF
	}
	if s.limit > 0 && s.seq >= s.limit {
		return nil, io.EOF
	}
	if s.interval > 0 && !s.last.IsZero() {
		if wait := s.interval - time.Since(s.last); wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	s.last = time.Now()
	s.seq++
	return &Frame{Seq: s.seq, CapturedAt: s.last, Image: s.render(s.seq)}, nil
}

func (s *Synthetic) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Synthetic) render(seq uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	bg := color.RGBA{R: 32, G: 40, B: 48, A: 0xff}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	size := max(s.height/4, 1)
	offset := int(seq*4) % max(s.width-size, 1)
	top := (s.height - size) / 2
	block := color.RGBA{R: 220, G: 180, B: 40, A: 0xff}
	for y := top; y < top+size; y++ {
		for x := offset; x < offset+size && x < s.width; x++ {
			img.SetRGBA(x, y, block)
		}
	}
	return img
}
