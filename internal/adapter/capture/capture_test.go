package capture

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gowvp/sentinel/internal/conf"
)

func TestSyntheticLimit(t *testing.T) {
	ctx := context.Background()
	s := NewSynthetic(64, 48, 0, 3)
	if _, err := s.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("read before open should end the stream, got %v", err)
	}
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		f, err := s.Read(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.Seq != uint64(i) {
			t.Fatalf("seq = %d, want %d", f.Seq, i)
		}
		if b := f.Image.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
			t.Fatalf("bounds = %v", b)
		}
	}
	if _, err := s.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSyntheticPacing(t *testing.T) {
	ctx := context.Background()
	s := NewSynthetic(32, 32, 50, 0)
	_ = s.Open(ctx)
	start := time.Now()
	for range 4 {
		if _, err := s.Read(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("frames not paced, elapsed %s", elapsed)
	}
	_ = s.Close()
	if _, err := s.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("read after close, got %v", err)
	}
}

func TestNewSource(t *testing.T) {
	if _, ok := NewSource(conf.Capture{Source: "synthetic://"}).(*Synthetic); !ok {
		t.Fatal("synthetic scheme should select the synthetic source")
	}
	if _, ok := NewSource(conf.Capture{Source: "rtsp://cam/1"}).(*FFmpeg); !ok {
		t.Fatal("rtsp url should select ffmpeg")
	}
}

func TestFFmpegReadBeforeOpen(t *testing.T) {
	f := NewFFmpeg(conf.Capture{Source: "/dev/null"})
	if _, err := f.Read(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}
