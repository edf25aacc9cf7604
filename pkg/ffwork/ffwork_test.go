package ffwork

import (
	"slices"
	"testing"
)

func TestNewFrameCaptureValidate(t *testing.T) {
	cases := []Config{
		{Width: 0, Height: 480, FPS: 10, Input: "/dev/video0"},
		{Width: 640, Height: 480, FPS: 0, Input: "/dev/video0"},
		{Width: 640, Height: 480, FPS: 10},
	}
	for _, cfg := range cases {
		if _, err := NewFrameCapture(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestBuildArgsDevice(t *testing.T) {
	fc, err := NewFrameCapture(Config{Width: 640, Height: 480, FPS: 10, Input: "/dev/video0", Format: "v4l2"})
	if err != nil {
		t.Fatal(err)
	}
	if fc.FrameSize() != 640*480*3 {
		t.Fatalf("frame size = %d", fc.FrameSize())
	}
	args := fc.buildFFmpegArgs()
	if slices.Contains(args, "-rtsp_transport") {
		t.Fatal("rtsp options must not be used for a local device")
	}
	i := slices.Index(args, "-i")
	if i < 2 || args[i-2] != "-f" || args[i-1] != "v4l2" || args[i+1] != "/dev/video0" {
		t.Fatalf("unexpected input args %v", args)
	}
	if args[len(args)-1] != "pipe:1" || !slices.Contains(args, "rgb24") {
		t.Fatalf("unexpected output args %v", args)
	}
}

func TestBuildArgsRTSP(t *testing.T) {
	fc, err := NewFrameCapture(Config{Width: 320, Height: 240, FPS: 5, Input: "rtsp://cam/live", Transport: "udp"})
	if err != nil {
		t.Fatal(err)
	}
	args := fc.buildFFmpegArgs()
	i := slices.Index(args, "-rtsp_transport")
	if i < 0 || args[i+1] != "udp" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestToImage(t *testing.T) {
	data := []byte{255, 0, 0, 0, 255, 0}
	img, err := ToImage(data, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 || a>>8 != 255 {
		t.Fatalf("pixel 0 = %d %d %d %d", r, g, b, a)
	}
	_, g, _, _ = img.At(1, 0).RGBA()
	if g>>8 != 255 {
		t.Fatalf("pixel 1 green = %d", g)
	}
	if _, err := ToImage(data, 3, 1); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
