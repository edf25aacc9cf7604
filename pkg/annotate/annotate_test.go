package annotate

import (
	"image"
	"image/color"
	"testing"
)

func TestDraw(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 80))
	out := Draw(src, []Box{{Rect: image.Rect(20, 30, 60, 70), Label: "person", Score: 0.91}}, 2)

	want := ColorFor("person")
	if got := out.RGBAAt(40, 69); got != want {
		t.Fatalf("bottom edge = %v, want %v", got, want)
	}
	if got := out.RGBAAt(40, 50); got != (color.RGBA{}) {
		t.Fatalf("box interior should stay untouched, got %v", got)
	}
	if got := src.RGBAAt(40, 69); got != (color.RGBA{}) {
		t.Fatal("source image must not be modified")
	}
}

func TestDrawOutOfBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	out := Draw(src, []Box{{Rect: image.Rect(50, 50, 80, 80), Label: "car"}}, 1)
	for i, p := range out.Pix {
		if p != 0 {
			t.Fatalf("pixel %d changed", i)
		}
	}
}

func TestColorForStable(t *testing.T) {
	if ColorFor("dog") != ColorFor("dog") {
		t.Fatal("color must be deterministic")
	}
}
