// Package annotate 在画面上绘制检测框与标签
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Box 像素坐标的检测框
type Box struct {
	Rect  image.Rectangle
	Label string
	Score float64
}

var palette = []color.RGBA{
	{R: 0xff, G: 0x38, B: 0x38, A: 0xff},
	{R: 0x38, G: 0xb2, B: 0xff, A: 0xff},
	{R: 0x3d, G: 0xdb, B: 0x86, A: 0xff},
	{R: 0xff, G: 0xb2, B: 0x1d, A: 0xff},
	{R: 0xcf, G: 0x38, B: 0xff, A: 0xff},
}

// ColorFor 同一类别使用固定颜色
func ColorFor(label string) color.RGBA {
	var h uint32
	for i := 0; i < len(label); i++ {
		h = h*31 + uint32(label[i])
	}
	return palette[h%uint32(len(palette))]
}

// Draw 返回绘制后的新图像，原图不变
func Draw(src image.Image, boxes []Box, thickness int) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	thickness = max(thickness, 1)

	for _, b := range boxes {
		r := b.Rect.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		c := ColorFor(b.Label)
		rect(dst, r, c, thickness)
		label(dst, r, c, fmt.Sprintf("%s %.2f", b.Label, b.Score))
	}
	return dst
}

func rect(dst *image.RGBA, r image.Rectangle, c color.Color, t int) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

func label(dst *image.RGBA, r image.Rectangle, c color.Color, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	w := d.MeasureString(text).Ceil() + 4
	h := face.Height + 2

	// 框上方放不下时画在框内
	top := r.Min.Y - h
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	bg := image.Rect(r.Min.X, top, r.Min.X+w, top+h).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(c), image.Point{}, draw.Src)
	d.Dot = fixed.P(r.Min.X+2, top+face.Ascent+1)
	d.DrawString(text)
}
