// Package overlay renders the annotated preview frames shown to the viewer:
// bounding box, per-face label and status text.
package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	green = color.RGBA{0, 255, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

const borderWidth = 2

// Annotation describes what to draw on top of a frame.
type Annotation struct {
	Box      *image.Rectangle // detected face, nil when no face this frame
	BoxLabel string           // label drawn above the box
	Match    bool             // green box/label on match, red otherwise
	Lines    []string         // status lines drawn in the top-left corner
}

// Render copies the frame and draws the annotation onto the copy. The
// original frame is never modified; the copy is safe to hand to the
// streaming consumer.
func Render(frame image.Image, a Annotation) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	boxColor := red
	if a.Match {
		boxColor = green
	}

	if a.Box != nil {
		drawBorder(out, *a.Box, boxColor)
		if a.BoxLabel != "" {
			drawText(out, a.Box.Min.X, a.Box.Min.Y-6, a.BoxLabel, boxColor)
		}
	}

	y := b.Min.Y + 20
	for _, line := range a.Lines {
		drawText(out, b.Min.X+10, y, line, white)
		y += 16
	}
	return out
}

func drawBorder(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for w := 0; w < borderWidth; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, clampY(img, r.Min.Y+w), c)
			img.SetRGBA(x, clampY(img, r.Max.Y-1-w), c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(clampX(img, r.Min.X+w), y, c)
			img.SetRGBA(clampX(img, r.Max.X-1-w), y, c)
		}
	}
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func clampX(img *image.RGBA, x int) int {
	b := img.Bounds()
	if x < b.Min.X {
		return b.Min.X
	}
	if x >= b.Max.X {
		return b.Max.X - 1
	}
	return x
}

func clampY(img *image.RGBA, y int) int {
	b := img.Bounds()
	if y < b.Min.Y {
		return b.Min.Y
	}
	if y >= b.Max.Y {
		return b.Max.Y - 1
	}
	return y
}
