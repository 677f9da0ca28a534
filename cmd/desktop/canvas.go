package main

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"kikitoby/game"
)

// screenCanvas draws onto the Ebitengine screen. The layout equals the field size,
// so field units are screen pixels.
type screenCanvas struct {
	screen *ebiten.Image
	images map[image.Image]*ebiten.Image
	face   text.Face
}

func newScreenCanvas() *screenCanvas {
	return &screenCanvas{
		images: make(map[image.Image]*ebiten.Image),
		face:   text.NewGoXFace(basicfont.Face7x13),
	}
}

func (c *screenCanvas) FillRect(r game.Rect, clr color.RGBA) {
	vector.DrawFilledRect(c.screen, float32(r.X), float32(r.Y), float32(r.W), float32(r.H), clr, false)
}

func (c *screenCanvas) FillCircle(cx, cy, radius float64, clr color.RGBA) {
	vector.DrawFilledCircle(c.screen, float32(cx), float32(cy), float32(radius), clr, true)
}

func (c *screenCanvas) DrawImage(img image.Image, dst game.Rect, flipX bool, alpha float64) {
	eimg, ok := c.images[img]
	if !ok {
		eimg = ebiten.NewImageFromImage(img)
		c.images[img] = eimg
	}
	b := eimg.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}

	op := &ebiten.DrawImageOptions{}
	if flipX {
		op.GeoM.Scale(-1, 1)
		op.GeoM.Translate(float64(b.Dx()), 0)
	}
	op.GeoM.Scale(dst.W/float64(b.Dx()), dst.H/float64(b.Dy()))
	op.GeoM.Translate(dst.X, dst.Y)
	op.ColorScale.ScaleAlpha(float32(alpha))
	op.Filter = ebiten.FilterLinear
	c.screen.DrawImage(eimg, op)
}

func (c *screenCanvas) Text(x, y float64, s string, clr color.RGBA, size game.TextSize, align game.Align) {
	scale := 1.0
	switch size {
	case game.TextMedium:
		scale = 1.5
	case game.TextLarge:
		scale = 3
	}

	op := &text.DrawOptions{}
	op.GeoM.Scale(scale, scale)
	// y is the baseline
	op.GeoM.Translate(x, y-c.face.Metrics().HAscent*scale)
	op.ColorScale.ScaleWithColor(clr)
	switch align {
	case game.AlignCenter:
		op.PrimaryAlign = text.AlignCenter
	case game.AlignRight:
		op.PrimaryAlign = text.AlignEnd
	}
	text.Draw(c.screen, s, c.face, op)
}
