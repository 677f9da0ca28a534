package main

import (
	"image"
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"

	"kikitoby/game"
)

type cell struct {
	bg color.RGBA
	fg color.RGBA
	ch rune
}

// cellCanvas rasterizes field units onto a grid of terminal cells. Each cell
// is sampled at its centre; text is laid over the cell colours.
type cellCanvas struct {
	cols, rows int
	sx, sy     float64 // field units per cell
	cells      []cell
}

func newCellCanvas(fieldW, fieldH float64) *cellCanvas {
	c := &cellCanvas{}
	c.resize(fieldW, fieldH, 80, 24)
	return c
}

func (c *cellCanvas) resize(fieldW, fieldH float64, cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c.cols, c.rows = cols, rows
	c.sx = fieldW / float64(cols)
	c.sy = fieldH / float64(rows)
	if len(c.cells) != cols*rows {
		c.cells = make([]cell, cols*rows)
	}
}

// span returns the cell range whose centres fall inside [a, a+w)
func span(a, w, unit float64, limit int) (int, int) {
	lo := int(math.Ceil(a/unit - 0.5))
	hi := int(math.Ceil((a+w)/unit - 0.5))
	if lo < 0 {
		lo = 0
	}
	if hi > limit {
		hi = limit
	}
	return lo, hi
}

func (c *cellCanvas) FillRect(r game.Rect, clr color.RGBA) {
	x0, x1 := span(r.X, r.W, c.sx, c.cols)
	y0, y1 := span(r.Y, r.H, c.sy, c.rows)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := &c.cells[y*c.cols+x]
			p.bg = blend(p.bg, clr, float64(clr.A)/255)
			if clr.A == 0xFF {
				p.ch = 0
			}
		}
	}
}

func (c *cellCanvas) FillCircle(cx, cy, radius float64, clr color.RGBA) {
	x0, x1 := span(cx-radius, 2*radius, c.sx, c.cols)
	y0, y1 := span(cy-radius, 2*radius, c.sy, c.rows)
	hit := false
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx := (float64(x)+0.5)*c.sx - cx
			dy := (float64(y)+0.5)*c.sy - cy
			if dx*dx+dy*dy <= radius*radius {
				c.cells[y*c.cols+x].bg = clr
				hit = true
			}
		}
	}
	// Small pickups still show up when no cell centre lands inside them
	if !hit {
		x, y := int(cx/c.sx), int(cy/c.sy)
		if x >= 0 && x < c.cols && y >= 0 && y < c.rows {
			p := &c.cells[y*c.cols+x]
			p.fg = clr
			p.ch = '●'
		}
	}
}

func (c *cellCanvas) DrawImage(img image.Image, dst game.Rect, flipX bool, alpha float64) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || dst.W <= 0 || dst.H <= 0 {
		return
	}
	x0, x1 := span(dst.X, dst.W, c.sx, c.cols)
	y0, y1 := span(dst.Y, dst.H, c.sy, c.rows)
	for y := y0; y < y1; y++ {
		v := ((float64(y)+0.5)*c.sy - dst.Y) / dst.H
		for x := x0; x < x1; x++ {
			u := ((float64(x)+0.5)*c.sx - dst.X) / dst.W
			if flipX {
				u = 1 - u
			}
			px := b.Min.X + int(u*float64(b.Dx()))
			py := b.Min.Y + int(v*float64(b.Dy()))
			src := color.RGBAModel.Convert(img.At(px, py)).(color.RGBA)
			if src.A == 0 {
				continue
			}
			p := &c.cells[y*c.cols+x]
			// RGBAModel is premultiplied; undo it before blending
			a := float64(src.A) / 255
			straight := color.RGBA{
				R: uint8(float64(src.R) / a),
				G: uint8(float64(src.G) / a),
				B: uint8(float64(src.B) / a),
				A: 255,
			}
			p.bg = blend(p.bg, straight, a*alpha)
			p.ch = 0
		}
	}
}

func (c *cellCanvas) Text(x, y float64, s string, clr color.RGBA, _ game.TextSize, align game.Align) {
	runes := []rune(s)
	col := int(x / c.sx)
	switch align {
	case game.AlignCenter:
		col -= len(runes) / 2
	case game.AlignRight:
		col -= len(runes)
	}
	row := int(y / c.sy)
	if row < 0 || row >= c.rows {
		return
	}
	for i, r := range runes {
		cx := col + i
		if cx < 0 || cx >= c.cols {
			continue
		}
		p := &c.cells[row*c.cols+cx]
		p.ch = r
		p.fg = clr
	}
}

// flush copies the grid to the screen
func (c *cellCanvas) flush(s tcell.Screen) {
	for y := 0; y < c.rows; y++ {
		for x := 0; x < c.cols; x++ {
			p := c.cells[y*c.cols+x]
			st := tcell.StyleDefault.Background(rgb(p.bg)).Foreground(rgb(p.fg))
			ch := p.ch
			if ch == 0 {
				ch = ' '
			}
			s.SetContent(x, y, ch, nil, st)
		}
	}
	s.Show()
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// blend mixes src over dst with coverage a in [0, 1]
func blend(dst, src color.RGBA, a float64) color.RGBA {
	if a >= 1 {
		src.A = 255
		return src
	}
	if a <= 0 {
		return dst
	}
	mix := func(d, s uint8) uint8 {
		return uint8(float64(d)*(1-a) + float64(s)*a + 0.5)
	}
	return color.RGBA{R: mix(dst.R, src.R), G: mix(dst.G, src.G), B: mix(dst.B, src.B), A: 255}
}
