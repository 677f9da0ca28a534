package main

import (
	"image"
	"image/color"
	"testing"

	"kikitoby/game"
)

func TestCellCanvasFillRect(t *testing.T) {
	c := newCellCanvas(640, 480)
	c.resize(640, 480, 64, 24) // 10x20 units per cell
	red := color.RGBA{R: 255, A: 255}

	c.FillRect(game.Rect{X: 0, Y: 0, W: 20, H: 40}, red)
	if got := c.cells[0].bg; got != red {
		t.Errorf("expected red at 0,0, got %v", got)
	}
	if got := c.cells[1*64+1].bg; got != red {
		t.Errorf("expected red at 1,1, got %v", got)
	}
	if got := c.cells[2].bg; got == red {
		t.Error("cell 2 centre is outside the rect")
	}
}

func TestCellCanvasBlend(t *testing.T) {
	c := newCellCanvas(10, 10)
	c.resize(10, 10, 1, 1)
	c.FillRect(game.Rect{W: 10, H: 10}, color.RGBA{R: 200, A: 255})
	c.FillRect(game.Rect{W: 10, H: 10}, color.RGBA{A: 0x80})
	if r := c.cells[0].bg.R; r < 95 || r > 105 {
		t.Errorf("expected half shade, got %d", r)
	}
}

func TestCellCanvasText(t *testing.T) {
	c := newCellCanvas(100, 10)
	c.resize(100, 10, 10, 1)
	c.Text(50, 5, "ok", color.RGBA{A: 255}, game.TextSmall, game.AlignCenter)
	if c.cells[4].ch != 'o' || c.cells[5].ch != 'k' {
		t.Errorf("expected centred text, got %q %q", c.cells[4].ch, c.cells[5].ch)
	}
	// Off-grid text is dropped
	c.Text(50, 50, "x", color.RGBA{A: 255}, game.TextSmall, game.AlignLeft)
}

func TestCellCanvasDrawImageFlip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	c := newCellCanvas(2, 1)
	c.resize(2, 1, 2, 1)
	c.DrawImage(img, game.Rect{W: 2, H: 1}, false, 1)
	if c.cells[0].bg.R != 255 || c.cells[1].bg.B != 255 {
		t.Errorf("unexpected colours %v %v", c.cells[0].bg, c.cells[1].bg)
	}
	c.DrawImage(img, game.Rect{W: 2, H: 1}, true, 1)
	if c.cells[0].bg.B != 255 || c.cells[1].bg.R != 255 {
		t.Errorf("expected flipped colours, got %v %v", c.cells[0].bg, c.cells[1].bg)
	}
}

func TestCellCanvasSmallCircle(t *testing.T) {
	c := newCellCanvas(640, 480)
	c.resize(640, 480, 64, 24)
	c.FillCircle(101, 101, 2, color.RGBA{G: 255, A: 255})
	if c.cells[5*64+10].ch != '●' {
		t.Error("expected a marker for a circle smaller than a cell")
	}
}
