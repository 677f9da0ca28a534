package game

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"
)

// ErrNoCanvas is returned when a host cannot provide a drawing surface
var ErrNoCanvas = errors.New("no 2d canvas available")

// Align positions text relative to its anchor
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TextSize selects one of the HUD font sizes
type TextSize int

const (
	TextSmall TextSize = iota
	TextMedium
	TextLarge
)

// Canvas is the drawing surface. Coordinates are in field units (Tuning.FieldW x FieldH);
// the implementation scales to its own pixels or cells.
type Canvas interface {
	FillRect(r Rect, c color.RGBA)
	FillCircle(cx, cy, radius float64, c color.RGBA)
	DrawImage(img image.Image, dst Rect, flipX bool, alpha float64)
	Text(x, y float64, s string, c color.RGBA, size TextSize, align Align)
}

var (
	colSky       = color.RGBA{0x0E, 0x13, 0x20, 0xFF}
	colSkyline   = color.RGBA{0x2A, 0x36, 0x50, 0xFF}
	colGround    = color.RGBA{0x1F, 0x29, 0x37, 0xFF}
	colText      = color.RGBA{0xFF, 0xFF, 0xFF, 0xE6}
	colShade     = color.RGBA{0x00, 0x00, 0x00, 0x80}
	colEye       = color.RGBA{0x0B, 0x0B, 0x0B, 0xFF}
	colHeart     = color.RGBA{0xEF, 0x44, 0x44, 0xFF}
	colHeartLost = color.RGBA{0x4B, 0x55, 0x63, 0xFF}
	colCrawler   = color.RGBA{0xEF, 0x44, 0x44, 0xFF}
	colFlyer     = color.RGBA{0x9C, 0xA3, 0xAF, 0xFF}
	colFilth     = color.RGBA{0xBD, 0xBD, 0xBD, 0xFF}
	colCoin      = color.RGBA{0xFA, 0xCC, 0x15, 0xFF}
	colCroissant = color.RGBA{0xFF, 0x95, 0x00, 0xFF}
	colBone      = color.RGBA{0x00, 0x7A, 0xFF, 0xFF}
)

// Renderer draws a run state onto a canvas, back to front
type Renderer struct {
	canvas  Canvas
	sprites *Sprites
	title   string
}

// NewRenderer binds a renderer to its canvas
func NewRenderer(c Canvas, sprites *Sprites, title string) (*Renderer, error) {
	if c == nil {
		return nil, ErrNoCanvas
	}
	if sprites == nil {
		sprites = LoadSprites(nil, "", "")
	}
	return &Renderer{canvas: c, sprites: sprites, title: title}, nil
}

// Draw paints one frame. now is the host's frame clock, used for blinking.
func (r *Renderer) Draw(s *RunState, now time.Duration) {
	t := &s.Tuning
	r.background(s)
	r.canvas.FillRect(Rect{X: 0, Y: t.GroundY, W: t.FieldW, H: t.FieldH - t.GroundY}, colGround)

	for i := range s.Enemies {
		e := &s.Enemies[i]
		if e.Alive {
			r.enemy(e)
		}
	}
	for i := range s.Collectibles {
		r.collectible(&s.Collectibles[i])
	}
	r.player(s, now)
	r.hud(s)

	switch s.Phase {
	case PhaseStarting:
		r.banner(t, countdownLabel(s), "")
	case PhaseFinished:
		headline := "Aïe !"
		if s.Reason == ReasonTimeExpired {
			headline = "BRAVO !"
		}
		r.canvas.FillRect(Rect{W: t.FieldW, H: t.FieldH}, colShade)
		r.banner(t, headline, fmt.Sprintf("Score: %d", s.Score))
	}
}

func (r *Renderer) background(s *RunState) {
	t := &s.Tuning
	full := Rect{W: t.FieldW, H: t.FieldH}
	if bg := r.sprites.Background; bg.Ready() {
		img := bg.Image()
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			r.canvas.FillRect(full, colSky)
			return
		}
		// Tile horizontally when the image is a strip wider than tall, stretch otherwise
		if b.Dx() > b.Dy() {
			w := float64(b.Dx()) * t.FieldH / float64(b.Dy())
			off := math.Mod(s.ScrollX*0.5, w)
			for x := -off; x < t.FieldW; x += w {
				r.canvas.DrawImage(img, Rect{X: x, W: w, H: t.FieldH}, false, 1)
			}
			return
		}
		r.canvas.DrawImage(img, full, false, 1)
		return
	}

	r.canvas.FillRect(full, colSky)
	// Procedural skyline, drifting at a fraction of the world speed
	span := t.FieldW / 6
	off := math.Mod(s.ScrollX*0.25, t.FieldW)
	for i := 0; i < 7; i++ {
		bw := 60 + float64(i*13%60)
		bh := 60 + float64(i*29%120)
		bx := float64(i)*span + float64(i*31%40) - 20 - off
		if bx+bw < 0 {
			bx += t.FieldW + span
		}
		r.canvas.FillRect(Rect{X: bx, Y: t.GroundY - bh - 40, W: bw, H: bh + 40}, colSkyline)
	}
}

func (r *Renderer) enemy(e *Enemy) {
	if a := r.sprites.Enemies[e.Kind]; a.Ready() {
		r.canvas.DrawImage(a.Image(), e.Box(), false, 1)
		return
	}
	c := colCrawler
	switch e.Kind {
	case KindFlyer:
		c = colFlyer
	case KindFilth:
		c = colFilth
	}
	r.canvas.FillRect(e.Box(), c)
}

func (r *Renderer) collectible(c *Collectible) {
	if a := r.sprites.Items[c.Kind]; a.Ready() {
		r.canvas.DrawImage(a.Image(), Rect{X: c.X - c.R, Y: c.Y - c.R, W: 2 * c.R, H: 2 * c.R}, false, 1)
		return
	}
	col := colCoin
	switch c.Kind {
	case ItemCroissant:
		col = colCroissant
	case ItemBone:
		col = colBone
	}
	r.canvas.FillCircle(c.X, c.Y, c.R, col)
}

func (r *Renderer) player(s *RunState, now time.Duration) {
	p := &s.Player
	alpha := 1.0
	if s.Invulnerable() && blinkOff(now, s.Tuning.BlinkPeriod) {
		alpha = 0.3
	}
	flip := p.Facing < 0
	if a := r.sprites.Player; a.Ready() {
		r.canvas.DrawImage(a.Image(), p.Box(), flip, alpha)
		return
	}
	body := s.Character.Color()
	body.A = uint8(alpha * 255)
	r.canvas.FillRect(p.Box(), body)
	eyeX := p.X + p.W - 18
	if flip {
		eyeX = p.X + 10
	}
	eye := colEye
	eye.A = body.A
	r.canvas.FillRect(Rect{X: eyeX, Y: p.Y + 10, W: 8, H: 8}, eye)
}

func (r *Renderer) hud(s *RunState) {
	t := &s.Tuning
	r.canvas.Text(16, 28, r.title, colText, TextMedium, AlignLeft)
	r.canvas.Text(t.FieldW-160, 26, fmt.Sprintf("%d", s.Score), colText, TextSmall, AlignLeft)
	r.canvas.Text(t.FieldW-80, 26, fmt.Sprintf("%.1f", s.Remaining()), colText, TextSmall, AlignLeft)
	for i := 0; i < t.MaxHP; i++ {
		c := colHeart
		if i >= s.HP {
			c = colHeartLost
		}
		r.canvas.FillRect(Rect{X: 16 + float64(i)*22, Y: 40, W: 16, H: 14}, c)
	}
}

func (r *Renderer) banner(t *Tuning, line1, line2 string) {
	cx, cy := t.FieldW/2, t.FieldH/2
	r.canvas.Text(cx, cy-12, line1, colText, TextLarge, AlignCenter)
	if line2 != "" {
		r.canvas.Text(cx, cy+20, line2, colText, TextMedium, AlignCenter)
	}
}

func countdownLabel(s *RunState) string {
	n := int(math.Ceil(s.CountdownSeconds()))
	if n <= 0 {
		return "GO !"
	}
	return fmt.Sprintf("%d", n)
}

// blinkOff alternates every period of frame time
func blinkOff(now, period time.Duration) bool {
	if period <= 0 {
		return false
	}
	return (now/period)%2 == 1
}
