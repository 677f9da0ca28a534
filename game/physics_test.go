package game

import (
	"math"
	"testing"
)

func TestIntegrateGravityAndLanding(t *testing.T) {
	s := runningState()
	p := &s.Player
	ground := s.Tuning.GroundY - p.H

	integrate(s, 0, true, nil)
	if p.Grounded {
		t.Fatal("expected player airborne after a jump")
	}
	if p.Y >= ground {
		t.Errorf("expected player above ground, got y=%v", p.Y)
	}

	for i := 0; i < 200 && !p.Grounded; i++ {
		integrate(s, 0, false, nil)
	}
	if !p.Grounded {
		t.Fatal("expected player to land")
	}
	if p.Y != ground || p.VY != 0 {
		t.Errorf("expected clamp to ground with VY 0, got y=%v vy=%v", p.Y, p.VY)
	}
}

func TestIntegrateJumpIgnoredWhileAirborne(t *testing.T) {
	s := runningState()
	p := &s.Player
	p.Y = 100
	p.VY = 50
	p.Grounded = false

	integrate(s, 0, true, nil)
	if p.VY <= 50 {
		t.Errorf("airborne jump should be ignored, got vy=%v", p.VY)
	}
}

func TestIntegrateMaxSpeedAndFriction(t *testing.T) {
	s := runningState()
	p := &s.Player

	for i := 0; i < 120; i++ {
		integrate(s, 1, false, nil)
	}
	if p.VX > s.Tuning.MaxSpeed {
		t.Errorf("expected VX <= %v, got %v", s.Tuning.MaxSpeed, p.VX)
	}

	// Friction without overshoot
	p.X = 200
	p.VX = 10
	integrate(s, 0, false, nil)
	if p.VX != 0 {
		t.Errorf("expected friction to stop at 0, got %v", p.VX)
	}
}

func TestIntegrateFieldBounds(t *testing.T) {
	s := runningState()
	p := &s.Player
	p.X = 1
	p.VX = -s.Tuning.MaxSpeed
	integrate(s, -1, false, nil)
	if p.X != 0 || p.VX != 0 {
		t.Errorf("expected clamp at left edge, got x=%v vx=%v", p.X, p.VX)
	}

	p.X = s.Tuning.FieldW - p.W - 1
	p.VX = s.Tuning.MaxSpeed
	integrate(s, 1, false, nil)
	if p.X != s.Tuning.FieldW-p.W || p.VX != 0 {
		t.Errorf("expected clamp at right edge, got x=%v vx=%v", p.X, p.VX)
	}
}

func TestIntegrateSlowScalesWorld(t *testing.T) {
	s := runningState()
	s.Enemies = append(s.Enemies, Enemy{Kind: KindCrawler, X: 500, VX: -300, Alive: true})
	s.Slow = 0.5

	integrate(s, 0, false, nil)
	want := 500 - 300*Step*0.5
	if math.Abs(s.Enemies[0].X-want) > 1e-9 {
		t.Errorf("expected x=%v, got %v", want, s.Enemies[0].X)
	}
	if math.Abs(s.ScrollX-s.Tuning.WorldSpeed*Step*0.5) > 1e-9 {
		t.Errorf("unexpected scroll %v", s.ScrollX)
	}
}

func TestTickTimersResetSlow(t *testing.T) {
	s := runningState()
	s.Slow = 0.4
	s.SlowTicks = 2
	tickTimers(s)
	if s.Slow != 0.4 {
		t.Errorf("slow should persist, got %v", s.Slow)
	}
	tickTimers(s)
	if s.Slow != 1 {
		t.Errorf("expected slow reset to 1, got %v", s.Slow)
	}
}

func TestInputTouchOverridesKeyboard(t *testing.T) {
	var in input
	in.setKeys(Keys{Right: true})
	if in.direction() != 1 {
		t.Errorf("expected right, got %v", in.direction())
	}
	in.setTouch(Touch{Left: true})
	if in.direction() != -1 {
		t.Errorf("expected touch left to win, got %v", in.direction())
	}
	in.setTouch(Touch{Left: true, Right: true})
	if in.direction() != 0 {
		t.Errorf("expected both directions to cancel, got %v", in.direction())
	}
	in.setTouch(Touch{})
	if in.direction() != 1 {
		t.Errorf("expected keyboard again, got %v", in.direction())
	}
}

func TestInputJumpEdges(t *testing.T) {
	var in input

	in.setKeys(Keys{Jump: true})
	if !in.takeJump() {
		t.Error("expected jump on key down")
	}
	in.setKeys(Keys{Jump: true})
	if in.takeJump() {
		t.Error("held key should not repeat")
	}
	in.setKeys(Keys{})
	in.setKeys(Keys{Jump: true})
	if !in.takeJump() {
		t.Error("expected jump after release and press")
	}

	in.setTouch(Touch{JumpTick: 1})
	if !in.takeJump() {
		t.Error("expected jump on counter increase")
	}
	in.setTouch(Touch{JumpTick: 1})
	if in.takeJump() {
		t.Error("unchanged counter should not jump")
	}

	in.tap()
	if !in.takeJump() {
		t.Error("expected jump on tap")
	}
	if in.takeJump() {
		t.Error("jump should be consumed once")
	}
}
