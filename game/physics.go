package game

// integrate advances the player body and the scrolling world by one fixed step
func integrate(s *RunState, dir float64, jump bool, ev *events) {
	t := &s.Tuning
	p := &s.Player
	p.PrevBottom = p.Y + p.H

	if jump && p.Grounded {
		p.VY = -t.JumpVelocity
		p.Grounded = false
		ev.emit(Event{Kind: EventJump, X: p.X, Y: p.Y})
	}

	// Vertical
	p.VY += t.Gravity * Step
	p.Y += p.VY * Step
	ground := t.GroundY - p.H
	if p.Y >= ground {
		p.Y = ground
		p.VY = 0
		p.Grounded = true
	} else {
		p.Grounded = false
	}

	// Horizontal
	if dir != 0 {
		p.Facing = dir
		p.VX += dir * t.Accel * Step
	} else {
		p.VX = approachZero(p.VX, t.Friction*Step)
	}
	p.VX = clamp(p.VX, -t.MaxSpeed, t.MaxSpeed)
	p.X += p.VX * Step
	if maxX := t.FieldW - p.W; p.X > maxX {
		p.X = maxX
		p.VX = 0
	} else if p.X < 0 {
		p.X = 0
		p.VX = 0
	}

	// World scroll, throttled by the slow effect
	s.ScrollX += t.WorldSpeed * Step * s.Slow
	for i := range s.Enemies {
		e := &s.Enemies[i]
		e.X += e.VX * Step * s.Slow
	}
	for i := range s.Collectibles {
		c := &s.Collectibles[i]
		c.X += c.VX * Step * s.Slow
	}
}

// tickTimers decrements every per-step countdown
func tickTimers(s *RunState) {
	if s.InvulnTicks > 0 {
		s.InvulnTicks--
	}
	if s.GraceTicks > 0 {
		s.GraceTicks--
	}
	if s.SlowTicks > 0 {
		s.SlowTicks--
		if s.SlowTicks == 0 {
			s.Slow = 1
		}
	}
}

// approachZero reduces |v| by dec without crossing zero
func approachZero(v, dec float64) float64 {
	switch {
	case v > dec:
		return v - dec
	case v < -dec:
		return v + dec
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
