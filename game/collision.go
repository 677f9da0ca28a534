package game

// Overlap checks if two boxes intersect. Touching edges do not count.
func Overlap(a, b Rect) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// CircleOverlap checks if a circle intersects a box, using the closest point of the box
func CircleOverlap(r Rect, cx, cy, radius float64) bool {
	nx := clamp(cx, r.X, r.X+r.W)
	ny := clamp(cy, r.Y, r.Y+r.H)
	dx := cx - nx
	dy := cy - ny
	return dx*dx+dy*dy < radius*radius
}

// resolve applies every player contact for this step. It returns true if the run ended.
func resolve(s *RunState, ev *events) bool {
	if s.Phase != PhaseRunning {
		return false
	}
	t := &s.Tuning
	p := &s.Player
	box := p.Box()

	for i := range s.Enemies {
		e := &s.Enemies[i]
		if !e.Alive || !Overlap(box, e.Box()) {
			continue
		}

		if e.Kind == KindFilth {
			s.Slow = t.SlowFactor
			s.SlowTicks = ticks(t.SlowDuration)
			remove(e)
			ev.emit(Event{Kind: EventSlow, X: p.X, Y: p.Y, Score: s.Score, HP: s.HP})
			continue
		}

		if s.Invulnerable() || s.GraceTicks > 0 {
			continue
		}

		if e.Kind.Stompable() && p.VY > 0 && p.PrevBottom <= e.Y+t.StompTolerance {
			x, y := e.X, e.Y
			remove(e)
			s.Stomps++
			s.addScore(t.StompScore)
			p.VY = -t.StompBounce
			p.Grounded = false
			s.GraceTicks = ticks(t.StompGrace)
			ev.emit(Event{Kind: EventStomp, X: x, Y: y, Score: s.Score, HP: s.HP})
			continue
		}

		s.Hits++
		s.HP--
		if s.HP < 0 {
			s.HP = 0
		}
		p.VX = -p.Facing * t.KnockbackX
		p.VY = -t.KnockbackY
		p.Grounded = false
		s.InvulnTicks = ticks(t.InvulnDuration)
		ev.emit(Event{Kind: EventHit, X: p.X, Y: p.Y, Score: s.Score, HP: s.HP})
		if s.HP == 0 {
			return true
		}
	}

	for i := range s.Collectibles {
		c := &s.Collectibles[i]
		if !CircleOverlap(box, c.X, c.Y, c.R) {
			continue
		}
		pts := t.CollectScore
		bonus := c.Kind == s.Character.Affinity()
		if bonus {
			pts += t.AffinityBonus
		}
		s.addScore(pts)
		s.Collected++
		ev.emit(Event{Kind: EventCollect, X: c.X, Y: c.Y, Score: s.Score, HP: s.HP, Bonus: bonus})
		c.X = OffscreenX
	}
	return false
}

// remove parks a consumed enemy off-screen; the front purge drops it later
func remove(e *Enemy) {
	e.Alive = false
	e.X = OffscreenX
}
