package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Options configures one run
type Options struct {
	Character Character
	Title     string

	Tuning *Tuning    // nil uses DefaultTuning
	Assets *Loader    // owned by the engine, closed on Close; nil draws fallbacks only
	Rand   *rand.Rand // spawn randomness; nil seeds from the clock
	Canvas Canvas     // required unless Headless

	Headless         bool // no canvas, Draw is a no-op (server-side runs)
	DisableTapToJump bool

	OnResult func(Result)
	OnEvent  func(Event) // optional per-step notifications
}

// Engine runs one mini-game: a fixed-step simulation driven by host frames
type Engine struct {
	state    *RunState
	in       input
	spawner  *Spawner
	ev       events
	renderer *Renderer
	assets   *Loader
	onResult func(Result)
	tapJump  bool

	started   bool
	last      time.Duration // timestamp of the previous frame
	acc       time.Duration // real time not yet simulated
	wait      time.Duration // real time spent finished, toward the result delay
	now       time.Duration
	delivered bool
	closed    bool
}

// New validates the options and prepares a run in the starting phase
func New(o Options) (*Engine, error) {
	c, err := ParseCharacter(string(o.Character))
	if err != nil {
		return nil, err
	}
	t := DefaultTuning()
	if o.Tuning != nil {
		t = *o.Tuning
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("new run: %w", err)
	}

	e := &Engine{
		state:    NewRunState(t, c),
		assets:   o.Assets,
		onResult: o.OnResult,
		tapJump:  !o.DisableTapToJump,
		ev:       events{sink: o.OnEvent},
	}

	if !o.Headless {
		r, err := NewRenderer(o.Canvas, LoadSprites(o.Assets, c, o.Title), o.Title)
		if err != nil {
			o.Assets.Close()
			return nil, err
		}
		e.renderer = r
	}

	rng := o.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.spawner = NewSpawner(rng)
	return e, nil
}

// State exposes the run state for drawing and snapshots. Callers must not mutate it.
func (e *Engine) State() *RunState {
	return e.state
}

// Finished reports whether the run reached a terminal reason
func (e *Engine) Finished() bool {
	return e.state.Phase == PhaseFinished
}

// SetKeys forwards the held keyboard state. A jump key going down queues one jump.
func (e *Engine) SetKeys(k Keys) {
	if e.accepting() {
		e.in.setKeys(k)
	}
}

// SetTouch forwards the touch-pad state. Either direction flag overrides the keyboard.
func (e *Engine) SetTouch(t Touch) {
	if e.accepting() {
		e.in.setTouch(t)
	}
}

// Tap queues a jump from a pointer press on the play field
func (e *Engine) Tap() {
	if e.tapJump && e.accepting() {
		e.in.tap()
	}
}

func (e *Engine) accepting() bool {
	return !e.closed && e.state.Phase != PhaseFinished
}

// Advance feeds one host frame at monotonic time now and runs the fixed steps it covers.
// Returns the number of steps simulated.
func (e *Engine) Advance(now time.Duration) int {
	if e.closed {
		return 0
	}
	e.now = now
	if !e.started {
		e.started = true
		e.last = now
		return 0
	}
	t := &e.state.Tuning
	delta := now - e.last
	e.last = now
	if delta < 0 {
		delta = 0
	}
	if delta > t.MaxFrameDelta {
		delta = t.MaxFrameDelta
	}

	if e.state.Phase == PhaseFinished {
		e.awaitResult(delta)
		return 0
	}

	e.acc += delta
	steps := 0
	for e.acc >= TickDuration && steps < t.MaxCatchUpSteps {
		e.step()
		e.acc -= TickDuration
		steps++
		if e.state.Phase == PhaseFinished {
			e.acc = 0
			break
		}
	}
	// Backlog beyond the catch-up bound is dropped, not carried over
	e.acc %= TickDuration
	return steps
}

// Draw paints the current state. No-op for headless runs.
func (e *Engine) Draw() {
	if e.renderer == nil || e.closed {
		return
	}
	e.renderer.Draw(e.state, e.now)
}

// Frame is Advance followed by Draw, the per-paint entry point for windowed hosts
func (e *Engine) Frame(now time.Duration) {
	e.Advance(now)
	e.Draw()
}

// Close tears the run down. No result is delivered afterwards.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.in.reset()
	e.assets.Close()
}

func (e *Engine) step() {
	s := e.state
	s.Tick++
	e.ev.tick = s.Tick

	integrate(s, e.in.direction(), e.in.takeJump(), &e.ev)

	switch s.Phase {
	case PhaseStarting:
		s.Countdown--
		if s.Countdown <= 0 {
			s.Countdown = 0
			s.Phase = PhaseRunning
			e.ev.emit(Event{Kind: EventGo, Score: s.Score, HP: s.HP})
		}
	case PhaseRunning:
		s.RunTicks++
		e.spawner.Tick(s)
		if resolve(s, &e.ev) {
			e.finish(ReasonDefeated)
		} else if s.RunTicks >= ticks(s.Tuning.Duration) {
			e.finish(ReasonTimeExpired)
		}
	}

	tickTimers(s)
	s.purge()
}

// finish moves to the absorbing phase once; later conditions in the same step are ignored
func (e *Engine) finish(r Reason) {
	s := e.state
	if s.Phase == PhaseFinished {
		return
	}
	s.Phase = PhaseFinished
	s.Reason = r
	e.in.reset()
	e.ev.emit(Event{Kind: EventFinish, Score: s.Score, HP: s.HP})
}

func (e *Engine) awaitResult(delta time.Duration) {
	if e.delivered {
		return
	}
	e.wait += delta
	if e.wait < e.state.Tuning.ResultDelay {
		return
	}
	e.delivered = true
	r := e.state.result()
	e.ev.emit(Event{Kind: EventResult, Score: r.Score, HP: e.state.HP})
	if e.onResult != nil {
		e.onResult(r)
	}
}
