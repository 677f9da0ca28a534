package main

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"kikitoby/game"
)

const (
	BroadcastRate        = 30 // state broadcasts per second
	BroadcastEvery       = game.TickRate / BroadcastRate
	maxControllersPerRun = 2
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// RunOptions configures a server-hosted run
type RunOptions struct {
	Character game.Character
	Title     string
	Tuning    *game.Tuning // nil uses the engine defaults
	Rand      *rand.Rand
}

// padState is the last touch-pad input of one sender
type padState struct {
	left, right bool
	last        int // sender's jump counter
}

// FinishFunc receives a run once its result is delivered
type FinishFunc func(run *Run, res game.Result, out RunOutcome)

// Run hosts one headless engine for one player. The engine is only touched by
// the loop goroutine; input from connections goes through the latch.
type Run struct {
	ID        string
	PlayerID  int64
	Character game.Character
	Title     string

	mu          sync.Mutex
	owner       Broadcaster
	controllers map[Broadcaster]bool
	keys        game.Keys
	jumpLatch   bool // jump pressed since the last frame, survives a quick release
	pads        map[Broadcaster]*padState
	touchJumps  int // run-owned jump counter handed to the engine
	taps        int

	engine   *game.Engine
	frames   uint64
	result   *game.Result
	onFinish FinishFunc

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRun creates a run in the starting phase. Call Loop to drive it.
func NewRun(id string, playerID int64, owner Broadcaster, opts RunOptions, onFinish FinishFunc) (*Run, error) {
	r := &Run{
		ID:          id,
		PlayerID:    playerID,
		Character:   opts.Character,
		Title:       opts.Title,
		owner:       owner,
		controllers: make(map[Broadcaster]bool),
		pads:        make(map[Broadcaster]*padState),
		onFinish:    onFinish,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	e, err := game.New(game.Options{
		Character: opts.Character,
		Title:     opts.Title,
		Tuning:    opts.Tuning,
		Rand:      opts.Rand,
		Headless:  true,
		OnResult:  func(res game.Result) { r.result = &res },
		OnEvent:   r.forwardEvent,
	})
	if err != nil {
		return nil, err
	}
	r.engine = e
	return r, nil
}

// Loop drives the engine from a 60 Hz ticker until the result is delivered or Stop is called
func (r *Run) Loop() {
	defer close(r.done)

	start := time.Now()
	r.engine.Advance(0)

	ticker := time.NewTicker(game.TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if r.update(time.Since(start)) {
				r.deliver()
				return
			}
		case <-r.stop:
			r.engine.Close()
			return
		}
	}
}

// Stop tears the run down without a result. Safe to call more than once.
func (r *Run) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when the loop has exited
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// update feeds one frame; returns true once the result is available
func (r *Run) update(now time.Duration) bool {
	r.applyInput()
	r.engine.Advance(now)
	r.frames++

	if r.result != nil {
		r.broadcastState()
		return true
	}
	if r.frames%BroadcastEvery == 0 {
		r.broadcastState()
	}
	return false
}

// applyInput hands the latched input to the engine
func (r *Run) applyInput() {
	r.mu.Lock()
	keys, latch, touch, taps := r.keys, r.jumpLatch, r.touchLocked(), r.taps
	r.jumpLatch = false
	r.taps = 0
	r.mu.Unlock()

	if latch && !keys.Jump {
		pressed := keys
		pressed.Jump = true
		r.engine.SetKeys(pressed)
	}
	r.engine.SetKeys(keys)
	r.engine.SetTouch(touch)
	for i := 0; i < taps; i++ {
		r.engine.Tap()
	}
}

// SetKeys latches the held keyboard state
func (r *Run) SetKeys(k game.Keys) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k.Jump && !r.keys.Jump {
		r.jumpLatch = true
	}
	r.keys = k
}

// SetTouch latches the touch-pad state of one sender. Every change of the sender's
// jump counter to a new press is one jump: an increase, or a restart from zero
// after a page reload or a 16-bit wrap.
func (r *Run) SetTouch(from Broadcaster, t game.Touch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pads[from]
	if p == nil {
		p = &padState{}
		r.pads[from] = p
	}
	if t.JumpTick > p.last || (t.JumpTick < p.last && t.JumpTick > 0) {
		r.touchJumps++
	}
	p.last = t.JumpTick
	p.left, p.right = t.Left, t.Right
}

// touchLocked merges every sender's pad into the engine input. r.mu must be held.
func (r *Run) touchLocked() game.Touch {
	t := game.Touch{JumpTick: r.touchJumps}
	for _, p := range r.pads {
		t.Left = t.Left || p.left
		t.Right = t.Right || p.right
	}
	return t
}

// touchState returns the merged touch-pad input
func (r *Run) touchState() game.Touch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touchLocked()
}

// Tap latches one pointer press
func (r *Run) Tap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taps < 4 {
		r.taps++
	}
}

// AddController attaches a phone touch-pad. Returns false when the run is full.
func (r *Run) AddController(b Broadcaster) bool {
	r.mu.Lock()
	if len(r.controllers) >= maxControllersPerRun {
		r.mu.Unlock()
		return false
	}
	r.controllers[b] = true
	r.pads[b] = &padState{}
	owner := r.owner
	r.mu.Unlock()

	owner.SendJSON(Envelope{T: MsgCtrlOn})
	return true
}

// RemoveController detaches a phone touch-pad, releasing its held directions and its jump counter
func (r *Run) RemoveController(b Broadcaster) {
	r.mu.Lock()
	if !r.controllers[b] {
		r.mu.Unlock()
		return
	}
	delete(r.controllers, b)
	delete(r.pads, b)
	owner := r.owner
	r.mu.Unlock()

	owner.SendJSON(Envelope{T: MsgCtrlOff})
}

// ControllerCount returns the number of attached touch-pads
func (r *Run) ControllerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// audience returns the owner and controllers
func (r *Run) audience() []Broadcaster {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Broadcaster, 0, 1+len(r.controllers))
	out = append(out, r.owner)
	for c := range r.controllers {
		out = append(out, c)
	}
	return out
}

// forwardEvent mirrors engine events to the run's connections
func (r *Run) forwardEvent(ev game.Event) {
	if ev.Kind == game.EventResult {
		return
	}
	msg := Envelope{T: MsgEvent, Data: EventMsg{
		Kind:  ev.Kind.String(),
		Tick:  ev.Tick,
		X:     ev.X,
		Y:     ev.Y,
		Score: ev.Score,
		HP:    ev.HP,
		Bonus: ev.Bonus,
	}}
	for _, b := range r.audience() {
		b.SendJSON(msg)
	}
}

// Snapshot captures the run state for broadcasting
func (r *Run) Snapshot() RunSnapshot {
	s := r.engine.State()
	snap := RunSnapshot{
		Tick:  s.Tick,
		Phase: s.Phase.String(),
		Player: PlayerState{
			X:      s.Player.X,
			Y:      s.Player.Y,
			VX:     s.Player.VX,
			VY:     s.Player.VY,
			Facing: int8(s.Player.Facing),
			Ground: s.Player.Grounded,
		},
		Enemies:   make([]EnemyState, 0, len(s.Enemies)),
		Items:     make([]ItemState, 0, len(s.Collectibles)),
		Score:     s.Score,
		HP:        s.HP,
		Remaining: s.Remaining(),
		Countdown: s.CountdownSeconds(),
		Slowed:    s.SlowTicks > 0,
		Invuln:    s.Invulnerable(),
	}
	for _, e := range s.Enemies {
		if !e.Alive {
			continue
		}
		snap.Enemies = append(snap.Enemies, EnemyState{Kind: uint8(e.Kind), X: e.X, Y: e.Y, W: e.W, H: e.H})
	}
	for _, c := range s.Collectibles {
		if c.X == game.OffscreenX {
			continue
		}
		snap.Items = append(snap.Items, ItemState{Kind: uint8(c.Kind), X: c.X, Y: c.Y, R: c.R})
	}
	return snap
}

// broadcastState sends the msgpack snapshot to the runner only; controllers have no screen
func (r *Run) broadcastState() {
	data, err := msgpack.Marshal(r.Snapshot())
	if err != nil {
		log.Printf("snapshot marshal error: %v", err)
		return
	}
	r.mu.Lock()
	owner := r.owner
	r.mu.Unlock()
	owner.SendBinary(data)
}

// deliver sends the result and hands the run to the finish hook
func (r *Run) deliver() {
	res := *r.result
	msg := Envelope{T: MsgResult, Data: ResultMsg{
		RunID:  r.ID,
		Won:    res.Won,
		Score:  res.Score,
		Time:   res.Time,
		Reason: res.Reason.String(),
	}}
	for _, b := range r.audience() {
		b.SendJSON(msg)
	}

	s := r.engine.State()
	out := RunOutcome{
		Won:       res.Won,
		Score:     res.Score,
		Stomps:    s.Stomps,
		Hits:      s.Hits,
		Collected: s.Collected,
	}
	if r.onFinish != nil {
		r.onFinish(r, res, out)
	}
}
