package main

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"kikitoby/game"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

// ofType returns captured envelopes with the given type
func (m *mockBroadcaster) ofType(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) binaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.binary)
}

// shortTuning is a quiet one-second run without countdown
func shortTuning() *game.Tuning {
	t := game.DefaultTuning()
	t.SpawnWeights = game.SpawnWeights{}
	t.Countdown = 0
	t.Duration = 1
	t.ResultDelay = 100 * time.Millisecond
	return &t
}

type finished struct {
	res game.Result
	out RunOutcome
}

func newTestRunHost(t *testing.T, tun *game.Tuning) (*Run, *mockBroadcaster, *[]finished) {
	t.Helper()
	owner := &mockBroadcaster{}
	var done []finished
	r, err := NewRun("run-1", 7, owner, RunOptions{
		Character: game.Kiki,
		Title:     "Le Panthéon",
		Tuning:    tun,
		Rand:      rand.New(rand.NewSource(1)),
	}, func(_ *Run, res game.Result, out RunOutcome) {
		done = append(done, finished{res, out})
	})
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	r.engine.Advance(0)
	return r, owner, &done
}

// drive feeds frames of one tick until the result is delivered
func drive(r *Run, limit int) (time.Duration, bool) {
	now := time.Duration(0)
	for i := 0; i < limit; i++ {
		now += game.TickDuration
		if r.update(now) {
			r.deliver()
			return now, true
		}
	}
	return now, false
}

func TestNewRunRejectsUnknownCharacter(t *testing.T) {
	_, err := NewRun("x", 1, &mockBroadcaster{}, RunOptions{Character: "felix"}, nil)
	if err == nil {
		t.Error("expected error for unknown character")
	}
}

func TestRunDeliversResult(t *testing.T) {
	r, owner, done := newTestRunHost(t, shortTuning())

	if _, ok := drive(r, 600); !ok {
		t.Fatal("expected the run to finish")
	}
	if len(*done) != 1 {
		t.Fatalf("expected one finish call, got %d", len(*done))
	}
	f := (*done)[0]
	if !f.res.Won || f.res.Time != 1 {
		t.Errorf("expected a 1s win, got %+v", f.res)
	}
	if !f.out.Won || f.out.Hits != 0 {
		t.Errorf("expected a clean outcome, got %+v", f.out)
	}

	results := owner.ofType(MsgResult)
	if len(results) != 1 {
		t.Fatalf("expected 1 result message, got %d", len(results))
	}
	rm := results[0].Data.(ResultMsg)
	if rm.RunID != "run-1" || !rm.Won || rm.Reason != "time-expired" {
		t.Errorf("unexpected result message %+v", rm)
	}
}

func TestRunBroadcastsSnapshots(t *testing.T) {
	r, owner, _ := newTestRunHost(t, shortTuning())

	now := time.Duration(0)
	for i := 0; i < 10; i++ {
		now += game.TickDuration
		r.update(now)
	}
	if n := owner.binaryCount(); n != 10/BroadcastEvery {
		t.Errorf("expected %d snapshots, got %d", 10/BroadcastEvery, n)
	}

	var snap RunSnapshot
	if err := msgpack.Unmarshal(owner.binary[len(owner.binary)-1], &snap); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if snap.Tick != 10 {
		t.Errorf("expected tick 10, got %d", snap.Tick)
	}
	if snap.Phase != "running" || snap.HP != 3 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if !snap.Player.Ground || snap.Player.Facing != 1 {
		t.Errorf("expected grounded player facing right, got %+v", snap.Player)
	}
}

func TestRunSnapshotSkipsConsumed(t *testing.T) {
	r, _, _ := newTestRunHost(t, shortTuning())
	s := r.engine.State()
	s.Enemies = append(s.Enemies,
		game.Enemy{Kind: game.KindCrawler, X: 500, Y: 300, W: 28, H: 22, VX: -1, Alive: true},
		game.Enemy{Kind: game.KindCrawler, X: game.OffscreenX, W: 28, H: 22},
	)
	s.Collectibles = append(s.Collectibles,
		game.Collectible{Kind: game.ItemCoin, X: game.OffscreenX, R: 8},
		game.Collectible{Kind: game.ItemBone, X: 600, Y: 250, R: 8},
	)

	snap := r.Snapshot()
	if len(snap.Enemies) != 1 || snap.Enemies[0].X != 500 {
		t.Errorf("expected only the live enemy, got %+v", snap.Enemies)
	}
	if len(snap.Items) != 1 || snap.Items[0].Kind != uint8(game.ItemBone) {
		t.Errorf("expected only the bone, got %+v", snap.Items)
	}
}

func TestRunJumpLatchSurvivesQuickRelease(t *testing.T) {
	r, owner, _ := newTestRunHost(t, shortTuning())

	// Press and release between two frames
	r.SetKeys(game.Keys{Jump: true})
	r.SetKeys(game.Keys{})
	r.update(game.TickDuration)

	if r.engine.State().Player.Grounded {
		t.Error("expected the quick press to jump")
	}
	var jumped bool
	for _, env := range owner.ofType(MsgEvent) {
		if env.Data.(EventMsg).Kind == "jump" {
			jumped = true
		}
	}
	if !jumped {
		t.Error("expected a jump event forwarded")
	}
}

// stepUntilGrounded feeds frames until the player stands on the ground
func stepUntilGrounded(t *testing.T, r *Run, now *time.Duration) {
	t.Helper()
	for i := 0; i < 600; i++ {
		*now += game.TickDuration
		r.update(*now)
		if r.engine.State().Player.Grounded {
			return
		}
	}
	t.Fatal("player never landed")
}

// jumpsOnNextFrame feeds one frame and reports whether the player left the ground
func jumpsOnNextFrame(r *Run, now *time.Duration) bool {
	*now += game.TickDuration
	r.update(*now)
	return !r.engine.State().Player.Grounded
}

func TestRunTouchCounterPerSender(t *testing.T) {
	tun := shortTuning()
	tun.Duration = 30
	r, _, _ := newTestRunHost(t, tun)
	pad := &mockBroadcaster{}
	r.AddController(pad)
	now := time.Duration(0)

	r.SetTouch(pad, game.Touch{JumpTick: 3})
	if !jumpsOnNextFrame(r, &now) {
		t.Fatal("expected the first press to jump")
	}
	stepUntilGrounded(t, r, &now)

	r.SetTouch(pad, game.Touch{Right: true, JumpTick: 3})
	if jumpsOnNextFrame(r, &now) {
		t.Error("expected a repeated counter not to jump")
	}
	if touch := r.touchState(); !touch.Right || touch.JumpTick != 1 {
		t.Errorf("expected right held with one jump, got %+v", touch)
	}
}

func TestRunReconnectedControllerJumps(t *testing.T) {
	tun := shortTuning()
	tun.Duration = 30
	r, _, _ := newTestRunHost(t, tun)
	now := time.Duration(0)

	first := &mockBroadcaster{}
	r.AddController(first)
	r.SetTouch(first, game.Touch{JumpTick: 5})
	if !jumpsOnNextFrame(r, &now) {
		t.Fatal("expected the first controller to jump")
	}
	stepUntilGrounded(t, r, &now)
	r.RemoveController(first)

	// The reloaded phone counts from zero again
	second := &mockBroadcaster{}
	if !r.AddController(second) {
		t.Fatal("expected the reconnected controller accepted")
	}
	r.SetTouch(second, game.Touch{JumpTick: 1})
	if !jumpsOnNextFrame(r, &now) {
		t.Error("expected the reconnected controller to jump")
	}
	stepUntilGrounded(t, r, &now)

	// A counter restart on the same connection is a press too
	r.SetTouch(second, game.Touch{JumpTick: 1})
	r.SetTouch(second, game.Touch{JumpTick: 0})
	r.SetTouch(second, game.Touch{JumpTick: 1})
	if !jumpsOnNextFrame(r, &now) {
		t.Error("expected a restarted counter to jump")
	}
}

func TestRunTwoControllers(t *testing.T) {
	tun := shortTuning()
	tun.Duration = 30
	r, _, _ := newTestRunHost(t, tun)
	now := time.Duration(0)
	pad1, pad2 := &mockBroadcaster{}, &mockBroadcaster{}
	r.AddController(pad1)
	r.AddController(pad2)

	r.SetTouch(pad1, game.Touch{Left: true, JumpTick: 8})
	if !jumpsOnNextFrame(r, &now) {
		t.Fatal("expected the first pad to jump")
	}
	stepUntilGrounded(t, r, &now)

	// The second pad's counter is lower than the first's and still jumps
	r.SetTouch(pad2, game.Touch{JumpTick: 1})
	if !jumpsOnNextFrame(r, &now) {
		t.Error("expected the second pad to jump")
	}
	if touch := r.touchState(); !touch.Left {
		t.Errorf("expected the first pad still holding left, got %+v", touch)
	}

	r.RemoveController(pad1)
	if touch := r.touchState(); touch.Left {
		t.Errorf("expected left released with its pad, got %+v", touch)
	}
}

func TestRunControllers(t *testing.T) {
	r, owner, _ := newTestRunHost(t, shortTuning())
	pad1, pad2, pad3 := &mockBroadcaster{}, &mockBroadcaster{}, &mockBroadcaster{}

	if !r.AddController(pad1) || !r.AddController(pad2) {
		t.Fatal("expected two controllers accepted")
	}
	if r.AddController(pad3) {
		t.Error("expected the third controller rejected")
	}
	if n := len(owner.ofType(MsgCtrlOn)); n != 2 {
		t.Errorf("expected 2 ctrl_on, got %d", n)
	}

	r.SetTouch(pad1, game.Touch{Left: true})
	r.RemoveController(pad1)
	r.RemoveController(pad1)
	if n := len(owner.ofType(MsgCtrlOff)); n != 1 {
		t.Errorf("expected 1 ctrl_off, got %d", n)
	}
	if r.touchState().Left {
		t.Error("expected held direction released on detach")
	}
	if r.ControllerCount() != 1 {
		t.Errorf("expected 1 controller, got %d", r.ControllerCount())
	}

	// Controllers receive results too
	drive(r, 600)
	if len(pad2.ofType(MsgResult)) != 1 {
		t.Error("expected result sent to the controller")
	}
	if pad2.binaryCount() != 0 {
		t.Error("controllers should not receive snapshots")
	}
}

func TestRunLoopStop(t *testing.T) {
	r, owner, done := newTestRunHost(t, nil)
	go r.Loop()
	time.Sleep(50 * time.Millisecond)
	r.Stop()
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	if len(*done) != 0 || len(owner.ofType(MsgResult)) != 0 {
		t.Error("expected no result after Stop")
	}
}

func TestRunManager(t *testing.T) {
	rm := NewRunManager()
	owner := &mockBroadcaster{}

	run, err := rm.Create(1, owner, RunOptions{Character: game.Toby}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !uuidRegex.MatchString(run.ID) {
		t.Errorf("run ID %q is not a valid UUID v4", run.ID)
	}
	if rm.Get(run.ID) != run || rm.Count() != 1 {
		t.Error("expected the run registered")
	}

	if _, err := rm.Create(1, owner, RunOptions{Character: "felix"}, nil); err == nil {
		t.Error("expected error for unknown character")
	}

	rm.Remove(run.ID)
	if rm.Get(run.ID) != nil || rm.Count() != 0 {
		t.Error("expected the run removed")
	}
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("removed run still looping")
	}
}
