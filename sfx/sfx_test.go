package sfx

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"kikitoby/game"
)

// drain reads a streamer to the end and returns the sample count and peak amplitude
func drain(s beep.Streamer) (int, float64) {
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 10000; i++ {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok {
			break
		}
	}
	return total, peak
}

func TestCuesAreFiniteAndAudible(t *testing.T) {
	for c := CueJump; c <= CueLose; c++ {
		n, peak := drain(Streamer(c))
		if n == 0 {
			t.Errorf("%v: expected samples", c)
		}
		if n > SampleRate.N(2*time.Second) {
			t.Errorf("%v: expected a short cue, got %d samples", c, n)
		}
		if peak == 0 || peak > 1 {
			t.Errorf("%v: unexpected peak %v", c, peak)
		}
	}
}

func TestOscillatorLength(t *testing.T) {
	n, _ := drain(NewOscillator(440, 440, 100*time.Millisecond, WaveSine, SampleRate))
	if want := SampleRate.N(100 * time.Millisecond); n != want {
		t.Errorf("expected %d samples, got %d", want, n)
	}
}

func TestEnvelopeShape(t *testing.T) {
	d := 100 * time.Millisecond
	env := NewEnvelope(NewOscillator(0, 0, d, WaveSquare, SampleRate), d, 10*time.Millisecond, 10*time.Millisecond, SampleRate)
	buf := make([][2]float64, SampleRate.N(d))
	n, _ := env.Stream(buf)
	if buf[0][0] != 0 {
		t.Errorf("expected silence at attack start, got %v", buf[0][0])
	}
	if mid := buf[n/2][0]; mid != 1 {
		t.Errorf("expected full volume mid-cue, got %v", mid)
	}
	if last := buf[n-1][0]; last <= 0 || last > 0.01 {
		t.Errorf("expected fade-out at the end, got %v", last)
	}
}

func TestCueFor(t *testing.T) {
	cases := []struct {
		ev   game.Event
		want Cue
		ok   bool
	}{
		{game.Event{Kind: game.EventJump}, CueJump, true},
		{game.Event{Kind: game.EventCollect}, CueCollect, true},
		{game.Event{Kind: game.EventCollect, Bonus: true}, CueBonus, true},
		{game.Event{Kind: game.EventStomp}, CueStomp, true},
		{game.Event{Kind: game.EventHit, HP: 2}, CueHit, true},
		{game.Event{Kind: game.EventFinish, HP: 0}, CueLose, true},
		{game.Event{Kind: game.EventFinish, HP: 2}, CueWin, true},
		{game.Event{Kind: game.EventResult}, 0, false},
	}
	for _, tc := range cases {
		got, ok := CueFor(tc.ev)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("%v: expected %v/%v, got %v/%v", tc.ev.Kind, tc.want, tc.ok, got, ok)
		}
	}
}

func TestPlayerWithoutSpeaker(t *testing.T) {
	p := NewPlayer()
	p.OnEvent(game.Event{Kind: game.EventStomp})
	p.OnEvent(game.Event{Kind: game.EventResult})
	if p.Played(CueStomp) != 1 {
		t.Errorf("expected 1 stomp cue, got %d", p.Played(CueStomp))
	}
	p.Close()
}

func TestPlayerMuteToggle(t *testing.T) {
	p := NewPlayer()
	p.SetMuted(true)
	if !p.Muted() {
		t.Fatal("expected muted after SetMuted(true)")
	}
	if p.ToggleMute() || p.Muted() {
		t.Error("expected the toggle to unmute")
	}
	if !p.ToggleMute() {
		t.Error("expected the toggle to mute again")
	}

	// Muted cues are still counted, only not mixed
	p.OnEvent(game.Event{Kind: game.EventJump})
	if p.Played(CueJump) != 1 {
		t.Errorf("expected 1 jump cue while muted, got %d", p.Played(CueJump))
	}
}
