// Package sfx synthesizes the short sound cues played on mini-game events
package sfx

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"kikitoby/game"
)

// SampleRate is the output rate of every cue
const SampleRate = beep.SampleRate(44100)

// Cue identifies one sound effect
type Cue int

const (
	CueJump Cue = iota
	CueCollect
	CueBonus
	CueStomp
	CueHit
	CueSlow
	CueGo
	CueWin
	CueLose
)

func (c Cue) String() string {
	switch c {
	case CueJump:
		return "jump"
	case CueCollect:
		return "collect"
	case CueBonus:
		return "bonus"
	case CueStomp:
		return "stomp"
	case CueHit:
		return "hit"
	case CueSlow:
		return "slow"
	case CueGo:
		return "go"
	case CueWin:
		return "win"
	case CueLose:
		return "lose"
	}
	return "unknown"
}

// CueFor maps an engine event to its cue. Events without a sound return false.
func CueFor(ev game.Event) (Cue, bool) {
	switch ev.Kind {
	case game.EventJump:
		return CueJump, true
	case game.EventCollect:
		if ev.Bonus {
			return CueBonus, true
		}
		return CueCollect, true
	case game.EventStomp:
		return CueStomp, true
	case game.EventHit:
		return CueHit, true
	case game.EventSlow:
		return CueSlow, true
	case game.EventGo:
		return CueGo, true
	case game.EventFinish:
		// A run only finishes at 0 HP when defeated
		if ev.HP == 0 {
			return CueLose, true
		}
		return CueWin, true
	}
	return 0, false
}

// Streamer builds a fresh finite streamer for the cue
func Streamer(c Cue) beep.Streamer {
	switch c {
	case CueJump:
		return sweep(330, 660, 120*time.Millisecond, WaveSquare, 0.25)
	case CueCollect:
		return tone(987.77, 80*time.Millisecond, WaveSquare, 0.25)
	case CueBonus:
		return beep.Seq(
			tone(987.77, 70*time.Millisecond, WaveSquare, 0.25),
			tone(1318.51, 140*time.Millisecond, WaveSquare, 0.25),
		)
	case CueStomp:
		return beep.Mix(
			sweep(220, 110, 100*time.Millisecond, WaveSquare, 0.3),
			tone(0, 60*time.Millisecond, WaveNoise, 0.15),
		)
	case CueHit:
		return tone(100, 180*time.Millisecond, WaveSaw, 0.35)
	case CueSlow:
		return sweep(300, 150, 250*time.Millisecond, WaveSine, 0.3)
	case CueGo:
		return tone(880, 200*time.Millisecond, WaveSine, 0.3)
	case CueWin:
		return beep.Seq(
			tone(523.25, 120*time.Millisecond, WaveSquare, 0.25),
			tone(659.25, 120*time.Millisecond, WaveSquare, 0.25),
			tone(783.99, 120*time.Millisecond, WaveSquare, 0.25),
			tone(1046.5, 300*time.Millisecond, WaveSquare, 0.25),
		)
	case CueLose:
		return beep.Seq(
			tone(392, 180*time.Millisecond, WaveSaw, 0.3),
			tone(311.13, 180*time.Millisecond, WaveSaw, 0.3),
			tone(261.63, 400*time.Millisecond, WaveSaw, 0.3),
		)
	}
	return beep.Silence(0)
}

func tone(freq float64, d time.Duration, w WaveType, vol float64) beep.Streamer {
	osc := NewOscillator(freq, freq, d, w, SampleRate)
	return volume(NewEnvelope(osc, d, 5*time.Millisecond, d/2, SampleRate), vol)
}

func sweep(from, to float64, d time.Duration, w WaveType, vol float64) beep.Streamer {
	osc := NewOscillator(from, to, d, w, SampleRate)
	return volume(NewEnvelope(osc, d, 5*time.Millisecond, d/3, SampleRate), vol)
}

// volume scales linearly; zero or less is silent
func volume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
