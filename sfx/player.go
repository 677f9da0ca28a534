package sfx

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"kikitoby/game"
)

// Player mixes cues onto the system speaker
type Player struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	ready  bool
	muted  bool
	played map[Cue]int
}

// NewPlayer creates a player; call Init before sounds are audible
func NewPlayer() *Player {
	return &Player{mixer: &beep.Mixer{}, played: make(map[Cue]int)}
}

// Init opens the speaker. Failure leaves the player silent.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/20)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(p.mixer)
	p.ready = true
	return nil
}

// SetMuted silences further cues
func (p *Player) SetMuted(m bool) {
	p.mu.Lock()
	p.muted = m
	p.mu.Unlock()
}

// ToggleMute flips the mute state and returns the new one
func (p *Player) ToggleMute() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = !p.muted
	return p.muted
}

// Muted reports whether cues are silenced
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Play queues one cue
func (p *Player) Play(c Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played[c]++
	if !p.ready || p.muted {
		return
	}
	speaker.Lock()
	p.mixer.Add(Streamer(c))
	speaker.Unlock()
}

// OnEvent is an engine event sink
func (p *Player) OnEvent(ev game.Event) {
	if c, ok := CueFor(ev); ok {
		p.Play(c)
	}
}

// Played returns how many times a cue was requested
func (p *Player) Played(c Cue) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[c]
}

// Close stops playback and releases the speaker
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.ready = false
}
