// Command term runs the mini-game in a terminal, with synthesized sound
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"kikitoby/game"
	"kikitoby/sfx"
)

// Terminals report key repeats, not releases; a key counts as held this long after its last event
const keyHold = 150 * time.Millisecond

type termGame struct {
	screen tcell.Screen
	canvas *cellCanvas
	sound  *sfx.Player
	opts   game.Options
	fetch  game.Fetcher

	engine *game.Engine
	start  time.Time
	keys   map[tcell.Key]time.Time
	result *game.Result
}

func (g *termGame) newRun() error {
	if g.engine != nil {
		g.engine.Close()
	}
	o := g.opts
	o.Canvas = g.canvas
	o.Assets = game.NewLoader(g.fetch)
	o.OnEvent = g.sound.OnEvent
	o.OnResult = func(r game.Result) { g.result = &r }
	e, err := game.New(o)
	if err != nil {
		return err
	}
	g.engine = e
	g.result = nil
	g.start = time.Now()
	g.keys = make(map[tcell.Key]time.Time)
	return nil
}

func (g *termGame) held(k tcell.Key, now time.Time) bool {
	t, ok := g.keys[k]
	return ok && now.Sub(t) < keyHold
}

// handle returns false when the player quits
func (g *termGame) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		g.canvas.resize(g.opts.Tuning.FieldW, g.opts.Tuning.FieldH, w, h)
		g.screen.Sync()
	case *tcell.EventKey:
		now := time.Now()
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft, tcell.KeyRight, tcell.KeyUp:
			g.keys[ev.Key()] = now
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ', 'w':
				g.keys[tcell.KeyUp] = now
			case 'a':
				g.keys[tcell.KeyLeft] = now
			case 'd':
				g.keys[tcell.KeyRight] = now
			case 'm':
				g.sound.ToggleMute()
			case 'r':
				if g.result != nil {
					if err := g.newRun(); err != nil {
						log.Printf("restart: %v", err)
						return false
					}
				}
			}
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			g.engine.Tap()
		}
	}
	return true
}

func (g *termGame) frame() {
	now := time.Now()
	g.engine.SetKeys(game.Keys{
		Left:  g.held(tcell.KeyLeft, now),
		Right: g.held(tcell.KeyRight, now),
		Jump:  g.held(tcell.KeyUp, now),
	})
	g.engine.Frame(now.Sub(g.start))
	g.canvas.flush(g.screen)
}

func (g *termGame) run() {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go g.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(game.TickDuration)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			if ev == nil || !g.handle(ev) {
				return
			}
		case <-ticker.C:
			g.frame()
		}
	}
}

func main() {
	character := flag.String("character", "toby", "companion: kiki or toby")
	title := flag.String("title", "Jardin du Luxembourg", "place name shown in the HUD")
	assetDir := flag.String("assets", "assets", "asset directory")
	tuningPath := flag.String("tuning", "", "YAML tuning override")
	mute := flag.Bool("mute", false, "start muted, m toggles sound")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	c, err := game.ParseCharacter(*character)
	if err != nil {
		log.Fatal(err)
	}
	tun := game.DefaultTuning()
	if *tuningPath != "" {
		if tun, err = game.LoadTuning(*tuningPath); err != nil {
			log.Fatal(err)
		}
	}

	// The screen owns the terminal; logging to it would corrupt the frame
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mini-game not supported:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "mini-game not supported:", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.HideCursor()

	g := &termGame{
		screen: screen,
		canvas: newCellCanvas(tun.FieldW, tun.FieldH),
		sound:  sfx.NewPlayer(),
		opts:   game.Options{Character: c, Title: *title, Tuning: &tun},
		fetch:  game.FSFetcher{FS: os.DirFS(*assetDir)},
	}
	w, h := screen.Size()
	g.canvas.resize(tun.FieldW, tun.FieldH, w, h)

	if err := g.sound.Init(); err != nil {
		log.Printf("audio disabled: %v", err)
	}
	g.sound.SetMuted(*mute)

	if err := g.newRun(); err != nil {
		screen.Fini()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	g.run()

	g.engine.Close()
	g.sound.Close()
	screen.Fini()
	if g.result != nil {
		fmt.Printf("score %d, %.1fs, won=%v\n", g.result.Score, g.result.Time, g.result.Won)
	}
}
