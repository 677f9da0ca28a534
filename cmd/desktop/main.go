// Command desktop runs the mini-game in a window, with keyboard, mouse and touch input
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"kikitoby/game"
	"kikitoby/sfx"
)

var errQuit = errors.New("quit")

type app struct {
	opts      game.Options
	newLoader func() *game.Loader
	canvas    *screenCanvas
	sound     *sfx.Player

	engine  *game.Engine
	start   time.Time
	result  *game.Result
	jumpCnt int
}

func (a *app) restart() error {
	if a.engine != nil {
		a.engine.Close()
	}
	o := a.opts
	o.Assets = a.newLoader()
	o.Canvas = a.canvas
	o.OnResult = func(r game.Result) {
		a.result = &r
		log.Printf("run finished: won=%v score=%d time=%.1fs (%v)", r.Won, r.Score, r.Time, r.Reason)
	}
	o.OnEvent = a.sound.OnEvent
	e, err := game.New(o)
	if err != nil {
		return err
	}
	a.engine = e
	a.result = nil
	a.start = time.Now()
	return nil
}

func (a *app) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return errQuit
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		a.sound.ToggleMute()
	}
	if a.result != nil && inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := a.restart(); err != nil {
			return err
		}
	}

	a.engine.SetKeys(game.Keys{
		Left:  ebiten.IsKeyPressed(ebiten.KeyArrowLeft) || ebiten.IsKeyPressed(ebiten.KeyA),
		Right: ebiten.IsKeyPressed(ebiten.KeyArrowRight) || ebiten.IsKeyPressed(ebiten.KeyD),
		Jump:  ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyW),
	})
	a.engine.SetTouch(a.touchPad())
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		a.engine.Tap()
	}

	a.engine.Advance(time.Since(a.start))
	return nil
}

// touchPad splits the screen in thirds: left, jump, right
func (a *app) touchPad() game.Touch {
	w := a.opts.Tuning.FieldW
	var t game.Touch
	for _, id := range ebiten.AppendTouchIDs(nil) {
		x, _ := ebiten.TouchPosition(id)
		switch fx := float64(x); {
		case fx < w/3:
			t.Left = true
		case fx > 2*w/3:
			t.Right = true
		}
	}
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		x, _ := ebiten.TouchPosition(id)
		if fx := float64(x); fx >= w/3 && fx <= 2*w/3 {
			a.jumpCnt++
		}
	}
	t.JumpTick = a.jumpCnt
	return t
}

func (a *app) Draw(screen *ebiten.Image) {
	a.canvas.screen = screen
	a.engine.Draw()
}

func (a *app) Layout(_, _ int) (int, int) {
	return int(a.opts.Tuning.FieldW), int(a.opts.Tuning.FieldH)
}

func main() {
	character := flag.String("character", "kiki", "companion: kiki or toby")
	title := flag.String("title", "Panthéon", "place name shown in the HUD")
	assetDir := flag.String("assets", "assets", "asset directory")
	assetURL := flag.String("asset-url", "", "load assets over HTTP from this base URL instead")
	tuningPath := flag.String("tuning", "", "YAML tuning override")
	scale := flag.Float64("scale", 1.5, "window scale")
	mute := flag.Bool("mute", false, "start muted, m toggles sound")
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

	var fetch game.Fetcher = game.FSFetcher{FS: os.DirFS(*assetDir)}
	if *assetURL != "" {
		fetch = game.HTTPFetcher{Base: *assetURL}
	}

	a := &app{
		opts:      game.Options{Character: c, Title: *title, Tuning: &tun},
		newLoader: func() *game.Loader { return game.NewLoader(fetch) },
		canvas:    newScreenCanvas(),
		sound:     sfx.NewPlayer(),
	}
	if err := a.sound.Init(); err != nil {
		log.Printf("audio disabled: %v", err)
	}
	a.sound.SetMuted(*mute)
	defer a.sound.Close()

	if err := a.restart(); err != nil {
		fmt.Fprintln(os.Stderr, "mini-game not supported:", err)
		os.Exit(1)
	}

	ebiten.SetTPS(ebiten.SyncWithFPS)
	ebiten.SetWindowTitle(fmt.Sprintf("Kiki & Toby - %s", *title))
	ebiten.SetWindowSize(int(tun.FieldW*(*scale)), int(tun.FieldH*(*scale)))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(a); err != nil && !errors.Is(err, errQuit) {
		log.Fatal(err)
	}
	a.engine.Close()
}
