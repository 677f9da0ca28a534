package game

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoaderFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sprites/kiki.png": {Data: pngBytes(t, 4, 3)},
		"bg/broken.png":    {Data: []byte("not an image")},
	}
	l := NewLoader(FSFetcher{FS: fsys})

	ok := l.Load("sprites/kiki.png")
	missing := l.Load("sprites/none.png")
	broken := l.Load("bg/broken.png")
	l.Wait()

	if !ok.Ready() {
		t.Fatalf("expected ready, err=%v", ok.Err())
	}
	if b := ok.Image().Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("expected 4x3 image, got %v", b)
	}
	if missing.Ready() || !missing.Done() || missing.Err() == nil {
		t.Error("expected missing asset to fail")
	}
	if broken.Ready() || broken.Err() == nil {
		t.Error("expected undecodable asset to fail")
	}
	if l.Load("sprites/kiki.png") != ok {
		t.Error("expected repeated load to return the same asset")
	}
}

type gatedFetcher struct {
	data    []byte
	release chan struct{}
}

func (f gatedFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	<-f.release
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func TestLoaderCloseDiscardsLateResults(t *testing.T) {
	f := gatedFetcher{data: pngBytes(t, 2, 2), release: make(chan struct{})}
	l := NewLoader(f)
	a := l.Load("sprites/toby.png")

	l.Close()
	close(f.release)
	l.Wait()

	if a.Done() {
		t.Error("expected result discarded after Close")
	}
	if l.Load("sprites/rat.png").Done() {
		t.Error("expected no load after Close")
	}
}

func TestHTTPFetcher(t *testing.T) {
	img := pngBytes(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/sprites/coin.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(img)
	}))
	defer srv.Close()

	l := NewLoader(HTTPFetcher{Base: srv.URL + "/assets"})
	coin := l.Load("sprites/coin.png")
	bone := l.Load("sprites/bone.png")
	l.Wait()

	if !coin.Ready() {
		t.Errorf("expected coin ready, err=%v", coin.Err())
	}
	if bone.Ready() || bone.Err() == nil {
		t.Error("expected 404 to fail")
	}
}

func TestLoadSprites(t *testing.T) {
	empty := LoadSprites(nil, Kiki, "")
	if empty.Background.Ready() || empty.Player.Ready() {
		t.Error("expected nothing ready without a loader")
	}

	l := NewLoader(FSFetcher{FS: fstest.MapFS{}})
	defer l.Close()
	s := LoadSprites(l, Toby, "Le Panthéon")
	if s.Background.Name != "bg/pantheon.png" {
		t.Errorf("expected themed background, got %s", s.Background.Name)
	}
	if s.Player.Name != "sprites/toby.png" {
		t.Errorf("expected toby sprite, got %s", s.Player.Name)
	}
	if len(s.Enemies) != 3 || len(s.Items) != 3 {
		t.Errorf("expected 3 enemy and 3 item sprites, got %d/%d", len(s.Enemies), len(s.Items))
	}
	l.Wait()
}
