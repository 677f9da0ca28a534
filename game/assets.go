package game

import (
	"context"
	"fmt"
	"image"
	_ "image/gif" // decoders registered for image.Decode
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

const assetFetchTimeout = 10 * time.Second

// Fetcher opens an asset by its slash-separated name
type Fetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// FSFetcher reads assets from a file system, typically os.DirFS or an embed.FS
type FSFetcher struct {
	FS fs.FS
}

// Fetch opens name inside the file system
func (f FSFetcher) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	return f.FS.Open(name)
}

// HTTPFetcher reads assets relative to a base URL
type HTTPFetcher struct {
	Base   string
	Client *http.Client
}

// Fetch downloads base/name
func (f HTTPFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	u, err := url.Parse(f.Base)
	if err != nil {
		return nil, fmt.Errorf("asset base %q: %w", f.Base, err)
	}
	u.Path = path.Join(u.Path, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("asset %s: %s", name, resp.Status)
	}
	return resp.Body, nil
}

type assetResult struct {
	img image.Image
	err error
}

// Asset is a future for one decoded image. Readers poll, they never block.
type Asset struct {
	Name string
	res  atomic.Pointer[assetResult]
}

// Ready reports whether the image decoded successfully
func (a *Asset) Ready() bool {
	if a == nil {
		return false
	}
	r := a.res.Load()
	return r != nil && r.err == nil
}

// Done reports whether loading finished, successfully or not
func (a *Asset) Done() bool {
	return a != nil && a.res.Load() != nil
}

// Image returns the decoded image, nil until Ready
func (a *Asset) Image() image.Image {
	if a == nil {
		return nil
	}
	if r := a.res.Load(); r != nil {
		return r.img
	}
	return nil
}

// Err returns the load failure, nil while pending or on success
func (a *Asset) Err() error {
	if a == nil {
		return nil
	}
	if r := a.res.Load(); r != nil {
		return r.err
	}
	return nil
}

// Loader loads assets concurrently. Results arriving after Close are discarded.
type Loader struct {
	fetch  Fetcher
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	assets map[string]*Asset
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewLoader creates a loader over the given fetcher
func NewLoader(f Fetcher) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		fetch:  f,
		ctx:    ctx,
		cancel: cancel,
		assets: make(map[string]*Asset),
	}
}

// Load starts loading name, or returns the asset already requested
func (l *Loader) Load(name string) *Asset {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.assets[name]; ok {
		return a
	}
	a := &Asset{Name: name}
	l.assets[name] = a
	if l.closed.Load() {
		return a
	}
	l.wg.Add(1)
	go l.run(a)
	return a
}

func (l *Loader) run(a *Asset) {
	defer l.wg.Done()
	ctx, cancel := context.WithTimeout(l.ctx, assetFetchTimeout)
	defer cancel()

	img, err := l.decode(ctx, a.Name)
	if l.closed.Load() {
		return
	}
	if err != nil {
		log.Printf("asset %s: %v", a.Name, err)
	}
	a.res.Store(&assetResult{img: img, err: err})
}

func (l *Loader) decode(ctx context.Context, name string) (image.Image, error) {
	rc, err := l.fetch.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// Wait blocks until every requested load has finished or been abandoned
func (l *Loader) Wait() {
	if l != nil {
		l.wg.Wait()
	}
}

// Close cancels pending loads and discards their results
func (l *Loader) Close() {
	if l == nil {
		return
	}
	l.closed.Store(true)
	l.cancel()
}

// Sprites groups the assets a run draws
type Sprites struct {
	Background *Asset
	Player     *Asset
	Enemies    map[EnemyKind]*Asset
	Items      map[ItemKind]*Asset
}

// LoadSprites requests every asset for a run. A nil loader yields an empty set.
func LoadSprites(l *Loader, c Character, title string) *Sprites {
	s := &Sprites{
		Enemies: make(map[EnemyKind]*Asset),
		Items:   make(map[ItemKind]*Asset),
	}
	if l == nil {
		return s
	}
	s.Background = l.Load(BackgroundFor(title))
	s.Player = l.Load(c.Sprite())
	for _, k := range []EnemyKind{KindCrawler, KindFlyer, KindFilth} {
		s.Enemies[k] = l.Load(k.Sprite())
	}
	for _, k := range []ItemKind{ItemCoin, ItemCroissant, ItemBone} {
		s.Items[k] = l.Load(k.Sprite())
	}
	return s
}
