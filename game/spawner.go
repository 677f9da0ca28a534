package game

import "math/rand"

// SpawnKind is the outcome of one weighted spawn roll
type SpawnKind int

const (
	SpawnNone SpawnKind = iota
	SpawnCrawler
	SpawnFlyer
	SpawnFilth
	SpawnCollectible
)

// Spawner generates obstacles and collectibles ahead of the player
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner creates a spawner drawing from rng
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng}
}

// Tick advances the spawn clock by one step and spawns at most once.
// Returns the kind spawned, SpawnNone when nothing was created.
// The clock is paused outside the running phase and while the player is invulnerable.
func (sp *Spawner) Tick(s *RunState) SpawnKind {
	t := &s.Tuning
	if s.Phase != PhaseRunning || s.Invulnerable() || t.SpawnWeights.total() <= 0 {
		return SpawnNone
	}
	s.SpawnAcc += Step
	if s.SpawnAcc < t.SpawnInterval {
		return SpawnNone
	}
	s.SpawnAcc = 0

	x := t.FieldW + t.SpawnMargin
	if InSafeZone(s, x) {
		return SpawnNone
	}

	kind := sp.roll(t.SpawnWeights)
	switch kind {
	case SpawnCrawler:
		const w, h = 28.0, 22.0
		s.pushEnemy(Enemy{
			Kind: KindCrawler, X: x, Y: t.GroundY - h, W: w, H: h,
			VX: -(t.WorldSpeed + sp.between(20, 80)), Alive: true,
		})
	case SpawnFlyer:
		const w, h = 30.0, 18.0
		s.pushEnemy(Enemy{
			Kind: KindFlyer, X: x, Y: t.GroundY - t.PlayerH - sp.between(34, 74) - h, W: w, H: h,
			VX: -(t.WorldSpeed + sp.between(60, 120)), Alive: true,
		})
	case SpawnFilth:
		const w, h = 18.0, 10.0
		s.pushEnemy(Enemy{
			Kind: KindFilth, X: x, Y: t.GroundY - h, W: w, H: h,
			VX: -(t.WorldSpeed + sp.between(0, 50)), Alive: true,
		})
	case SpawnCollectible:
		s.pushCollectible(Collectible{
			Kind: sp.item(),
			X:    x,
			Y:    t.GroundY - sp.between(60, 140),
			R:    8,
			VX:   -(t.WorldSpeed + sp.between(30, 90)),
		})
	}
	return kind
}

// InSafeZone reports whether x lies in the protected strip ahead of the player
func InSafeZone(s *RunState, x float64) bool {
	front := s.Player.X
	return x >= front && x <= front+s.Player.W+s.Tuning.SafeZone
}

func (sp *Spawner) roll(w SpawnWeights) SpawnKind {
	r := sp.rng.Float64() * w.total()
	if r < w.Crawler {
		return SpawnCrawler
	}
	r -= w.Crawler
	if r < w.Flyer {
		return SpawnFlyer
	}
	r -= w.Flyer
	if r < w.Filth {
		return SpawnFilth
	}
	return SpawnCollectible
}

// item picks a collectible kind; half of them are plain coins
func (sp *Spawner) item() ItemKind {
	switch sp.rng.Intn(4) {
	case 0:
		return ItemCroissant
	case 1:
		return ItemBone
	}
	return ItemCoin
}

func (sp *Spawner) between(a, b float64) float64 {
	return a + sp.rng.Float64()*(b-a)
}
