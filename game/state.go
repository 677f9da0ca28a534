package game

// Phase is the run controller state
type Phase int

const (
	PhaseStarting Phase = 0 // countdown, no spawns or collisions
	PhaseRunning  Phase = 1
	PhaseFinished Phase = 2 // absorbing
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// Reason records why a run finished
type Reason int

const (
	ReasonNone        Reason = 0
	ReasonDefeated    Reason = 1
	ReasonTimeExpired Reason = 2
)

func (r Reason) String() string {
	switch r {
	case ReasonDefeated:
		return "defeated"
	case ReasonTimeExpired:
		return "time-expired"
	}
	return "none"
}

// EnemyKind distinguishes harmful entities
type EnemyKind int

const (
	KindCrawler EnemyKind = 0 // ground rat, stompable
	KindFlyer   EnemyKind = 1 // pigeon, harmful from every side
	KindFilth   EnemyKind = 2 // static filth, slows
)

// Stompable reports whether landing on the enemy kills it
func (k EnemyKind) Stompable() bool {
	return k == KindCrawler
}

// Sprite is the asset name for the enemy kind
func (k EnemyKind) Sprite() string {
	switch k {
	case KindFlyer:
		return "sprites/pigeon.png"
	case KindFilth:
		return "sprites/filth.png"
	}
	return "sprites/rat.png"
}

// ItemKind tags collectibles for the affinity bonus
type ItemKind int

const (
	ItemCoin      ItemKind = 0
	ItemCroissant ItemKind = 1
	ItemBone      ItemKind = 2
)

// Sprite is the asset name for the item kind
func (k ItemKind) Sprite() string {
	switch k {
	case ItemCroissant:
		return "sprites/croissant.png"
	case ItemBone:
		return "sprites/bone.png"
	}
	return "sprites/coin.png"
}

// OffscreenX is where consumed entities are parked until the front purge drops them
const OffscreenX = -9999.0

// Rect is an axis-aligned box, X/Y at the top-left corner
type Rect struct {
	X, Y, W, H float64
}

// Player is the runner body
type Player struct {
	X, Y       float64
	VX, VY     float64
	W, H       float64
	Grounded   bool
	Facing     float64 // +1 right, -1 left
	PrevBottom float64 // bottom edge before the current step
}

// Box returns the player's collision box
func (p *Player) Box() Rect {
	return Rect{X: p.X, Y: p.Y, W: p.W, H: p.H}
}

// Enemy is an obstacle or hazard scrolling toward the player
type Enemy struct {
	Kind       EnemyKind
	X, Y, W, H float64
	VX         float64 // always negative
	Alive      bool
}

// Box returns the enemy's collision box
func (e *Enemy) Box() Rect {
	return Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}
}

// Collectible is a circular pickup scrolling toward the player
type Collectible struct {
	Kind ItemKind
	X, Y float64 // centre
	R    float64
	VX   float64
}

// RunState is all mutable state of one run, owned by a single Engine
type RunState struct {
	Tuning    Tuning
	Character Character

	Player       Player
	Enemies      []Enemy
	Collectibles []Collectible

	Phase  Phase
	Reason Reason

	Tick      uint64 // steps since start, both phases
	RunTicks  int    // steps while running
	Countdown int    // steps left before running
	Score     int
	HP        int

	Slow        float64
	SlowTicks   int
	InvulnTicks int
	GraceTicks  int
	ScrollX     float64

	SpawnAcc float64

	Stomps    int
	Hits      int
	Collected int
}

// NewRunState creates the state for a fresh run
func NewRunState(t Tuning, c Character) *RunState {
	s := &RunState{
		Tuning:    t,
		Character: c,
		Player: Player{
			X:        t.PlayerStartX,
			Y:        t.GroundY - t.PlayerH,
			W:        t.PlayerW,
			H:        t.PlayerH,
			Grounded: true,
			Facing:   1,
		},
		Enemies:      make([]Enemy, 0, t.MaxEnemies),
		Collectibles: make([]Collectible, 0, t.MaxCollectibles),
		Phase:        PhaseStarting,
		Countdown:    ticks(t.Countdown),
		HP:           t.MaxHP,
		Slow:         1,
	}
	s.Player.PrevBottom = s.Player.Y + s.Player.H
	if s.Countdown == 0 {
		s.Phase = PhaseRunning
	}
	return s
}

// Elapsed is the running time in seconds, independent of the slow multiplier
func (s *RunState) Elapsed() float64 {
	return float64(s.RunTicks) / TickRate
}

// Remaining is the running time left in seconds
func (s *RunState) Remaining() float64 {
	r := s.Tuning.Duration - s.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// CountdownSeconds is the start countdown left in seconds
func (s *RunState) CountdownSeconds() float64 {
	return float64(s.Countdown) / TickRate
}

// Invulnerable reports whether damage is currently ignored
func (s *RunState) Invulnerable() bool {
	return s.InvulnTicks > 0
}

// Result is the terminal outcome reported to the host
type Result struct {
	Won    bool
	Score  int
	Time   float64
	Reason Reason
}

// result builds the terminal outcome from the current state
func (s *RunState) result() Result {
	t := s.Elapsed()
	if t > s.Tuning.Duration {
		t = s.Tuning.Duration
	}
	return Result{
		Won:    s.Reason == ReasonTimeExpired,
		Score:  s.Score,
		Time:   t,
		Reason: s.Reason,
	}
}

// addScore is the only way score changes
func (s *RunState) addScore(n int) {
	if n > 0 {
		s.Score += n
	}
}

// pushEnemy appends in arrival order, dropping the oldest over the cap
func (s *RunState) pushEnemy(e Enemy) {
	s.Enemies = append(s.Enemies, e)
	if over := len(s.Enemies) - s.Tuning.MaxEnemies; over > 0 {
		s.Enemies = s.Enemies[over:]
	}
}

// pushCollectible appends in arrival order, dropping the oldest over the cap
func (s *RunState) pushCollectible(c Collectible) {
	s.Collectibles = append(s.Collectibles, c)
	if over := len(s.Collectibles) - s.Tuning.MaxCollectibles; over > 0 {
		s.Collectibles = s.Collectibles[over:]
	}
}

// purge drops entities from the front once they crossed the left boundary
func (s *RunState) purge() {
	limit := -s.Tuning.PurgeMargin
	for len(s.Enemies) > 0 && s.Enemies[0].X+s.Enemies[0].W < limit {
		s.Enemies = s.Enemies[1:]
	}
	for len(s.Collectibles) > 0 && s.Collectibles[0].X+s.Collectibles[0].R < limit {
		s.Collectibles = s.Collectibles[1:]
	}
}
