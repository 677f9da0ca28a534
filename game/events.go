package game

// EventKind names something that happened during a step
type EventKind int

const (
	EventJump EventKind = iota
	EventCollect
	EventStomp
	EventHit
	EventSlow
	EventGo     // countdown elapsed
	EventFinish // run reached a terminal reason
	EventResult // result delivered to the host
)

func (k EventKind) String() string {
	switch k {
	case EventJump:
		return "jump"
	case EventCollect:
		return "collect"
	case EventStomp:
		return "stomp"
	case EventHit:
		return "hit"
	case EventSlow:
		return "slow"
	case EventGo:
		return "go"
	case EventFinish:
		return "finish"
	case EventResult:
		return "result"
	}
	return "unknown"
}

// Event is a notification for hosts (sound, network). It never feeds back into the run.
type Event struct {
	Kind  EventKind
	Tick  uint64
	X, Y  float64
	Score int // score after the event
	HP    int // health after the event
	Bonus bool
}

type events struct {
	tick uint64
	sink func(Event)
}

func (e *events) emit(ev Event) {
	if e == nil || e.sink == nil {
		return
	}
	ev.Tick = e.tick
	e.sink(ev)
}
