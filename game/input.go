package game

// Keys is the held state of the keyboard controls
type Keys struct {
	Left  bool
	Right bool
	Jump  bool
}

// Touch is the discretized touch-pad input forwarded by the host.
// JumpTick increases by one for every jump press.
type Touch struct {
	Left     bool
	Right    bool
	JumpTick int
}

// input merges keyboard, pointer and touch-pad sources into one intent per step.
// Touch direction flags override the keyboard whenever either flag is set.
type input struct {
	keys     Keys
	prevJump bool
	touch    Touch
	lastTick int
	jump     bool // pending edge, consumed or dropped by the next step
}

func (in *input) setKeys(k Keys) {
	if k.Jump && !in.prevJump {
		in.jump = true
	}
	in.prevJump = k.Jump
	in.keys = k
}

func (in *input) setTouch(t Touch) {
	if t.JumpTick > in.lastTick {
		in.jump = true
	}
	if t.JumpTick >= in.lastTick {
		in.lastTick = t.JumpTick
	}
	in.touch = t
}

func (in *input) tap() {
	in.jump = true
}

// direction returns -1, 0 or +1
func (in *input) direction() float64 {
	left, right := in.keys.Left, in.keys.Right
	if in.touch.Left || in.touch.Right {
		left, right = in.touch.Left, in.touch.Right
	}
	switch {
	case left && !right:
		return -1
	case right && !left:
		return 1
	}
	return 0
}

// takeJump returns the pending request and clears it
func (in *input) takeJump() bool {
	j := in.jump
	in.jump = false
	return j
}

// reset drops held state so nothing leaks past the end of a run
func (in *input) reset() {
	*in = input{lastTick: in.lastTick, prevJump: in.prevJump}
}
