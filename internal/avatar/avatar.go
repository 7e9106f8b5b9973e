// Package avatar drives the mascot shown next to a lesson: a reaction state,
// its current image frame, and the timer that returns short-lived reactions
// to idle.
package avatar

import (
	"strconv"
	"sync"
	"time"
)

type State string

const (
	Idle          State = "idle"
	Listening     State = "listening"
	Helping       State = "helping"
	Success       State = "success"
	Encouragement State = "encouragement"
	Good          State = "good"
	Completion    State = "completion"
	Document      State = "document"
)

const (
	assetDir = "assets/mascots/"

	DefaultRevertAfter = 3 * time.Second
)

type animation struct {
	frames   []string
	interval time.Duration
}

var animations = map[State]animation{
	Listening: {frames: frames(Listening, 3), interval: 500 * time.Millisecond},
	Helping:   {frames: frames(Helping, 3), interval: 800 * time.Millisecond},
	Document:  {frames: frames(Document, 2), interval: time.Second},
}

// transient states fall back to Idle after the revert delay
var transient = map[State]bool{
	Success:       true,
	Encouragement: true,
	Good:          true,
	Completion:    true,
}

func frames(s State, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = assetDir + string(s) + "_" + strconv.Itoa(i+1) + ".svg"
	}
	return out
}

// ImageFor returns the static image of a state.
func ImageFor(s State) string {
	switch s {
	case Idle, Listening, Helping, Success, Encouragement, Good, Completion, Document:
		return assetDir + string(s) + ".svg"
	}
	return assetDir + "default.svg"
}

// Valid reports whether s is a known reaction.
func (s State) Valid() bool {
	return ImageFor(s) != assetDir+"default.svg"
}

type Snapshot struct {
	State State  `json:"state"`
	Frame string `json:"frame"`
}

// Avatar is safe for concurrent use. Every Set cancels the pending revert and
// any running animation before the new state is applied, so at most one revert
// is ever pending.
type Avatar struct {
	mu          sync.Mutex
	state       State
	frame       string
	gen         uint64
	revert      *time.Timer
	animStop    chan struct{}
	revertAfter time.Duration
	subs        map[int]func(Snapshot)
	nextSub     int
	closed      bool
}

type Option func(*Avatar)

func WithRevertAfter(d time.Duration) Option {
	return func(a *Avatar) {
		if d > 0 {
			a.revertAfter = d
		}
	}
}

func New(opts ...Option) *Avatar {
	a := &Avatar{
		state:       Idle,
		frame:       ImageFor(Idle),
		revertAfter: DefaultRevertAfter,
		subs:        make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Set switches to s. Unknown states are shown with the default image.
func (a *Avatar) Set(s State) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	snap := a.applyLocked(s)
	a.mu.Unlock()

	a.notify(snap)
}

func (a *Avatar) applyLocked(s State) Snapshot {
	a.cancelLocked()
	a.gen++
	gen := a.gen

	a.state = s
	a.frame = ImageFor(s)

	if anim, ok := animations[s]; ok {
		a.frame = anim.frames[0]
		stop := make(chan struct{})
		a.animStop = stop
		go a.animate(gen, anim, stop)
	}

	if transient[s] {
		a.revert = time.AfterFunc(a.revertAfter, func() { a.revertIfCurrent(gen) })
	}

	return Snapshot{State: a.state, Frame: a.frame}
}

func (a *Avatar) cancelLocked() {
	if a.revert != nil {
		a.revert.Stop()
		a.revert = nil
	}
	if a.animStop != nil {
		close(a.animStop)
		a.animStop = nil
	}
}

// revertIfCurrent ignores timers that fired after a newer Set.
func (a *Avatar) revertIfCurrent(gen uint64) {
	a.mu.Lock()
	if a.closed || a.gen != gen {
		a.mu.Unlock()
		return
	}
	a.revert = nil
	snap := a.applyLocked(Idle)
	a.mu.Unlock()

	a.notify(snap)
}

func (a *Avatar) animate(gen uint64, anim animation, stop <-chan struct{}) {
	ticker := time.NewTicker(anim.interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			i = (i + 1) % len(anim.frames)
			a.mu.Lock()
			if a.gen != gen || a.closed {
				a.mu.Unlock()
				return
			}
			a.frame = anim.frames[i]
			snap := Snapshot{State: a.state, Frame: a.frame}
			a.mu.Unlock()
			a.notify(snap)
		}
	}
}

func (a *Avatar) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{State: a.state, Frame: a.frame}
}

func (a *Avatar) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// RevertPending reports whether a return to idle is scheduled.
func (a *Avatar) RevertPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revert != nil
}

// Subscribe registers fn for every state or frame change. fn must not block.
func (a *Avatar) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Avatar) notify(snap Snapshot) {
	a.mu.Lock()
	subs := make([]func(Snapshot), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Close stops timers and drops subscribers. Later calls to Set are ignored.
func (a *Avatar) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.gen++
	a.cancelLocked()
	a.subs = map[int]func(Snapshot){}
}
