package avatar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n > 0 && r.states[n-1] == s.State {
		return
	}
	r.states = append(r.states, s.State)
}

func (r *recorder) count(s State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.states {
		if got == s {
			n++
		}
	}
	return n
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestImageFor(t *testing.T) {
	assert.Equal(t, "assets/mascots/success.svg", ImageFor(Success))
	assert.Equal(t, "assets/mascots/default.svg", ImageFor("dancing"))
	assert.False(t, State("dancing").Valid())
	assert.True(t, Completion.Valid())
}

func TestTransientStateRevertsToIdle(t *testing.T) {
	a := New(WithRevertAfter(30 * time.Millisecond))
	defer a.Close()

	a.Set(Success)
	assert.Equal(t, Success, a.State())
	assert.True(t, a.RevertPending())

	assert.Eventually(t, func() bool { return a.State() == Idle }, time.Second, 5*time.Millisecond)
	assert.False(t, a.RevertPending())
}

func TestSecondReactionLeavesSingleRevert(t *testing.T) {
	a := New(WithRevertAfter(60 * time.Millisecond))
	defer a.Close()
	rec := &recorder{}
	a.Subscribe(rec.record)

	a.Set(Success)
	time.Sleep(20 * time.Millisecond)
	a.Set(Good)
	assert.True(t, a.RevertPending())

	assert.Eventually(t, func() bool { return a.State() == Idle }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, []State{Success, Good, Idle}, rec.all())
	assert.Equal(t, 1, rec.count(Idle))
}

func TestStaleRevertDoesNotOverwriteNewState(t *testing.T) {
	a := New(WithRevertAfter(20 * time.Millisecond))
	defer a.Close()

	a.Set(Encouragement)
	a.Set(Helping)
	assert.False(t, a.RevertPending())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, Helping, a.State())
}

func TestAnimatedStateCyclesFrames(t *testing.T) {
	a := New()
	defer a.Close()

	a.Set(Listening)
	assert.Equal(t, "assets/mascots/listening_1.svg", a.Snapshot().Frame)

	assert.Eventually(t, func() bool {
		return a.Snapshot().Frame == "assets/mascots/listening_2.svg"
	}, 2*time.Second, 20*time.Millisecond)

	a.Set(Idle)
	assert.Equal(t, "assets/mascots/idle.svg", a.Snapshot().Frame)
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, "assets/mascots/idle.svg", a.Snapshot().Frame)
}

func TestCloseStopsTimers(t *testing.T) {
	a := New(WithRevertAfter(20 * time.Millisecond))
	rec := &recorder{}
	a.Subscribe(rec.record)

	a.Set(Completion)
	a.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, Completion, a.State())
	assert.Equal(t, 0, rec.count(Idle))

	a.Set(Success)
	assert.Equal(t, Completion, a.State())
}

func TestUnsubscribe(t *testing.T) {
	a := New()
	defer a.Close()
	rec := &recorder{}
	unsubscribe := a.Subscribe(rec.record)

	a.Set(Helping)
	unsubscribe()
	a.Set(Idle)

	assert.Equal(t, []State{Helping}, rec.all())
}
