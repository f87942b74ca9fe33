package marker

import (
	"sync"
)

// Recorder is a Sink that keeps the latest state and counts writes.
type Recorder struct {
	mu *sync.RWMutex

	state   State
	touched bool

	visibleWrites int
	offsetWrites  int
	flips         int
}

var _ Sink = &Recorder{}

// NewRecorder creates an empty Recorder. A new Recorder reports not visible at offset (0, 0).
//
// Returns:
//   - *Recorder: the recorder
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.RWMutex{}}
}

func (r *Recorder) SetVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touched && r.state.Visible != visible {
		r.flips++
	}
	r.state.Visible = visible
	r.touched = true
	r.visibleWrites++
}

func (r *Recorder) SetOffset(x, y float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.X, r.state.Y = x, y
	r.offsetWrites++
}

// State returns the latest written state.
func (r *Recorder) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Touched reports whether SetVisible has been called at least once.
func (r *Recorder) Touched() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.touched
}

// Writes returns the number of SetVisible and SetOffset calls.
//
// Returns:
//   - int: SetVisible calls
//   - int: SetOffset calls
func (r *Recorder) Writes() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visibleWrites, r.offsetWrites
}

// Flips returns how many times visibility changed after the first write.
func (r *Recorder) Flips() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flips
}
