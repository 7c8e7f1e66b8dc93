package interrupt

import "sync"

// Mode is the agent's speaking state.
type Mode int

const (
	ModeSilent Mode = iota
	ModeSpeaking
)

// String is for logs and events only; logic compares Mode values directly.
func (m Mode) String() string {
	if m == ModeSpeaking {
		return "speaking"
	}
	return "silent"
}

// Tracker holds the current mode for one session. The driver flips it around
// playback lifecycle events; classification reads it. Zero value is silent.
type Tracker struct {
	mu   sync.RWMutex
	mode Mode
}

func NewTracker() *Tracker { return &Tracker{} }

func (t *Tracker) SetMode(m Mode) {
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
}

func (t *Tracker) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func (t *Tracker) IsSpeaking() bool { return t.Mode() == ModeSpeaking }
