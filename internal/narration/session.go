package narration

import (
	"sync"

	"github.com/sirupsen/logrus"

	"readaloud/internal/narration/tts"
)

// Status is the playback state of a Session.
type Status int

const (
	Idle Status = iota
	Speaking
)

func (s Status) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// Owner identifies the control that started an utterance. Zero means none.
type Owner uint64

// State is a snapshot of the session.
type State struct {
	Status     Status
	Generation uint64
	Owner      Owner
	Text       string
}

// Speaking reports whether an utterance is active.
func (s State) Speaking() bool {
	return s.Status == Speaking
}

// Session owns the single playback slot. All state changes go through
// Speak, Stop, StopOwner and the engine completion callback.
type Session struct {
	engine tts.Engine
	log    *logrus.Entry

	// engineMu keeps each cancel+submit pair together so two audio streams
	// never overlap. It is never held while subscribers run.
	engineMu sync.Mutex

	mu       sync.Mutex
	state    State
	subs     map[uint64]func(State)
	nextSub  uint64
	pending  []State
	flushing bool
}

// NewSession wraps engine. A nil engine gives a session where every call is a no-op.
func NewSession(engine tts.Engine, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		engine: engine,
		log:    log.WithField("component", "session"),
		subs:   map[uint64]func(State){},
	}
}

// Supported reports whether the session has an engine.
func (s *Session) Supported() bool {
	return s.engine != nil
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change. The returned func removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Speak replaces whatever is playing with u. The generation is assigned here;
// any ID set by the caller is overwritten.
func (s *Session) Speak(owner Owner, u tts.Utterance) {
	if s.engine == nil {
		return
	}

	s.engineMu.Lock()

	s.mu.Lock()
	wasSpeaking := s.state.Speaking()
	gen := s.state.Generation + 1
	u.ID = gen
	s.state = State{Status: Speaking, Generation: gen, Owner: owner, Text: u.Text}
	s.pending = append(s.pending, s.state)
	s.mu.Unlock()

	if wasSpeaking {
		if err := s.engine.Cancel(); err != nil {
			s.log.WithError(err).Warn("failed to cancel utterance")
		}
	}

	err := s.engine.Speak(u, func(err error) { s.finish(gen, err) })
	s.engineMu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("generation", gen).Warn("engine rejected utterance")
		s.finish(gen, nil)
		return
	}

	s.log.WithFields(logrus.Fields{
		"generation": gen,
		"owner":      owner,
		"superseded": wasSpeaking,
	}).Debug("utterance started")
	s.flush()
}

// Stop cancels the active utterance. It does nothing when idle.
func (s *Session) Stop() {
	s.stop(func(State) bool { return true })
}

// StopOwner stops playback only if owner started the active utterance.
func (s *Session) StopOwner(owner Owner) bool {
	return s.stop(func(st State) bool { return st.Owner == owner })
}

func (s *Session) stop(match func(State) bool) bool {
	if s.engine == nil {
		return false
	}

	s.engineMu.Lock()

	s.mu.Lock()
	if !s.state.Speaking() || !match(s.state) {
		s.mu.Unlock()
		s.engineMu.Unlock()
		return false
	}
	s.state = State{Status: Idle, Generation: s.state.Generation}
	s.pending = append(s.pending, s.state)
	s.mu.Unlock()

	if err := s.engine.Cancel(); err != nil {
		s.log.WithError(err).Warn("failed to cancel utterance")
	}
	s.engineMu.Unlock()

	s.log.WithField("generation", s.State().Generation).Debug("utterance stopped")
	s.flush()
	return true
}

// finish handles the engine's end/error callback for generation gen.
func (s *Session) finish(gen uint64, err error) {
	s.mu.Lock()
	if !s.state.Speaking() || s.state.Generation != gen {
		s.mu.Unlock()
		s.log.WithField("generation", gen).Debug("ignoring stale completion")
		return
	}
	s.state = State{Status: Idle, Generation: gen}
	s.pending = append(s.pending, s.state)
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).WithField("generation", gen).Warn("narration failed")
	}
	s.flush()
}

// flush delivers queued states in commit order. Only one goroutine drains at a
// time; a subscriber that calls back into the session has its change queued
// behind the one it is handling.
func (s *Session) flush() {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true

	for len(s.pending) > 0 {
		st := s.pending[0]
		s.pending = s.pending[1:]

		subs := make([]func(State), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.mu.Unlock()

		for _, fn := range subs {
			fn(st)
		}

		s.mu.Lock()
	}

	s.flushing = false
	s.mu.Unlock()
}
