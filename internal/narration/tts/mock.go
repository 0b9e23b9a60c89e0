package tts

import (
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// MockEngine records what it is asked to do. With Manual set, utterances
// only end when Finish is called; otherwise they end after a simulated
// reading time.
type MockEngine struct {
	Manual bool
	// Quiet suppresses the console line printed per utterance.
	Quiet bool

	listeners voiceListeners

	mu        sync.Mutex
	voices    []Voice
	markers   *Markers
	submitted []Utterance
	cancels   int
	calls     []string
	pending   map[uint64]func(error)
	timers    map[uint64]*time.Timer
	speakErr  error
	speed     float64
}

func NewMockEngine(c Config) *MockEngine {
	return &MockEngine{
		voices:  []Voice{{ID: "mock-voice", Name: "Mock Voice", Language: "en-US", Local: true}},
		pending: map[uint64]func(error){},
		timers:  map[uint64]*time.Timer{},
		speed:   nonZero(c.Speed, 1.0),
	}
}

// NewManualMockEngine returns a quiet mock whose utterances end only on Finish.
func NewManualMockEngine(voices ...Voice) *MockEngine {
	m := NewMockEngine(Config{})
	m.Manual = true
	m.Quiet = true
	m.voices = voices
	return m
}

func (m *MockEngine) Voices() ([]Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Voice(nil), m.voices...), nil
}

func (m *MockEngine) OnVoicesChanged(fn func()) {
	m.listeners.add(fn)
}

// SetVoices replaces the catalog and fires the change notification.
func (m *MockEngine) SetVoices(voices ...Voice) {
	m.mu.Lock()
	m.voices = voices
	m.mu.Unlock()
	m.listeners.fire()
}

// SetMarkers makes the mock report its own pacing markers.
func (m *MockEngine) SetMarkers(mk Markers) {
	m.mu.Lock()
	m.markers = &mk
	m.mu.Unlock()
}

func (m *MockEngine) Markers() Markers {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markers != nil {
		return *m.markers
	}
	return DefaultMarkers
}

// FailNextSpeak makes the next Speak call return err.
func (m *MockEngine) FailNextSpeak(err error) {
	m.mu.Lock()
	m.speakErr = err
	m.mu.Unlock()
}

func (m *MockEngine) Speak(u Utterance, done func(error)) error {
	m.mu.Lock()
	m.calls = append(m.calls, "speak")
	if err := m.speakErr; err != nil {
		m.speakErr = nil
		m.mu.Unlock()
		return err
	}
	m.submitted = append(m.submitted, u)
	m.pending[u.ID] = done

	if !m.Manual {
		// Simulate reading time based on text length
		words := len(strings.Fields(u.Text))
		duration := time.Duration(float64(words) / (150.0 * nonZero(u.Rate, m.speed)) * float64(time.Minute))
		m.timers[u.ID] = time.AfterFunc(duration, func() { m.Finish(u.ID, nil) })
	}
	quiet := m.Quiet
	m.mu.Unlock()

	if !quiet {
		color.Yellow("🔊 Reading aloud... %q", u.Text)
	}
	return nil
}

// Finish ends the utterance with the given id, as the host would.
func (m *MockEngine) Finish(id uint64, err error) {
	m.mu.Lock()
	done, ok := m.pending[id]
	delete(m.pending, id)
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	if ok {
		done(err)
	}
}

// Cancel stops in-flight utterances. A manual mock keeps their callbacks so
// tests can deliver late completions through Finish.
func (m *MockEngine) Cancel() error {
	m.mu.Lock()
	m.cancels++
	m.calls = append(m.calls, "cancel")
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}

	var dones []func(error)
	if !m.Manual {
		for id, done := range m.pending {
			dones = append(dones, done)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, done := range dones {
		done(nil)
	}
	return nil
}

func (m *MockEngine) Close() error {
	return m.Cancel()
}

// Submitted returns every utterance handed to Speak.
func (m *MockEngine) Submitted() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Utterance(nil), m.submitted...)
}

// Last returns the most recent submission.
func (m *MockEngine) Last() (Utterance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitted) == 0 {
		return Utterance{}, false
	}
	return m.submitted[len(m.submitted)-1], true
}

// Cancels returns the number of Cancel calls.
func (m *MockEngine) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}

// Calls returns the ordered log of "speak"/"cancel" calls.
func (m *MockEngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
