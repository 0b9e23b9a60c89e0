package narration

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readaloud/internal/narration/tts"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(st State) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestSession(t *testing.T) (*Session, *tts.MockEngine, *recorder) {
	t.Helper()
	engine := tts.NewManualMockEngine()
	s := NewSession(engine, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)
	return s, engine, rec
}

func TestSession_SpeakFromIdle(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})

	st := s.State()
	assert.Equal(t, Speaking, st.Status)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, Owner(1), st.Owner)
	assert.Equal(t, []string{"speak"}, engine.Calls())

	// Delivered before Speak returned.
	require.Len(t, rec.all(), 1)
	assert.Equal(t, st, rec.all()[0])

	last, ok := engine.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(1), last.ID)
}

func TestSession_SpeakSupersedesActiveUtterance(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})
	s.Speak(2, tts.Utterance{Text: "two"})

	assert.Equal(t, []string{"speak", "cancel", "speak"}, engine.Calls())

	st := s.State()
	assert.Equal(t, Speaking, st.Status)
	assert.Equal(t, uint64(2), st.Generation)
	assert.Equal(t, Owner(2), st.Owner)
	assert.Equal(t, "two", st.Text)

	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, Owner(1), states[0].Owner)
	assert.Equal(t, Owner(2), states[1].Owner)
}

func TestSession_StaleCompletionIgnored(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})
	s.Speak(2, tts.Utterance{Text: "two"})
	before := s.State()
	notified := len(rec.all())

	engine.Finish(1, nil)

	assert.Equal(t, before, s.State())
	assert.Len(t, rec.all(), notified)

	engine.Finish(2, nil)
	assert.Equal(t, Idle, s.State().Status)
	assert.Len(t, rec.all(), notified+1)
}

func TestSession_CompletionAfterStopIgnored(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})
	s.Stop()
	notified := len(rec.all())

	engine.Finish(1, nil)

	assert.Equal(t, Idle, s.State().Status)
	assert.Len(t, rec.all(), notified)
}

func TestSession_StopWhenIdleIsNoop(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Stop()

	assert.Equal(t, State{}, s.State())
	assert.Empty(t, rec.all())
	assert.Empty(t, engine.Calls())
}

func TestSession_StopWhileSpeaking(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})
	s.Stop()

	assert.Equal(t, Idle, s.State().Status)
	assert.Equal(t, uint64(1), s.State().Generation)
	assert.Equal(t, []string{"speak", "cancel"}, engine.Calls())

	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, Idle, states[1].Status)
}

func TestSession_StopOwner(t *testing.T) {
	s, engine, _ := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})

	assert.False(t, s.StopOwner(2))
	assert.Equal(t, Speaking, s.State().Status)
	assert.Equal(t, 0, engine.Cancels())

	assert.True(t, s.StopOwner(1))
	assert.Equal(t, Idle, s.State().Status)
	assert.Equal(t, 1, engine.Cancels())
}

func TestSession_EngineErrorEndsPlayback(t *testing.T) {
	s, engine, rec := newTestSession(t)

	s.Speak(1, tts.Utterance{Text: "one"})
	engine.Finish(1, errors.New("audio device lost"))

	assert.Equal(t, Idle, s.State().Status)
	assert.Len(t, rec.all(), 2)
}

func TestSession_RejectedSubmissionReturnsToIdle(t *testing.T) {
	s, engine, rec := newTestSession(t)
	engine.FailNextSpeak(errors.New("busy"))

	s.Speak(1, tts.Utterance{Text: "one"})

	assert.Equal(t, Idle, s.State().Status)
	states := rec.all()
	require.NotEmpty(t, states)
	assert.Equal(t, Idle, states[len(states)-1].Status)
}

func TestSession_NilEngine(t *testing.T) {
	s := NewSession(nil, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)

	assert.NotPanics(t, func() {
		s.Speak(1, tts.Utterance{Text: "one"})
		s.Stop()
		s.StopOwner(1)
	})
	assert.False(t, s.Supported())
	assert.Equal(t, State{}, s.State())
	assert.Empty(t, rec.all())
}

func TestSession_SubscriberMayCallBack(t *testing.T) {
	s, engine, _ := newTestSession(t)

	var seen []Status
	s.Subscribe(func(st State) {
		seen = append(seen, st.Status)
		if st.Speaking() {
			s.Stop()
		}
	})

	s.Speak(1, tts.Utterance{Text: "one"})

	assert.Equal(t, []Status{Speaking, Idle}, seen)
	assert.Equal(t, Idle, s.State().Status)
	assert.Equal(t, []string{"speak", "cancel"}, engine.Calls())
}

func TestSession_Unsubscribe(t *testing.T) {
	s, _, _ := newTestSession(t)

	calls := 0
	cancel := s.Subscribe(func(State) { calls++ })
	s.Speak(1, tts.Utterance{Text: "one"})
	cancel()
	s.Stop()

	assert.Equal(t, 1, calls)
}

func TestSession_ConcurrentSpeakKeepsOneActive(t *testing.T) {
	s, engine, rec := newTestSession(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(owner Owner) {
			defer wg.Done()
			s.Speak(owner, tts.Utterance{Text: "hello"})
			engine.Finish(uint64(owner), nil)
		}(Owner(i))
	}
	wg.Wait()

	assert.Equal(t, uint64(n), s.State().Generation)
	assert.Len(t, engine.Submitted(), n)

	// States arrive in commit order: generations never go backwards.
	var last uint64
	for _, st := range rec.all() {
		assert.GreaterOrEqual(t, st.Generation, last)
		last = st.Generation
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "speaking", Speaking.String())
}
