package narration

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readaloud/internal/narration/tts"
)

type viewLog struct {
	mu    sync.Mutex
	views []View
}

func (l *viewLog) add(v View) {
	l.mu.Lock()
	l.views = append(l.views, v)
	l.mu.Unlock()
}

func (l *viewLog) last() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.views) == 0 {
		return View{}
	}
	return l.views[len(l.views)-1]
}

func newTestNarrator(t *testing.T, voices ...tts.Voice) (*Narrator, *tts.MockEngine) {
	t.Helper()
	engine := tts.NewManualMockEngine(voices...)
	return New(engine, DefaultSettings(), nil), engine
}

func TestNarrator_SecondWidgetTakesOver(t *testing.T) {
	n, engine := newTestNarrator(t)

	var logA, logB viewLog
	a := n.Bind(logA.add)
	b := n.Bind(logB.add)

	a.Speak("one")
	assert.True(t, logA.last().Active)
	assert.False(t, logB.last().Active)
	assert.True(t, logB.last().Speaking)

	b.Speak("two")
	assert.False(t, logA.last().Active)
	assert.True(t, logB.last().Active)
	assert.False(t, a.Active())
	assert.True(t, b.Active())

	assert.Equal(t, []string{"speak", "cancel", "speak"}, engine.Calls())
	assert.Equal(t, 1, engine.Cancels())
}

func TestNarrator_NeverTwoActive(t *testing.T) {
	n, _ := newTestNarrator(t)

	controls := make([]*Control, 5)
	for i := range controls {
		controls[i] = n.Bind(nil)
	}

	check := func() {
		active := 0
		for _, c := range controls {
			if c.Active() {
				active++
			}
		}
		assert.LessOrEqual(t, active, 1)
	}

	n.Subscribe(func(State) { check() })
	for i := 0; i < 20; i++ {
		controls[i%len(controls)].Speak("hello there")
		check()
	}
}

func TestNarrator_ChildFriendlyDefaults(t *testing.T) {
	n, engine := newTestNarrator(t)

	n.Speak("Hello.")
	u, ok := engine.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.9, u.Rate, 1e-9)
	assert.InDelta(t, 1.05, u.Pitch, 1e-9)
	assert.InDelta(t, 1.0, u.Volume, 1e-9)

	n.Speak("Hello.", ChildFriendly(false))
	u, _ = engine.Last()
	assert.InDelta(t, 1.0, u.Rate, 1e-9)
	assert.InDelta(t, 1.0, u.Pitch, 1e-9)
}

func TestNarrator_ExplicitOptionsClamped(t *testing.T) {
	n, engine := newTestNarrator(t)

	n.Speak("Hi", WithRate(20), WithPitch(-1), WithVolume(0.5))
	u, ok := engine.Last()
	require.True(t, ok)
	assert.InDelta(t, 10, u.Rate, 1e-9)
	assert.InDelta(t, 0, u.Pitch, 1e-9)
	assert.InDelta(t, 0.5, u.Volume, 1e-9)
}

func TestNarrator_Pauses(t *testing.T) {
	n, engine := newTestNarrator(t)

	n.Speak("Hello, world. Ready?")
	u, _ := engine.Last()
	assert.Equal(t, "Hello, .. world. ... Ready? ...", u.Text)
	assert.False(t, u.SSML)

	n.Speak("Hello, world.", WithPauses(false))
	u, _ = engine.Last()
	assert.Equal(t, "Hello, world.", u.Text)

	engine.SetMarkers(tts.SSMLMarkers)
	n.Speak("Hi.")
	u, _ = engine.Last()
	assert.True(t, u.SSML)
	assert.Equal(t, `Hi.<break time="600ms"/>`, u.Text)
}

func TestNarrator_VoiceSelection(t *testing.T) {
	voices := []tts.Voice{
		{ID: "adult", Name: "Adult", Language: "en-US", Local: true},
		{ID: "kids", Name: "Kids", Language: "en-US"},
	}
	n, engine := newTestNarrator(t, voices...)

	n.Speak("Hello")
	u, _ := engine.Last()
	require.NotNil(t, u.Voice)
	assert.Equal(t, "kids", u.Voice.ID)

	n.Speak("Hello", ChildFriendly(false))
	u, _ = engine.Last()
	require.NotNil(t, u.Voice)
	assert.Equal(t, "adult", u.Voice.ID)

	n.Speak("Hello", WithVoice(tts.Voice{ID: "pinned"}))
	u, _ = engine.Last()
	require.NotNil(t, u.Voice)
	assert.Equal(t, "pinned", u.Voice.ID)

	assert.Equal(t, "kids", n.SelectChildFriendlyVoice().ID)
}

func TestNarrator_ConfiguredVoice(t *testing.T) {
	voices := []tts.Voice{
		{ID: "kids", Name: "Kids", Language: "en-US"},
		{ID: "story", Name: "Storyteller", Language: "en-US"},
	}
	n, engine := newTestNarrator(t, voices...)

	s := n.Settings()
	s.Voice = "storyteller"
	n.Configure(s)

	n.Speak("Hello")
	u, _ := engine.Last()
	require.NotNil(t, u.Voice)
	assert.Equal(t, "story", u.Voice.ID)
}

func TestNarrator_EmptyCatalogUsesEngineDefault(t *testing.T) {
	n, engine := newTestNarrator(t)

	n.Speak("Hello")
	u, ok := engine.Last()
	require.True(t, ok)
	assert.Nil(t, u.Voice)
	assert.Nil(t, n.SelectChildFriendlyVoice())
}

func TestNarrator_LateCatalogReachesWidgets(t *testing.T) {
	n, engine := newTestNarrator(t)

	var log viewLog
	n.Bind(log.add)

	engine.SetVoices(tts.Voice{ID: "junior", Language: "en"})

	assert.Equal(t, []tts.Voice{{ID: "junior", Language: "en"}}, log.last().Voices)
	assert.Equal(t, "junior", n.SelectChildFriendlyVoice().ID)

	n.Speak("Hello")
	u, _ := engine.Last()
	require.NotNil(t, u.Voice)
	assert.Equal(t, "junior", u.Voice.ID)
}

func TestNarrator_BlankTextIgnored(t *testing.T) {
	n, engine := newTestNarrator(t)

	n.Speak("   \n\t")

	assert.False(t, n.Speaking())
	assert.Empty(t, engine.Calls())
}

func TestNarrator_Unsupported(t *testing.T) {
	n := New(nil, DefaultSettings(), nil)

	var log viewLog
	c := n.Bind(log.add)

	assert.NotPanics(t, func() {
		n.Speak("hello")
		n.Stop()
		c.Speak("hello")
		c.Toggle("hello")
		c.Stop()
		c.Close()
		require.NoError(t, n.Close())
	})
	assert.False(t, n.Supported())
	assert.False(t, n.Speaking())
	assert.Nil(t, n.Voices())
	assert.Nil(t, n.SelectChildFriendlyVoice())
	assert.Equal(t, State{}, n.State())
	assert.False(t, c.View().Supported)
	assert.Empty(t, log.views)
}

func TestControl_Toggle(t *testing.T) {
	n, engine := newTestNarrator(t)
	c := n.Bind(nil)

	c.Toggle("hello")
	assert.True(t, c.Active())

	c.Toggle("hello")
	assert.False(t, c.Active())
	assert.False(t, n.Speaking())
	assert.Equal(t, []string{"speak", "cancel"}, engine.Calls())
}

func TestControl_CloseStopsOnlyItsOwnNarration(t *testing.T) {
	n, engine := newTestNarrator(t)
	a := n.Bind(nil)
	b := n.Bind(nil)

	a.Speak("one")
	b.Close()
	assert.True(t, a.Active())
	assert.Equal(t, 0, engine.Cancels())

	a.Close()
	assert.False(t, n.Speaking())
	assert.Equal(t, 1, engine.Cancels())

	// Closed controls get no further views.
	var log viewLog
	c := n.Bind(log.add)
	c.Close()
	n.Speak("two")
	assert.Empty(t, log.views)
}

func TestControl_NaturalEndFlipsToIdle(t *testing.T) {
	n, engine := newTestNarrator(t)

	var log viewLog
	c := n.Bind(log.add)
	c.Speak("one")

	u, _ := engine.Last()
	engine.Finish(u.ID, nil)

	assert.False(t, log.last().Speaking)
	assert.False(t, log.last().Active)
	assert.False(t, c.Speaking())
}
