// Package narration turns page text into speech through a host engine.
//
// A single Narrator is shared by every narration control in the process.
// Controls read their state from it, so starting one narration flips every
// other control back to idle and at most one utterance is ever audible.
package narration

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"readaloud/internal/narration/tts"
)

// View is what a bound control renders.
type View struct {
	// Speaking is true while any utterance plays.
	Speaking bool
	// Active is true when this control started the current utterance.
	Active    bool
	Supported bool
	Voices    []tts.Voice
}

type Narrator struct {
	engine  tts.Engine
	session *Session
	catalog *Catalog
	log     *logrus.Entry

	owners atomic.Uint64

	mu       sync.Mutex
	settings Settings
	controls map[Owner]*Control
}

// New builds a Narrator over engine. A nil engine yields an unsupported
// narrator whose methods are all safe no-ops.
func New(engine tts.Engine, settings Settings, log *logrus.Entry) *Narrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	n := &Narrator{
		engine:   engine,
		session:  NewSession(engine, log),
		catalog:  NewCatalog(engine, log),
		log:      log.WithField("component", "narrator"),
		settings: settings,
		controls: map[Owner]*Control{},
	}
	n.session.Subscribe(n.onState)
	n.catalog.OnChange(n.onVoices)
	return n
}

func (n *Narrator) Supported() bool {
	return n.engine != nil
}

func (n *Narrator) Speaking() bool {
	return n.session.State().Speaking()
}

// State exposes the session snapshot.
func (n *Narrator) State() State {
	return n.session.State()
}

func (n *Narrator) Voices() []tts.Voice {
	return n.catalog.List()
}

// SelectChildFriendlyVoice ranks the current catalog for the configured locale.
func (n *Narrator) SelectChildFriendlyVoice() *tts.Voice {
	return SelectChildFriendlyVoice(n.catalog.List(), n.Settings().Locale)
}

func (n *Narrator) Settings() Settings {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settings
}

// Configure replaces the defaults used by later speak calls.
func (n *Narrator) Configure(s Settings) {
	n.mu.Lock()
	n.settings = s
	n.mu.Unlock()
}

// Speak narrates text without an owning control.
func (n *Narrator) Speak(text string, opts ...Option) {
	n.speak(0, text, opts)
}

// Stop silences whatever is playing.
func (n *Narrator) Stop() {
	n.session.Stop()
}

// Subscribe observes raw session states.
func (n *Narrator) Subscribe(fn func(State)) func() {
	return n.session.Subscribe(fn)
}

// Close stops playback and releases the engine.
func (n *Narrator) Close() error {
	n.session.Stop()
	if n.engine == nil {
		return nil
	}
	return n.engine.Close()
}

// Bind creates a control for one widget. onChange may be nil.
func (n *Narrator) Bind(onChange func(View)) *Control {
	c := &Control{
		n:        n,
		owner:    Owner(n.owners.Add(1)),
		onChange: onChange,
	}
	n.mu.Lock()
	n.controls[c.owner] = c
	n.mu.Unlock()
	return c
}

func (n *Narrator) speak(owner Owner, text string, opts []Option) {
	if n.engine == nil {
		return
	}
	if strings.TrimSpace(text) == "" {
		n.log.Debug("ignoring empty narration text")
		return
	}
	n.session.Speak(owner, n.utterance(text, opts))
}

// utterance applies options over the current settings.
func (n *Narrator) utterance(text string, opts []Option) tts.Utterance {
	settings := n.Settings()

	var o speakOptions
	for _, opt := range opts {
		opt(&o)
	}

	child := boolOr(o.child, settings.ChildFriendly)
	pauses := boolOr(o.pauses, settings.AddPauses)

	rate, pitch := settings.Rate, settings.Pitch
	if child {
		rate, pitch = settings.ChildRate, settings.ChildPitch
	}

	markers := tts.MarkersFor(n.engine)
	u := tts.Utterance{
		Text:   PreparePacing(text, PacingOptions{InsertPauses: pauses, Markers: markers}),
		Rate:   clamp(floatOr(o.rate, rate), 0.1, 10),
		Pitch:  clamp(floatOr(o.pitch, pitch), 0, 2),
		Volume: clamp(floatOr(o.volume, settings.Volume), 0, 1),
		Voice:  o.voice,
		SSML:   pauses && markers.SSML,
	}
	if u.Voice == nil {
		u.Voice = n.chooseVoice(settings, child)
	}
	return u
}

func (n *Narrator) chooseVoice(settings Settings, child bool) *tts.Voice {
	voices := n.catalog.List()

	if settings.Voice != "" && settings.Voice != "default" {
		for _, v := range voices {
			if v.ID == settings.Voice || strings.EqualFold(v.Name, settings.Voice) {
				return &v
			}
		}
		n.log.WithField("voice", settings.Voice).Debug("configured voice not in catalog")
	}

	if child {
		return SelectChildFriendlyVoice(voices, settings.Locale)
	}
	return SelectVoice(voices, settings.Locale)
}

func (n *Narrator) onState(st State) {
	n.broadcast(st, n.catalog.List())
}

func (n *Narrator) onVoices(voices []tts.Voice) {
	n.broadcast(n.session.State(), voices)
}

func (n *Narrator) broadcast(st State, voices []tts.Voice) {
	n.mu.Lock()
	controls := make([]*Control, 0, len(n.controls))
	for _, c := range n.controls {
		controls = append(controls, c)
	}
	n.mu.Unlock()

	for _, c := range controls {
		if c.onChange != nil {
			c.onChange(c.view(st, voices))
		}
	}
}

func (n *Narrator) unbind(owner Owner) {
	n.mu.Lock()
	delete(n.controls, owner)
	n.mu.Unlock()
}

// Control is one widget's handle on the shared narrator.
type Control struct {
	n        *Narrator
	owner    Owner
	onChange func(View)
	closed   sync.Once
}

// Owner is the token the session records for utterances this control starts.
func (c *Control) Owner() Owner {
	return c.owner
}

func (c *Control) Speak(text string, opts ...Option) {
	c.n.speak(c.owner, text, opts)
}

// Stop silences whatever is playing, as the shared stop does.
func (c *Control) Stop() {
	c.n.Stop()
}

// Toggle stops this control's narration if it is active, otherwise starts it.
func (c *Control) Toggle(text string, opts ...Option) {
	if c.n.session.StopOwner(c.owner) {
		return
	}
	c.Speak(text, opts...)
}

// Speaking reports the shared state, not this control's.
func (c *Control) Speaking() bool {
	return c.n.Speaking()
}

// Active reports whether this control started the current utterance.
func (c *Control) Active() bool {
	st := c.n.session.State()
	return st.Speaking() && st.Owner == c.owner
}

// View returns the current rendering state.
func (c *Control) View() View {
	return c.view(c.n.session.State(), c.n.catalog.List())
}

// Close detaches the control, stopping its narration if it is the one playing.
func (c *Control) Close() {
	c.closed.Do(func() {
		c.n.session.StopOwner(c.owner)
		c.n.unbind(c.owner)
	})
}

func (c *Control) view(st State, voices []tts.Voice) View {
	return View{
		Speaking:  st.Speaking(),
		Active:    st.Speaking() && st.Owner == c.owner,
		Supported: c.n.Supported(),
		Voices:    voices,
	}
}
