package narration

import (
	"sync"

	"github.com/sirupsen/logrus"

	"readaloud/internal/narration/tts"
)

// Catalog caches the engine's voice list. The list may start empty and fill
// in later; each refresh is reported to OnChange listeners.
type Catalog struct {
	engine tts.Engine
	log    *logrus.Entry

	mu        sync.Mutex
	voices    []tts.Voice
	loaded    bool
	listeners []func([]tts.Voice)

	// fetches counts started engine queries; stored is the newest one kept.
	fetches uint64
	stored  uint64
}

// NewCatalog registers with the engine's change notification. engine may be nil.
func NewCatalog(engine tts.Engine, log *logrus.Entry) *Catalog {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Catalog{
		engine: engine,
		log:    log.WithField("component", "catalog"),
	}
	if engine != nil {
		engine.OnVoicesChanged(c.Refresh)
	}
	return c
}

// Supported reports whether narration is available at all.
func (c *Catalog) Supported() bool {
	return c.engine != nil
}

// List returns the cached voices, querying the engine on first use.
func (c *Catalog) List() []tts.Voice {
	if c.engine == nil {
		return nil
	}

	c.mu.Lock()
	loaded := c.loaded
	voices := c.voices
	c.mu.Unlock()

	if !loaded {
		voices, _ = c.fetch()
	}
	return append([]tts.Voice(nil), voices...)
}

// Refresh re-reads the engine's voices and notifies listeners.
func (c *Catalog) Refresh() {
	if c.engine == nil {
		return
	}

	voices, ok := c.fetch()
	if !ok {
		return
	}

	c.mu.Lock()
	listeners := append([]func([]tts.Voice){}, c.listeners...)
	c.mu.Unlock()

	c.log.WithField("voices", len(voices)).Debug("voice catalog updated")
	for _, fn := range listeners {
		fn(append([]tts.Voice(nil), voices...))
	}
}

// OnChange registers fn to run after every refresh.
func (c *Catalog) OnChange(fn func([]tts.Voice)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// fetch queries the engine. A result that finishes after a newer query has
// been stored is discarded and the newer list is returned instead.
func (c *Catalog) fetch() ([]tts.Voice, bool) {
	c.mu.Lock()
	c.fetches++
	seq := c.fetches
	c.mu.Unlock()

	voices, err := c.engine.Voices()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Warn("failed to list voices")
		return c.voices, false
	}
	if seq < c.stored {
		c.log.WithField("fetch", seq).Debug("dropping outdated voice list")
		return c.voices, true
	}
	c.voices = voices
	c.loaded = true
	c.stored = seq
	return voices, true
}
