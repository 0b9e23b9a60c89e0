package tts

import "errors"

// ErrUnsupported is returned when an engine cannot run on this host.
var ErrUnsupported = errors.New("tts: engine not supported on this host")

type Config struct {
	Type   string
	Speed  float64
	Pitch  float64
	Volume float64
	Voice  string

	// GoogleVoice is the fallback voice name for the googleclassic engine.
	GoogleVoice string
}

// Voice describes one voice the engine exposes.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
	// Age is reported by some engines (espeak); 0 means unknown.
	Age   int  `json:"age,omitempty"`
	Local bool `json:"local"`
}

// Utterance is one request to speak a span of text.
type Utterance struct {
	// ID is the session generation the utterance was issued under.
	ID     uint64
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	// Voice is nil when the engine default should be used.
	Voice *Voice
	// SSML marks Text as SSML body content (break markers, escaped text).
	SSML bool
}

// Engine is the host narration engine.
//
// Speak must not block on playback. done is called exactly once when the
// utterance ends, fails, or is cancelled; it may be called from any goroutine
// but never before Speak has returned.
type Engine interface {
	Voices() ([]Voice, error)
	OnVoicesChanged(fn func())
	Speak(u Utterance, done func(error)) error
	Cancel() error
	Close() error
}

// Markers are the pacing primitives an engine understands.
type Markers struct {
	Short string
	Long  string
	// SSML means the markers are SSML elements and surrounding text must be escaped.
	SSML bool
}

// DefaultMarkers pad punctuation, which every engine honours as a pause.
var DefaultMarkers = Markers{Short: " ..", Long: " ..."}

// SSMLMarkers are break elements for engines with SSML input.
var SSMLMarkers = Markers{
	Short: `<break time="250ms"/>`,
	Long:  `<break time="600ms"/>`,
	SSML:  true,
}

// MarkerProvider is implemented by engines with their own pacing primitives.
type MarkerProvider interface {
	Markers() Markers
}

// MarkersFor returns the markers engine accepts.
func MarkersFor(engine Engine) Markers {
	if mp, ok := engine.(MarkerProvider); ok {
		return mp.Markers()
	}
	return DefaultMarkers
}
