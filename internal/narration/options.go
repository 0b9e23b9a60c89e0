package narration

import (
	"math"

	"readaloud/internal/narration/tts"
)

// Settings are the defaults applied to every speak call.
type Settings struct {
	// Locale is the target language family for voice selection, e.g. "en".
	Locale string
	// Voice, when set, names a catalog voice (ID or Name) to prefer over the selector.
	Voice         string
	ChildFriendly bool
	AddPauses     bool

	Rate       float64
	Pitch      float64
	Volume     float64
	ChildRate  float64
	ChildPitch float64
}

func DefaultSettings() Settings {
	return Settings{
		Locale:        "en",
		ChildFriendly: true,
		AddPauses:     true,
		Rate:          1.0,
		Pitch:         1.0,
		Volume:        1.0,
		ChildRate:     0.9,
		ChildPitch:    1.05,
	}
}

// Option adjusts a single speak call.
type Option func(*speakOptions)

type speakOptions struct {
	rate   *float64
	pitch  *float64
	volume *float64
	voice  *tts.Voice
	child  *bool
	pauses *bool
}

func WithRate(rate float64) Option {
	return func(o *speakOptions) { o.rate = &rate }
}

func WithPitch(pitch float64) Option {
	return func(o *speakOptions) { o.pitch = &pitch }
}

func WithVolume(volume float64) Option {
	return func(o *speakOptions) { o.volume = &volume }
}

// WithVoice pins the voice; the selector is skipped.
func WithVoice(v tts.Voice) Option {
	return func(o *speakOptions) { o.voice = &v }
}

// ChildFriendly switches the child rate/pitch preset and voice bias on or off.
func ChildFriendly(on bool) Option {
	return func(o *speakOptions) { o.child = &on }
}

// WithPauses toggles pause insertion after punctuation.
func WithPauses(on bool) Option {
	return func(o *speakOptions) { o.pauses = &on }
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
