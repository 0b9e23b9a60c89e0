package narration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"readaloud/internal/narration/tts"
)

var testMarkers = tts.Markers{Short: "<s>", Long: "<L>"}

func TestPreparePacing_Disabled(t *testing.T) {
	text := "Hello, world. Ready?"
	assert.Equal(t, text, PreparePacing(text, PacingOptions{InsertPauses: false, Markers: testMarkers}))
}

func TestPreparePacing_Example(t *testing.T) {
	got := PreparePacing("Hello, world. Ready?", PacingOptions{InsertPauses: true, Markers: testMarkers})
	assert.Equal(t, "Hello,<s> world.<L> Ready?<L>", got)

	// Removing the markers gives the original words back, in order.
	stripped := strings.NewReplacer("<s>", "", "<L>", "").Replace(got)
	assert.Equal(t, "Hello, world. Ready?", stripped)
}

func TestPreparePacing_DefaultMarkers(t *testing.T) {
	got := PreparePacing("Hello, world. Ready?", PacingOptions{InsertPauses: true})
	assert.Equal(t, "Hello, .. world. ... Ready? ...", got)
}

func TestPreparePacing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clause punctuation", "one; two: three", "one;<s> two:<s> three"},
		{"punctuation run", "Really?! Yes...", "Really?!<L> Yes...<L>"},
		{"decimal stays intact", "Pi is 3.14 today.", "Pi is 3.14 today.<L>"},
		{"closing quote", `She said "hi." Then left.`, `She said "hi."<L> Then left.<L>`},
		{"closing bracket", "(like this.) Next", "(like this.)<L> Next"},
		{"newline boundary", "Line one.\nLine two", "Line one.<L>\nLine two"},
		{"no punctuation", "just words here", "just words here"},
		{"empty", "", ""},
		{"unicode", "Très bien, merci.", "Très bien,<s> merci.<L>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreparePacing(tt.in, PacingOptions{InsertPauses: true, Markers: testMarkers})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreparePacing_SSMLEscapesText(t *testing.T) {
	got := PreparePacing(`Tom & Jerry. <ok>`, PacingOptions{InsertPauses: true, Markers: tts.SSMLMarkers})
	assert.Equal(t, `Tom &amp; Jerry.<break time="600ms"/> &lt;ok&gt;`, got)
}
