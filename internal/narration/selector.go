package narration

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"readaloud/internal/narration/tts"
)

const (
	childBonus  = 100
	localeBonus = 10
	localBonus  = 1
)

// childMarkers flag voices built for, or sounding like, a young speaker.
// They are matched against whole words of the voice ID and Name.
var childMarkers = map[string]bool{
	"child": true, "children": true,
	"kid": true, "kids": true,
	"junior": true, "juniors": true,
	"young": true, "youth": true,
}

// RankedVoice is a catalog entry with its selection score.
type RankedVoice struct {
	Voice tts.Voice
	Score int
}

// SelectChildFriendlyVoice picks the best voice for a young listener. It
// returns nil for an empty catalog, in which case the engine default applies.
func SelectChildFriendlyVoice(voices []tts.Voice, locale string) *tts.Voice {
	return pick(RankVoices(voices, locale, true))
}

// SelectVoice ranks like SelectChildFriendlyVoice without the child bias.
func SelectVoice(voices []tts.Voice, locale string) *tts.Voice {
	return pick(RankVoices(voices, locale, false))
}

// RankVoices orders voices best first. Equal scores fall back to ID then
// Name so the result never depends on the engine's ordering.
func RankVoices(voices []tts.Voice, locale string, child bool) []RankedVoice {
	target := baseOf(locale)

	ranked := make([]RankedVoice, 0, len(voices))
	for _, v := range voices {
		ranked = append(ranked, RankedVoice{Voice: v, Score: score(v, target, child)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Voice.ID != b.Voice.ID {
			return a.Voice.ID < b.Voice.ID
		}
		return a.Voice.Name < b.Voice.Name
	})
	return ranked
}

func pick(ranked []RankedVoice) *tts.Voice {
	if len(ranked) == 0 {
		return nil
	}
	v := ranked[0].Voice
	return &v
}

func score(v tts.Voice, target language.Base, child bool) int {
	s := 0
	if child && isChildVoice(v) {
		s += childBonus
	}
	if target != (language.Base{}) && baseOf(v.Language) == target {
		s += localeBonus
	}
	if v.Local {
		s += localBonus
	}
	return s
}

func isChildVoice(v tts.Voice) bool {
	if v.Age > 0 && v.Age < 18 {
		return true
	}
	for _, word := range words(v.ID + " " + v.Name) {
		if childMarkers[word] {
			return true
		}
	}
	return false
}

// words splits voice metadata into lower-case words at non-letters and at
// camel-case humps, so "en-US-KidVoice" yields en, us, kid, voice.
func words(s string) []string {
	var out []string
	var b strings.Builder
	var prev rune
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}
	flush()
	return out
}

// baseOf returns the language family of a tag such as "en-US", "en_GB" or
// "en-gb-x-rp". Unparseable tags yield the zero Base.
func baseOf(tag string) language.Base {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return language.Base{}
	}
	t, err := language.Parse(tag)
	if err != nil {
		// Private-use or malformed suffixes; retry on the primary subtag alone.
		primary, _, _ := strings.Cut(tag, "-")
		if t, err = language.Parse(primary); err != nil {
			return language.Base{}
		}
	}
	base, confidence := t.Base()
	if confidence == language.No {
		return language.Base{}
	}
	return base
}
