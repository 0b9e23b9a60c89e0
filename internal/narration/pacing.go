package narration

import (
	"strings"
	"unicode"

	"readaloud/internal/narration/tts"
)

// PacingOptions controls PreparePacing.
type PacingOptions struct {
	InsertPauses bool
	// Markers defaults to tts.DefaultMarkers when both markers are empty.
	Markers tts.Markers
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// PreparePacing inserts pause markers after sentence and clause punctuation.
// Words are never changed; with SSML markers the text around them is escaped.
// The input must be raw text, not the output of an earlier call.
func PreparePacing(text string, opts PacingOptions) string {
	if !opts.InsertPauses {
		return text
	}

	markers := opts.Markers
	if markers.Short == "" && markers.Long == "" {
		markers = tts.DefaultMarkers
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)

	write := func(s string) {
		if markers.SSML {
			s = ssmlEscaper.Replace(s)
		}
		b.WriteString(s)
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		if !isSentenceEnd(r) && !isClauseBreak(r) {
			j := i
			for j < len(runes) && !isSentenceEnd(runes[j]) && !isClauseBreak(runes[j]) {
				j++
			}
			write(string(runes[i:j]))
			i = j
			continue
		}

		// Consume a run of punctuation ("?!", "...") plus trailing closers.
		j := i
		long := false
		for j < len(runes) && (isSentenceEnd(runes[j]) || isClauseBreak(runes[j])) {
			if isSentenceEnd(runes[j]) {
				long = true
			}
			j++
		}
		for j < len(runes) && isCloser(runes[j]) {
			j++
		}
		write(string(runes[i:j]))

		if j == len(runes) || unicode.IsSpace(runes[j]) {
			if long {
				b.WriteString(markers.Long)
			} else {
				b.WriteString(markers.Short)
			}
		}
		i = j
	}

	return b.String()
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClauseBreak(r rune) bool {
	return r == ',' || r == ';' || r == ':'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}
