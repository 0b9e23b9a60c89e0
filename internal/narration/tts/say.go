package tts

import "strings"

// parseSayVoices parses `say -v ?` output:
//
//	Samantha            en_US    # Hello, my name is Samantha.
func parseSayVoices(output string) []Voice {
	voices := make([]Voice, 0)

	for _, line := range strings.Split(output, "\n") {
		head, _, _ := strings.Cut(line, "#")
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}

		// Names may contain spaces ("Bad News"); the locale is always the last field.
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")

		voices = append(voices, Voice{
			ID:       name,
			Name:     name,
			Language: lang,
			Local:    true,
		})
	}

	return voices
}
