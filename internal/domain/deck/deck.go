package deck

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Slide is one page of a deck.
type Slide struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
	Image string `yaml:"image,omitempty" json:"image,omitempty"`
	// Narration overrides the text read aloud; Title and Body are used when empty.
	Narration string `yaml:"narration,omitempty" json:"narration,omitempty"`
}

// Deck represents a collection of slides
type Deck struct {
	Title       string  `yaml:"title" json:"title"`
	Author      string  `yaml:"author" json:"author"`
	AgeGroup    string  `yaml:"age_group" json:"age_group"`
	Description string  `yaml:"description" json:"description"`
	Slides      []Slide `yaml:"slides" json:"slides"`
}

// NarrationText is what a slide's narration button reads.
func (s Slide) NarrationText() string {
	if strings.TrimSpace(s.Narration) != "" {
		return s.Narration
	}

	title := strings.TrimSpace(s.Title)
	body := strings.TrimSpace(s.Body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	}

	// End the title as a sentence so it gets its own pause.
	if !strings.ContainsAny(title[len(title)-1:], ".!?") {
		title += "."
	}
	return title + " " + body
}

// Load reads a YAML deck file.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deck: %w", err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load deck %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML deck and fills in missing slide IDs.
func Parse(r io.Reader) (*Deck, error) {
	var d Deck
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(d.Slides) == 0 {
		return nil, fmt.Errorf("deck %q has no slides", d.Title)
	}

	for i := range d.Slides {
		if d.Slides[i].ID == "" {
			d.Slides[i].ID = fmt.Sprintf("slide-%d", i+1)
		}
	}
	return &d, nil
}
