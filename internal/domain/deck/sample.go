package deck

// Sample is the built-in deck used when no file is given.
func Sample() *Deck {
	return &Deck{
		Title:       "The Water Cycle",
		Author:      "Traditional",
		AgeGroup:    "5-8 years",
		Description: "Where rain comes from, one drop at a time",
		Slides: []Slide{
			{
				ID:    "sun",
				Title: "The Sun Warms the Sea",
				Body:  "Every day, the sun shines on oceans, lakes, and rivers. The water gets warm, and tiny bits float up into the sky!",
				Image: "sun.png",
			},
			{
				ID:    "clouds",
				Title: "Clouds Are Born",
				Body:  "High in the sky, the air is cold. The tiny bits of water huddle together; that's how a cloud is made.",
				Image: "clouds.png",
			},
			{
				ID:    "rain",
				Title: "Pitter, Patter, Rain!",
				Body:  "When a cloud gets too heavy, the drops fall down as rain. Can you hear it on the window?",
				Image: "rain.png",
			},
			{
				ID:    "again",
				Title: "Round and Round",
				Body:  "The rain runs back into rivers and the sea. Then the sun warms it again, and the cycle starts over.",
				Image: "cycle.png",
			},
		},
	}
}
