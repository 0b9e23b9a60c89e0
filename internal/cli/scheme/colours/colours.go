package colours

import "github.com/fatih/color"

// Terminal palette
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Author  = color.New(color.FgMagenta)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)

	// Narration buttons
	Speaking = color.New(color.FgHiGreen, color.Bold)
	Idle     = color.New(color.FgHiBlack)
)

// Button renders a narration button label for the given active flag.
func Button(active bool) string {
	if active {
		return Speaking.Sprint("🔊 stop")
	}
	return Idle.Sprint("🔈 play")
}
