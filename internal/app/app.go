package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"readaloud/internal/cli/scheme/colours"
	"readaloud/internal/config"
	"readaloud/internal/domain/deck"
	"readaloud/internal/narration"
	"readaloud/internal/narration/tts"
)

// App main application structure
type App struct {
	Narrator *narration.Narrator
	Config   *config.Config

	in     io.Reader
	ctx    context.Context
	Cancel context.CancelFunc
}

// New loads configuration and builds the shared narrator. A missing or
// broken engine leaves narration unsupported rather than failing.
func New(v *viper.Viper) (*App, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg.Logging)

	engine, err := tts.NewEngine(cfg.Engine())
	if err != nil {
		logrus.WithError(err).WithField("type", cfg.TTS.Type).Warn("narration unavailable")
		engine = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Narrator: narration.New(engine, cfg.Settings(), logrus.WithField("app", "readaloud")),
		Config:   cfg,
		in:       os.Stdin,
		ctx:      ctx,
		Cancel:   cancel,
	}

	config.Watch(v, func(c *config.Config) {
		config.SetupLogging(c.Logging)
		a.Narrator.Configure(c.Settings())
	})

	return a, nil
}

// Close stops narration and releases the engine.
func (a *App) Close() {
	a.Cancel()
	if err := a.Narrator.Close(); err != nil {
		logrus.WithError(err).Debug("engine close failed")
	}
}

func (a *App) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to ReadAloud! 🌟")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • readaloud deck [file]  - Present a slide deck with narration buttons")
	fmt.Println("  • readaloud say [text]   - Read some text aloud")
	fmt.Println("  • readaloud voices       - Show voices, best for kids first")
	fmt.Println("  • readaloud engines      - Show speech engines on this computer")
	fmt.Println()
	if !a.Narrator.Supported() {
		colours.Warning.Println("⚠️ No speech engine available; narration is turned off.")
		return
	}
	colours.Prompt.Println("✨ Ready to listen and learn? ✨")
}

// AddSpeakFlags registers the per-call narration flags read by SpeakOptions.
func AddSpeakFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("voice", "v", "", "Voice ID or name to read with. See 'readaloud voices'")
	cmd.Flags().Float64P("rate", "r", 1.0, "Speaking rate (0.1-10)")
	cmd.Flags().Float64P("pitch", "p", 1.0, "Voice pitch (0-2)")
	cmd.Flags().Float64("volume", 1.0, "Volume (0-1)")
	cmd.Flags().Bool("child", true, "Use the slower, brighter child-friendly preset")
	cmd.Flags().Bool("pauses", true, "Add short pauses after punctuation")
	cmd.Flags().Duration("wait", 2*time.Second, "How long to wait for the engine to list its voices")
}

// SpeakOptions turns the narration flags that were set into options.
func SpeakOptions(cmd *cobra.Command, voices []tts.Voice) ([]narration.Option, error) {
	var opts []narration.Option
	flags := cmd.Flags()

	if flags.Changed("rate") {
		rate, _ := flags.GetFloat64("rate")
		opts = append(opts, narration.WithRate(rate))
	}
	if flags.Changed("pitch") {
		pitch, _ := flags.GetFloat64("pitch")
		opts = append(opts, narration.WithPitch(pitch))
	}
	if flags.Changed("volume") {
		volume, _ := flags.GetFloat64("volume")
		opts = append(opts, narration.WithVolume(volume))
	}
	if flags.Changed("child") {
		child, _ := flags.GetBool("child")
		opts = append(opts, narration.ChildFriendly(child))
	}
	if flags.Changed("pauses") {
		pauses, _ := flags.GetBool("pauses")
		opts = append(opts, narration.WithPauses(pauses))
	}
	if flags.Changed("voice") {
		name, _ := flags.GetString("voice")
		v, ok := findVoice(voices, name)
		if !ok {
			return nil, fmt.Errorf("voice '%s' not available", name)
		}
		opts = append(opts, narration.WithVoice(v))
	}

	return opts, nil
}

func findVoice(voices []tts.Voice, name string) (tts.Voice, bool) {
	for _, v := range voices {
		if v.ID == name || strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return tts.Voice{}, false
}

// Say reads the command arguments aloud and waits until narration ends.
func (a *App) Say(cmd *cobra.Command, args []string) {
	if !a.Narrator.Supported() {
		colours.Error.Println("❌ No speech engine available.")
		return
	}

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		colours.Warning.Println("🔍 Nothing to say! Try: readaloud say \"Hello there.\"")
		return
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	opts, err := SpeakOptions(cmd, a.waitForVoices(wait))
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	finished := make(chan struct{})
	var once sync.Once
	unsubscribe := a.Narrator.Subscribe(func(st narration.State) {
		if !st.Speaking() {
			once.Do(func() { close(finished) })
		}
	})
	defer unsubscribe()

	colours.Success.Println("🎵 Reading aloud... 🎵")
	fmt.Println("💡 Press Ctrl+C to stop anytime")
	a.Narrator.Speak(text, opts...)

	select {
	case <-finished:
		colours.Success.Println("✅ All done! 🌟")
	case <-a.ctx.Done():
	}
}

// PlayDeck presents a deck where every slide is a narration button.
func (a *App) PlayDeck(cmd *cobra.Command, args []string) {
	d := deck.Sample()
	if len(args) > 0 {
		loaded, err := deck.Load(args[0])
		if err != nil {
			colours.Error.Printf("❌ Error: %v\n", err)
			return
		}
		d = loaded
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	opts, err := SpeakOptions(cmd, a.waitForVoices(wait))
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	p := newPlayer(a.Narrator, d)
	defer p.close()

	p.show()
	if !a.Narrator.Supported() {
		colours.Warning.Println("⚠️ No speech engine available; narration buttons are hidden.")
		return
	}

	p.run(a.ctx, a.in, opts)
}

// ListVoices prints the voice catalog ranked for a young listener.
func (a *App) ListVoices(cmd *cobra.Command, args []string) {
	if !a.Narrator.Supported() {
		colours.Error.Println("❌ No speech engine available.")
		return
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	voices := a.waitForVoices(wait)

	fmt.Println()
	colours.Title.Println("🎤 Available Voices 🎤")
	fmt.Println()

	if len(voices) == 0 {
		colours.Warning.Println("🔍 The engine has not listed any voices yet; its default voice will be used.")
		return
	}

	locale := a.Narrator.Settings().Locale
	for i, r := range narration.RankVoices(voices, locale, true) {
		marker := "  "
		if i == 0 {
			marker = "⭐"
		}
		where := "network"
		if r.Voice.Local {
			where = "local"
		}
		fmt.Printf("%s %3d. ", marker, i+1)
		colours.Title.Printf("%s", r.Voice.Name)
		fmt.Printf(" (%s)", r.Voice.Language)
		colours.Info.Printf("  id=%s %s score=%d\n", r.Voice.ID, where, r.Score)
	}

	fmt.Println()
	colours.Success.Printf("✨ Found %d voices! ⭐ marks the pick for kids.\n", len(voices))
}

// ListEngines prints the engines usable on this platform.
func (a *App) ListEngines(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("⚙️ Speech Engines ⚙️")
	fmt.Println()
	for _, e := range tts.GetAvailableEngines() {
		fmt.Printf("  • %s\n", e)
	}
	fmt.Println()
	colours.Info.Printf("💡 Current setting: %s (change with --engine or tts.type)\n", a.Config.TTS.Type)
}

// waitForVoices gives an engine that lists voices asynchronously up to
// timeout to deliver them.
func (a *App) waitForVoices(timeout time.Duration) []tts.Voice {
	if voices := a.Narrator.Voices(); len(voices) > 0 || timeout <= 0 {
		return voices
	}

	ready := make(chan struct{})
	var once sync.Once
	c := a.Narrator.Bind(func(v narration.View) {
		if len(v.Voices) > 0 {
			once.Do(func() { close(ready) })
		}
	})
	defer c.Close()

	// The catalog may have filled in before the control was bound.
	if voices := a.Narrator.Voices(); len(voices) > 0 {
		return voices
	}

	select {
	case <-ready:
	case <-time.After(timeout):
		logrus.WithField("timeout", timeout).Debug("voice catalog still empty")
	case <-a.ctx.Done():
	}
	return a.Narrator.Voices()
}

// player renders one narration button per slide.
type player struct {
	deck     *deck.Deck
	controls []*narration.Control

	mu     sync.Mutex
	active []bool
}

func newPlayer(n *narration.Narrator, d *deck.Deck) *player {
	p := &player{deck: d, active: make([]bool, len(d.Slides))}
	for i := range d.Slides {
		p.controls = append(p.controls, n.Bind(func(v narration.View) { p.update(i, v) }))
	}
	return p
}

func (p *player) update(i int, v narration.View) {
	p.mu.Lock()
	changed := p.active[i] != v.Active
	p.active[i] = v.Active
	p.mu.Unlock()

	if !changed {
		return
	}
	fmt.Printf("\n  [%s] %d. %s\n", colours.Button(v.Active), i+1, p.deck.Slides[i].Title)
}

func (p *player) show() {
	fmt.Println()
	colours.Title.Printf("📖 %s\n", p.deck.Title)
	if p.deck.Author != "" {
		colours.Author.Printf("✍️  by %s\n", p.deck.Author)
	}
	if p.deck.AgeGroup != "" {
		fmt.Printf("🎯 Age Group: %s\n", p.deck.AgeGroup)
	}
	if p.deck.Description != "" {
		fmt.Printf("💡 %s\n", p.deck.Description)
	}
	fmt.Println()

	for i, s := range p.deck.Slides {
		if v := p.controls[i].View(); v.Supported {
			fmt.Printf("  [%s] %d. ", colours.Button(v.Active), i+1)
		} else {
			fmt.Printf("  %d. ", i+1)
		}
		colours.Title.Println(s.Title)
		fmt.Printf("     %s\n", s.Body)
		if s.Image != "" {
			colours.Info.Printf("     🖼️  %s\n", s.Image)
		}
	}
}

func (p *player) run(ctx context.Context, in io.Reader, opts []narration.Option) {
	reader := bufio.NewReader(in)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Print("\n▶️  Slide number to play/stop, 'l' to list, 's' to stop, 'q' to quit: ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		switch input {
		case "q", "quit":
			colours.Warning.Println("👋 See you next time!")
			return
		case "s", "stop":
			if len(p.controls) > 0 {
				p.controls[0].Stop()
			}
		case "l", "list":
			p.show()
		case "":
		default:
			n, convErr := strconv.Atoi(input)
			if convErr != nil || n < 1 || n > len(p.controls) {
				colours.Info.Printf("ℹ️  Pick a slide between 1 and %d\n", len(p.controls))
				break
			}
			p.controls[n-1].Toggle(p.deck.Slides[n-1].NarrationText(), opts...)
		}

		if err != nil {
			return
		}
	}
}

func (p *player) close() {
	for _, c := range p.controls {
		c.Close()
	}
}
