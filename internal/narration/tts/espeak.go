// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	config    Config
	path      string
	log       *logrus.Entry
	listeners voiceListeners

	mutex  sync.Mutex
	voices []Voice
	cancel context.CancelFunc
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	// Check if eSpeak is available
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	engine := &ESpeakEngine{
		config: config,
		path:   espeakPath,
		log:    logrus.WithField("engine", EngineTypeESpeak.String()),
	}

	// Test the installation
	if err := engine.testInstallation(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	// The voice list takes a moment to build; callers see an empty catalog until it lands.
	go engine.loadVoices()

	return engine, nil
}

func findESpeakExecutable() (string, error) {
	// Try different possible eSpeak executables
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) testInstallation() error {
	cmd := exec.Command(e.path, "--version")
	return cmd.Run()
}

func (e *ESpeakEngine) loadVoices() {
	output, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		e.log.WithError(err).Warn("failed to list eSpeak voices")
		return
	}

	voices := parseESpeakVoices(string(output))

	e.mutex.Lock()
	e.voices = voices
	e.mutex.Unlock()

	e.log.WithField("voices", len(voices)).Debug("eSpeak voices loaded")
	e.listeners.fire()
}

func (e *ESpeakEngine) Voices() ([]Voice, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]Voice(nil), e.voices...), nil
}

func (e *ESpeakEngine) OnVoicesChanged(fn func()) {
	e.listeners.add(fn)
}

func (e *ESpeakEngine) Markers() Markers {
	return SSMLMarkers
}

func (e *ESpeakEngine) Speak(u Utterance, done func(error)) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.path, e.args(u)...)
	cmd.Cancel = func() error { return stopProcess(cmd) }

	text := u.Text
	if u.SSML {
		text = "<speak>" + text + "</speak>"
	}
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start eSpeak: %w", err)
	}
	e.cancel = cancel

	go func() {
		err := cmd.Wait()
		if ctx.Err() != nil {
			// Intentionally stopped
			err = nil
		}
		cancel()
		done(err)
	}()

	return nil
}

// args builds the eSpeak command line for u; text is fed through stdin.
func (e *ESpeakEngine) args(u Utterance) []string {
	args := []string{}

	// Set voice
	voice := e.config.Voice
	if u.Voice != nil {
		voice = u.Voice.ID
	}
	if voice != "" && voice != "default" {
		args = append(args, "-v", voice)
	}

	// Set speed (words per minute, default is 175)
	args = append(args, "-s", strconv.Itoa(int(175*nonZero(u.Rate, e.config.Speed))))

	// Set pitch (0-99, default is 50)
	args = append(args, "-p", strconv.Itoa(clampInt(int(50*nonZero(u.Pitch, e.config.Pitch)), 0, 99)))

	// Set volume (0-200, default is 100)
	args = append(args, "-a", strconv.Itoa(clampInt(int(100*u.Volume), 0, 200)))

	if u.SSML {
		args = append(args, "-m")
	}

	return append(args, "--stdin")
}

func (e *ESpeakEngine) Cancel() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	return nil
}

func (e *ESpeakEngine) Close() error {
	return e.Cancel()
}

func parseESpeakVoices(output string) []Voice {
	lines := strings.Split(output, "\n")
	voices := make([]Voice, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Parse voice line: Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		v := Voice{
			ID:       fields[3],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
			Local:    true,
		}

		ageGender := fields[2]
		if age, gender, ok := strings.Cut(ageGender, "/"); ok {
			v.Age, _ = strconv.Atoi(age)
			ageGender = gender
		}
		switch ageGender {
		case "M":
			v.Gender = "male"
		case "F":
			v.Gender = "female"
		}

		voices = append(voices, v)
	}

	return voices
}

func nonZero(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	if fallback > 0 {
		return fallback
	}
	return 1.0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
