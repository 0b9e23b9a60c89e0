//go:build darwin

package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// SayEngine implements macOS TTS through the built-in 'say' command
type SayEngine struct {
	config    Config
	log       *logrus.Entry
	listeners voiceListeners

	mutex  sync.Mutex
	voices []Voice
	cancel context.CancelFunc
}

// newSayEngine creates a new macOS 'say' TTS engine
func newSayEngine(config Config) (Engine, error) {
	if _, err := exec.LookPath("say"); err != nil {
		return nil, fmt.Errorf("say not found: %w", err)
	}

	engine := &SayEngine{
		config: config,
		log:    logrus.WithField("engine", EngineTypeSay.String()),
	}
	go engine.loadVoices()

	return engine, nil
}

func (s *SayEngine) loadVoices() {
	output, err := exec.Command("say", "-v", "?").Output()
	if err != nil {
		s.log.WithError(err).Warn("failed to list say voices")
		return
	}

	voices := parseSayVoices(string(output))

	s.mutex.Lock()
	s.voices = voices
	s.mutex.Unlock()

	s.listeners.fire()
}

func (s *SayEngine) Voices() ([]Voice, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Voice(nil), s.voices...), nil
}

func (s *SayEngine) OnVoicesChanged(fn func()) {
	s.listeners.add(fn)
}

func (s *SayEngine) Speak(u Utterance, done func(error)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	args := []string{}

	// Set voice if specified
	voice := s.config.Voice
	if u.Voice != nil {
		voice = u.Voice.ID
	}
	if voice != "" && voice != "default" {
		args = append(args, "-v", voice)
	}

	// Set rate (words per minute, default is ~175)
	args = append(args, "-r", fmt.Sprintf("%.0f", 175*nonZero(u.Rate, s.config.Speed)))

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "say", args...)
	cmd.Stdin = strings.NewReader(u.Text)

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start say: %w", err)
	}
	s.cancel = cancel

	go func() {
		err := cmd.Wait()
		if ctx.Err() != nil {
			err = nil
		}
		cancel()
		done(err)
	}()

	return nil
}

func (s *SayEngine) Cancel() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *SayEngine) Close() error {
	return s.Cancel()
}
