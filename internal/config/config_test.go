package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.TTS.Type)
	assert.Equal(t, "en", cfg.Narration.Locale)
	assert.True(t, cfg.Narration.ChildFriendly)
	assert.True(t, cfg.Narration.AddPauses)

	s := cfg.Settings()
	assert.InDelta(t, 0.9, s.ChildRate, 1e-9)
	assert.InDelta(t, 1.05, s.ChildPitch, 1e-9)
	assert.InDelta(t, 1.0, s.Volume, 1e-9)
	assert.Equal(t, "default", s.Voice)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readaloud.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tts:
  type: mock
  volume: 0.5
narration:
  locale: fr
  add_pauses: false
`), 0644))
	t.Setenv("READALOUD_NARRATION_CHILD_RATE", "0.8")

	cfg, err := Load(New(path))
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Engine().Type)
	assert.InDelta(t, 0.5, cfg.Engine().Volume, 1e-9)
	assert.Equal(t, "fr", cfg.Settings().Locale)
	assert.False(t, cfg.Settings().AddPauses)
	assert.InDelta(t, 0.8, cfg.Settings().ChildRate, 1e-9)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readaloud.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tts: [unclosed"), 0644))

	_, err := Load(New(path))
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	SetupLogging(LoggingConfig{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	SetupLogging(LoggingConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
