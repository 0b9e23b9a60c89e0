package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	googleSampleRate   = beep.SampleRate(24000)
	googleChunkLimit   = 4800 // a little under 5000 to be safe
	defaultGoogleVoice = "en-US-Chirp3-HD-Charon"
)

var speakerInit struct {
	once sync.Once
	err  error
}

type GoogleClassicEngine struct {
	client    *texttospeech.Client
	config    Config
	log       *logrus.Entry
	listeners voiceListeners

	mu      sync.Mutex
	voices  []Voice
	current *googleRun
}

// googleRun is one in-flight utterance: synthesis followed by playback.
type googleRun struct {
	cancel context.CancelFunc
	once   sync.Once
	done   func(error)
}

func (r *googleRun) finish(err error) {
	r.once.Do(func() { r.done(err) })
}

func newGoogleClassicEngine(config Config) (*GoogleClassicEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if config.GoogleVoice == "" {
		config.GoogleVoice = defaultGoogleVoice
	}

	g := &GoogleClassicEngine{
		client: client,
		config: config,
		log:    logrus.WithField("engine", EngineTypeGoogleClassic.String()),
	}
	go g.loadVoices(ctx)

	return g, nil
}

func (g *GoogleClassicEngine) loadVoices(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		g.log.WithError(err).Warn("failed to list Google voices")
		return
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		voices = append(voices, Voice{
			ID:       v.Name,
			Name:     v.Name,
			Language: lang,
			Gender:   strings.ToLower(v.SsmlGender.String()),
		})
	}

	g.mu.Lock()
	g.voices = voices
	g.mu.Unlock()

	g.log.WithField("voices", len(voices)).Debug("Google voices loaded")
	g.listeners.fire()
}

func (g *GoogleClassicEngine) Voices() ([]Voice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Voice(nil), g.voices...), nil
}

func (g *GoogleClassicEngine) OnVoicesChanged(fn func()) {
	g.listeners.add(fn)
}

func (g *GoogleClassicEngine) Markers() Markers {
	return SSMLMarkers
}

func (g *GoogleClassicEngine) Speak(u Utterance, done func(error)) error {
	speakerInit.once.Do(func() {
		speakerInit.err = speaker.Init(googleSampleRate, googleSampleRate.N(time.Second/10))
	})
	if speakerInit.err != nil {
		return fmt.Errorf("failed to init speaker: %w", speakerInit.err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &googleRun{cancel: cancel, done: done}

	g.mu.Lock()
	prev := g.current
	g.current = run
	g.mu.Unlock()

	if prev != nil {
		g.stopRun(prev)
	}

	go g.play(ctx, run, u)

	return nil
}

func (g *GoogleClassicEngine) play(ctx context.Context, run *googleRun, u Utterance) {
	streamers := []beep.Streamer{}
	closers := []io.Closer{}
	release := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for i, chunk := range splitIntoChunks(u.Text, googleChunkLimit) {
		audio, err := g.synthesize(ctx, g.request(u, chunk))
		if err != nil {
			release()
			if ctx.Err() != nil {
				run.finish(nil)
				return
			}
			run.finish(fmt.Errorf("failed to synthesize chunk %d: %w", i, err))
			return
		}

		streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audio)))
		if err != nil {
			release()
			run.finish(fmt.Errorf("failed to decode MP3 chunk %d: %w", i, err))
			return
		}
		closers = append(closers, streamer)

		if format.SampleRate != googleSampleRate {
			streamers = append(streamers, beep.Resample(4, format.SampleRate, googleSampleRate, streamer))
		} else {
			streamers = append(streamers, streamer)
		}
	}

	streamers = append(streamers, beep.Callback(func() {
		// Runs under the speaker lock; hop off it before reporting.
		go func() {
			release()
			run.finish(nil)
		}()
	}))

	g.mu.Lock()
	live := g.current == run && ctx.Err() == nil
	if live {
		speaker.Play(beep.Seq(streamers...))
	}
	g.mu.Unlock()

	if !live {
		release()
		run.finish(nil)
	}
}

func (g *GoogleClassicEngine) synthesize(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}

func (g *GoogleClassicEngine) request(u Utterance, chunk string) *texttospeechpb.SynthesizeSpeechRequest {
	name := g.config.GoogleVoice
	lang := ""
	if u.Voice != nil {
		name = u.Voice.ID
		lang = u.Voice.Language
	}
	if lang == "" {
		lang = languageFromVoiceName(name)
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding:   texttospeechpb.AudioEncoding_MP3,
		SampleRateHertz: int32(googleSampleRate),
		VolumeGainDb:    volumeGainDb(u.Volume),
	}

	// Chirp voices reject speakingRate and pitch
	if !strings.Contains(strings.ToLower(name), "chirp") {
		audioCfg.SpeakingRate = clampFloat(nonZero(u.Rate, g.config.Speed), 0.25, 4.0)
		audioCfg.Pitch = clampFloat((nonZero(u.Pitch, g.config.Pitch)-1)*20, -20, 20)
	}

	input := &texttospeechpb.SynthesisInput{
		InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
	}
	if u.SSML {
		input.InputSource = &texttospeechpb.SynthesisInput_Ssml{Ssml: "<speak>" + chunk + "</speak>"}
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: input,
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         name,
		},
		AudioConfig: audioCfg,
	}
}

func (g *GoogleClassicEngine) stopRun(run *googleRun) {
	run.cancel()
	speaker.Clear()
	run.finish(nil)
}

func (g *GoogleClassicEngine) Cancel() error {
	g.mu.Lock()
	run := g.current
	g.current = nil
	g.mu.Unlock()

	if run != nil {
		g.stopRun(run)
	}
	return nil
}

func (g *GoogleClassicEngine) Close() error {
	g.Cancel()
	return g.client.Close()
}

// languageFromVoiceName extracts "en-US" from "en-US-Chirp3-HD-Charon".
func languageFromVoiceName(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// volumeGainDb maps a 0..1 volume onto Google's -96..16 dB gain.
func volumeGainDb(volume float64) float64 {
	if volume <= 0 {
		return -96
	}
	return clampFloat(20*math.Log10(volume), -96, 16)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// splitIntoChunks cuts text into pieces of at most limit runes, preferring
// whitespace outside SSML tags as the cut point. A tag or entity is never
// split; one that alone exceeds limit becomes its own oversized chunk.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8

	for len(runes) > limit {
		cut := 0
		tag, entity := -1, -1
		for i := 0; i < limit; i++ {
			r := runes[i]
			switch {
			case tag >= 0:
				if r == '>' {
					tag = -1
				}
			case r == '<':
				tag, entity = i, -1
			case r == '&':
				entity = i
			case entity >= 0 && r == ';':
				entity = -1
			case unicode.IsSpace(r):
				entity = -1
				cut = i + 1
			}
		}

		if cut == 0 {
			switch {
			case tag >= 0:
				cut = tag
			case entity >= 0:
				cut = entity
			default:
				cut = limit
			}
		}
		if cut == 0 {
			cut = markupEnd(runes, limit)
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// markupEnd returns the index just past the tag or entity that opens runes,
// or limit when it is never closed.
func markupEnd(runes []rune, limit int) int {
	closer := '>'
	if runes[0] == '&' {
		closer = ';'
	}
	for i, r := range runes {
		if r == closer {
			return i + 1
		}
	}
	return limit
}
