//go:build !darwin

package tts

func newSayEngine(config Config) (Engine, error) {
	return nil, ErrUnsupported
}
