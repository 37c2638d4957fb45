package tts

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultVoice matches the voice the original player requested.
	DefaultVoice = "en-US-AriaNeural"
	// KoreanVoice serves requests tagged lang="kr".
	KoreanVoice = "ko-KR-SunHiNeural"

	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// ErrTextRequired indicates an empty synthesis request.
var ErrTextRequired = errors.New("tts: text is required")

// ErrUnavailable indicates every configured provider failed.
var ErrUnavailable = errors.New("tts: synthesis unavailable")

// Service fronts one or two synthesis providers. The primary is retried with
// exponential backoff; the fallback is tried once before giving up. Only the
// read-only synthesis call is retried, never anything with side effects.
type Service struct {
	primary  Synthesizer
	fallback Synthesizer
	logger   *slog.Logger
}

// NewService wires the synthesis proxy. fallback may be nil.
func NewService(primary, fallback Synthesizer, logger *slog.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, logger: logger}
}

// Synthesize returns audio bytes for the text in the given voice.
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextRequired
	}
	if voice == "" {
		voice = DefaultVoice
	}

	audio, err := s.synthesizeWithRetry(ctx, s.primary, text, voice)
	if err == nil {
		return audio, nil
	}

	if s.logger != nil {
		s.logger.Warn("primary synthesis failed", "voice", voice, "error", err)
	}

	if s.fallback != nil {
		audio, fbErr := s.fallback.Synthesize(ctx, text, voice)
		if fbErr == nil {
			return audio, nil
		}
		if s.logger != nil {
			s.logger.Error("fallback synthesis failed", "voice", voice, "error", fbErr)
		}
	}

	return nil, ErrUnavailable
}

func (s *Service) synthesizeWithRetry(ctx context.Context, provider Synthesizer, text, voice string) ([]byte, error) {
	if provider == nil {
		return nil, errors.New("tts: no provider configured")
	}

	var audio []byte
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(initialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := provider.Synthesize(ctx, text, voice)
		if err != nil {
			return retry.RetryableError(err)
		}
		audio = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// ResolveVoice maps an explicit voice or a language tag to an upstream voice
// name. The original client sent lang "kr" for Korean and used the English
// neural voice otherwise.
func ResolveVoice(voice, lang string) string {
	if voice != "" {
		return voice
	}
	if lang == "kr" {
		return KoreanVoice
	}
	return DefaultVoice
}
