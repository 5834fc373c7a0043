package repositories

import (
	"context"
	"io"

	"github.com/voicewire/voicewire/domain/entities"
)

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// TranscriptHandler receives interim and final recognition results.
type TranscriptHandler func(ev entities.TranscriptEvent)

// SpeechRecognizer abstracts continuous speech recognition over a live
// audio source. Start begins recognition and returns once the stream is
// established; results are pushed to the handler until Stop is called or
// the source is exhausted.
type SpeechRecognizer interface {
	Start(ctx context.Context, source io.Reader, config AudioConfig, handler TranscriptHandler) error
	Stop() error
}
