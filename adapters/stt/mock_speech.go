package stt

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
	"github.com/voicewire/voicewire/domain/repositories"
)

// ScriptedRecognizer replays a fixed sequence of transcript events. It
// stands in for the Google recognizer in tests and local development.
type ScriptedRecognizer struct {
	logger *zap.Logger
	script []entities.TranscriptEvent

	mu      sync.Mutex
	started bool
	stopped chan struct{}
}

var _ repositories.SpeechRecognizer = (*ScriptedRecognizer)(nil)

// NewScriptedRecognizer creates a recognizer that emits the given events
// in order once started.
func NewScriptedRecognizer(script []entities.TranscriptEvent, logger *zap.Logger) *ScriptedRecognizer {
	return &ScriptedRecognizer{
		logger:  logger,
		script:  script,
		stopped: make(chan struct{}),
	}
}

// Start replays the scripted events on a background goroutine. The audio
// source and config are accepted for interface parity and ignored.
func (s *ScriptedRecognizer) Start(ctx context.Context, source io.Reader, config repositories.AudioConfig, handler repositories.TranscriptHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true

	go func() {
		for _, ev := range s.script {
			select {
			case <-ctx.Done():
				return
			case <-s.stopped:
				return
			default:
			}
			handler(ev)
		}
	}()

	return nil
}

// Stop halts replay. Idempotent.
func (s *ScriptedRecognizer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		select {
		case <-s.stopped:
		default:
			close(s.stopped)
		}
	}
	return nil
}
