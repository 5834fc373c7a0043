package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
	"github.com/voicewire/voicewire/domain/repositories"
)

// readChunkSize is how much source audio goes into one streaming request.
const readChunkSize = 3200

// GoogleRecognizer implements continuous speech recognition with interim
// results on Google Cloud Speech. Interim results drive barge-in; final
// results are completed utterance segments.
type GoogleRecognizer struct {
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	client  *speech.Client
	started bool
}

var _ repositories.SpeechRecognizer = (*GoogleRecognizer)(nil)

// NewGoogleRecognizer creates a recognizer backed by Google Cloud Speech.
func NewGoogleRecognizer(logger *zap.Logger) *GoogleRecognizer {
	return &GoogleRecognizer{logger: logger}
}

// Start opens the streaming recognize session and begins pumping audio
// from the source. A microphone or credential failure here is fatal to
// the recognizer but not to the rest of the session.
func (g *GoogleRecognizer) Start(ctx context.Context, source io.Reader, config repositories.AudioConfig, handler repositories.TranscriptHandler) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return fmt.Errorf("recognizer already started")
	}

	ctx, cancel := context.WithCancel(ctx)

	client, err := speech.NewClient(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		cancel()
		return fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		cancel()
		return fmt.Errorf("unsupported audio encoding: %s", config.Encoding)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				// Interim results feed the barge-in signal; segmentation
				// of final results is the service's endpointing.
				InterimResults:  true,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		cancel()
		return fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.cancel = cancel
	g.client = client
	g.started = true

	go g.sendAudio(stream, source)
	go g.receiveResults(stream, handler)

	return nil
}

// Stop halts recognition and releases the audio source. Idempotent.
func (g *GoogleRecognizer) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.started = false

	g.cancel()
	if g.client != nil {
		g.client.Close()
		g.client = nil
	}
	return nil
}

func (g *GoogleRecognizer) sendAudio(stream speechpb.Speech_StreamingRecognizeClient, source io.Reader) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := source.Read(buf)
		if n > 0 {
			if sendErr := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}); sendErr != nil {
				g.logger.Error("Failed to send audio data", zap.Error(sendErr))
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				g.logger.Error("Audio source read failed", zap.Error(err))
			}
			stream.CloseSend()
			return
		}
	}
}

func (g *GoogleRecognizer) receiveResults(stream speechpb.Speech_StreamingRecognizeClient, handler repositories.TranscriptHandler) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			g.logger.Error("Failed to receive recognition response", zap.Error(err))
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			transcript := result.Alternatives[0].Transcript

			kind := entities.TranscriptInterim
			if result.IsFinal {
				kind = entities.TranscriptFinal
			}
			handler(entities.TranscriptEvent{Kind: kind, Text: transcript})
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
