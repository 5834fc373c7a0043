package playback

import (
	"bytes"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voicewire/voicewire/domain/repositories"
)

// WAVDecoder decodes self-contained WAV chunks into PCM buffers.
type WAVDecoder struct{}

var _ repositories.ChunkDecoder = (*WAVDecoder)(nil)

// NewWAVDecoder creates a WAV chunk decoder.
func NewWAVDecoder() *WAVDecoder {
	return &WAVDecoder{}
}

// Decode parses one WAV payload into its full PCM buffer.
func (d *WAVDecoder) Decode(chunk []byte) (*audio.IntBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(chunk))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav payload")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}
	return buf, nil
}
