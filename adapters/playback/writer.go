package playback

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"

	"github.com/voicewire/voicewire/domain/repositories"
)

// WriterSink plays PCM by writing 16-bit little-endian samples to an
// output device exposed as an io.Writer (a sound-server pipe or file).
type WriterSink struct {
	w io.Writer
}

var _ repositories.PCMSink = (*WriterSink)(nil)

// NewWriterSink wraps an audio output writer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Play serializes the buffer's samples as PCM16 and writes them out.
func (s *WriterSink) Play(buf *audio.IntBuffer) error {
	if buf == nil || len(buf.Data) == 0 {
		return nil
	}

	out := make([]byte, 2*len(buf.Data))
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(sample)))
	}

	if _, err := s.w.Write(out); err != nil {
		return fmt.Errorf("failed to write pcm samples: %w", err)
	}
	return nil
}
