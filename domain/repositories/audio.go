package repositories

import "github.com/go-audio/audio"

// ChunkDecoder decodes one opaque synthesized-speech payload into PCM.
type ChunkDecoder interface {
	Decode(chunk []byte) (*audio.IntBuffer, error)
}

// PCMSink plays decoded PCM. Implementations are driven from a single
// playback goroutine and need no internal ordering guarantees.
type PCMSink interface {
	Play(buf *audio.IntBuffer) error
}
