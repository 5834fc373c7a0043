package audio

import (
	"sync"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/repositories"
	"github.com/voicewire/voicewire/internal/metrics"
)

// PlaybackQueue decodes synthesized-speech chunks and plays them in
// arrival order. Playback is fire-and-forget per chunk: a chunk that
// fails to decode is logged and skipped without blocking the rest.
type PlaybackQueue struct {
	decoder repositories.ChunkDecoder
	sink    repositories.PCMSink
	logger  *zap.Logger

	mu      sync.Mutex
	closed  bool
	chunks  chan []byte
	drained sync.WaitGroup
}

// NewPlaybackQueue starts the playback worker. The decoder and sink are
// shared session resources; only the single worker goroutine touches them.
func NewPlaybackQueue(decoder repositories.ChunkDecoder, sink repositories.PCMSink, logger *zap.Logger) *PlaybackQueue {
	q := &PlaybackQueue{
		decoder: decoder,
		sink:    sink,
		logger:  logger,
		chunks:  make(chan []byte, 64),
	}
	q.drained.Add(1)
	go q.run()
	return q
}

// Enqueue hands a chunk to the playback worker. Chunks arriving after
// Close, or while the queue is saturated, are dropped with a log entry.
func (q *PlaybackQueue) Enqueue(chunk []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	select {
	case q.chunks <- chunk:
	default:
		q.logger.Warn("Playback queue full, dropping chunk", zap.Int("size", len(chunk)))
	}
}

// Close stops the worker after the queued chunks are played. Idempotent.
func (q *PlaybackQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.chunks)
	}
	q.mu.Unlock()
	q.drained.Wait()
}

func (q *PlaybackQueue) run() {
	defer q.drained.Done()

	for chunk := range q.chunks {
		buf, err := q.decoder.Decode(chunk)
		if err != nil {
			metrics.AudioDecodeFailures.Inc()
			q.logger.Error("Failed to decode audio chunk",
				zap.Int("size", len(chunk)),
				zap.Error(err))
			continue
		}

		if err := q.sink.Play(buf); err != nil {
			q.logger.Error("Failed to play audio chunk", zap.Error(err))
		}
	}
}
