package conversation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
)

// TurnFinalizedFunc is notified when a turn reaches its final text. It
// fires on the finalize path only, never on deltas.
type TurnFinalizedFunc func(speaker entities.Speaker, text string)

// Aggregator reconstructs incrementally-built turns into finalized log
// entries. It keeps one "current streaming turn" slot per speaker; the
// protocol sends the full accumulated text on each delta, so a delta
// replaces the slot's text outright.
type Aggregator struct {
	mu          sync.Mutex
	log         *Log
	streaming   map[entities.Speaker]int
	onFinalized TurnFinalizedFunc
	logger      *zap.Logger
}

// NewAggregator creates an aggregator writing into the given log.
func NewAggregator(log *Log, onFinalized TurnFinalizedFunc, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		log:         log,
		streaming:   make(map[entities.Speaker]int),
		onFinalized: onFinalized,
		logger:      logger,
	}
}

// OnDelta applies a streaming snapshot for the speaker. The first delta
// opens the speaker's streaming entry; subsequent deltas rewrite it.
func (a *Aggregator) OnDelta(speaker entities.Speaker, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if idx, ok := a.streaming[speaker]; ok {
		a.log.Update(idx, func(msg *entities.Message) {
			msg.Text = text
		})
		return
	}

	idx := a.log.Append(entities.Message{
		Speaker:   speaker,
		Text:      text,
		Streaming: true,
	})
	a.streaming[speaker] = idx
}

// OnFinal finalizes the speaker's turn. An open streaming entry is
// converted in place; otherwise a new finalized entry is appended.
func (a *Aggregator) OnFinal(speaker entities.Speaker, text string) {
	a.mu.Lock()

	if idx, ok := a.streaming[speaker]; ok {
		delete(a.streaming, speaker)
		a.log.Update(idx, func(msg *entities.Message) {
			msg.Text = text
			msg.Streaming = false
		})
	} else {
		a.log.Append(entities.Message{
			Speaker: speaker,
			Text:    text,
		})
	}

	finalized := a.onFinalized
	a.mu.Unlock()

	if finalized != nil {
		finalized(speaker, text)
	}
}

// Reset drops the per-speaker streaming slots. Log entries stay.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streaming = make(map[entities.Speaker]int)
}
