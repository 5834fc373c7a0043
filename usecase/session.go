package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
	"github.com/voicewire/voicewire/domain/repositories"
	"github.com/voicewire/voicewire/internal/audio"
	"github.com/voicewire/voicewire/internal/call"
	"github.com/voicewire/voicewire/internal/conversation"
	"github.com/voicewire/voicewire/internal/metrics"
	"github.com/voicewire/voicewire/internal/transport"
)

// Defaults for the tunables observed in production traffic.
const (
	DefaultInterruptCooldown = 1000 * time.Millisecond
	DefaultToolGrace         = 2000 * time.Millisecond
)

// SessionConfig holds everything one conversation attempt needs.
type SessionConfig struct {
	ServerURL    string
	CallSetupURL string
	RelayURL     string
	Token        string

	// InterruptCooldown is the minimum spacing between barge-in signals.
	InterruptCooldown time.Duration
	// ToolGrace is how long a finished tool's visualization node lingers.
	ToolGrace time.Duration

	Audio repositories.AudioConfig
}

func (c *SessionConfig) applyDefaults() {
	if c.InterruptCooldown <= 0 {
		c.InterruptCooldown = DefaultInterruptCooldown
	}
	if c.ToolGrace <= 0 {
		c.ToolGrace = DefaultToolGrace
	}
}

// Session is the root context for one conversation attempt. It owns the
// primary transport, the optional call bridge, the recognizer, and the
// shared conversation sinks; Stop releases all of them.
type Session struct {
	ID     string
	cfg    SessionConfig
	logger *zap.Logger

	recognizer repositories.SpeechRecognizer

	log        *conversation.Log
	aggregator *conversation.Aggregator
	tracker    *conversation.Tracker
	graph      *conversation.Graph
	playback   *audio.PlaybackQueue

	transport *transport.Transport
	bridge    *call.Bridge

	mu            sync.Mutex
	lastInterrupt time.Time
	turns         int
	stopped       bool
}

// StartSession connects the primary channel, starts recognition, and
// wires every event source into the shared sinks. On any setup failure
// the partially-created resources are released before returning.
func StartSession(
	ctx context.Context,
	cfg SessionConfig,
	recognizer repositories.SpeechRecognizer,
	micSource io.Reader,
	decoder repositories.ChunkDecoder,
	sink repositories.PCMSink,
	logger *zap.Logger,
) (*Session, error) {
	cfg.applyDefaults()

	s := &Session{
		ID:         uuid.NewString(),
		cfg:        cfg,
		logger:     logger,
		recognizer: recognizer,
	}

	s.log = conversation.NewLog()
	s.graph = conversation.NewGraph()
	s.aggregator = conversation.NewAggregator(s.log, s.graph.OnTurnFinalized, logger)
	s.tracker = conversation.NewTracker(s.log, s.graph, cfg.ToolGrace, logger)
	s.playback = audio.NewPlaybackQueue(decoder, sink, logger)

	conn, err := transport.Dial(ctx, cfg.ServerURL, cfg.Token, transport.Callbacks{
		OnEvent: s.onServerEvent,
		OnAudio: s.playback.Enqueue,
		OnClose: s.onTransportClose,
	}, logger)
	if err != nil {
		s.playback.Close()
		return nil, fmt.Errorf("failed to open session channel: %w", err)
	}
	s.transport = conn

	s.bridge = call.NewBridge(call.Config{
		SetupURL: cfg.CallSetupURL,
		RelayURL: cfg.RelayURL,
		Token:    cfg.Token,
	}, call.Sinks{
		Aggregator: s.aggregator,
		Tracker:    s.tracker,
		Graph:      s.graph,
		Audio:      s.playback,
	}, logger)

	if err := recognizer.Start(ctx, micSource, cfg.Audio, s.onTranscript); err != nil {
		conn.Close()
		s.playback.Close()
		return nil, fmt.Errorf("failed to start speech recognition: %w", err)
	}

	metrics.SessionsActive.Inc()
	logger.Info("Session started", zap.String("sessionID", s.ID))
	return s, nil
}

// Stop halts recognition, closes the transports, and resets all
// ephemeral state. Idempotent; the only way a session ends.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	if err := s.recognizer.Stop(); err != nil {
		s.logger.Error("Failed to stop recognizer", zap.Error(err))
	}
	s.transport.Close()
	s.bridge.Close()
	s.playback.Close()
	s.tracker.Reset()
	s.graph.Reset()

	metrics.SessionsActive.Dec()
	s.logger.Info("Session stopped", zap.String("sessionID", s.ID))
}

// InitiateCall sets up an out-of-band call and opens the relay channel.
func (s *Session) InitiateCall(ctx context.Context, target string) error {
	return s.bridge.Initiate(ctx, target)
}

// CallActive reports whether a relay channel is open.
func (s *Session) CallActive() bool {
	return s.bridge.Active()
}

// Messages returns the conversation log so far.
func (s *Session) Messages() []entities.Message {
	return s.log.Messages()
}

// GraphSnapshot returns the live call-state visualization.
func (s *Session) GraphSnapshot() ([]entities.GraphNode, []entities.GraphEdge) {
	return s.graph.Snapshot()
}

// TurnCount returns the number of user turns submitted this session.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// onTranscript fuses recognition into the conversation. Interim results
// only drive barge-in; final results become user submissions.
func (s *Session) onTranscript(ev entities.TranscriptEvent) {
	switch ev.Kind {
	case entities.TranscriptInterim:
		if ev.Text == "" {
			return
		}
		s.maybeInterrupt()

	case entities.TranscriptFinal:
		if ev.Text == "" {
			return
		}
		s.mu.Lock()
		s.turns++
		s.mu.Unlock()

		s.transport.SubmitText(ev.Text)
		s.aggregator.OnFinal(entities.SpeakerUser, ev.Text)
	}
}

// maybeInterrupt sends a barge-in signal unless one went out within the
// cool-down interval.
func (s *Session) maybeInterrupt() {
	s.mu.Lock()
	if !s.lastInterrupt.IsZero() && time.Since(s.lastInterrupt) < s.cfg.InterruptCooldown {
		s.mu.Unlock()
		return
	}
	s.lastInterrupt = time.Now()
	s.mu.Unlock()

	s.transport.SubmitInterrupt()
	metrics.InterruptsSent.Inc()
	s.logger.Debug("Interrupt sent", zap.String("sessionID", s.ID))
}

// onServerEvent routes decoded primary-channel events into the sinks.
// Unknown frames were already logged at the transport boundary.
func (s *Session) onServerEvent(ev transport.ServerEvent) {
	switch ev.Kind {
	case transport.KindStreamingDelta:
		s.aggregator.OnDelta(ev.Speaker, ev.Text)
	case transport.KindFinalTurn, transport.KindStatus:
		s.aggregator.OnFinal(ev.Speaker, ev.Text)
	case transport.KindToolStart:
		s.tracker.OnStart(ev.Tool)
	case transport.KindToolProgress:
		s.tracker.OnProgress(ev.Tool, ev.Pct)
	case transport.KindToolEnd:
		s.tracker.OnEnd(ev.Tool, ev.Outcome, ev.Payload, ev.ElapsedMs)
	}
}

// onTransportClose marks the session stalled. There is no automatic
// reconnection; the user restarts the session explicitly.
func (s *Session) onTransportClose(err error) {
	if err != nil {
		s.logger.Error("Session channel closed unexpectedly",
			zap.String("sessionID", s.ID),
			zap.Error(err))
		return
	}
	s.logger.Info("Session channel closed", zap.String("sessionID", s.ID))
}
