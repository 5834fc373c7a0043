package call

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
	"github.com/voicewire/voicewire/internal/audio"
	"github.com/voicewire/voicewire/internal/conversation"
	"github.com/voicewire/voicewire/internal/metrics"
	"github.com/voicewire/voicewire/internal/transport"
)

const setupTimeout = 10 * time.Second

// DialFunc opens a relay transport. Injectable for tests.
type DialFunc func(ctx context.Context, url, token string, cb transport.Callbacks, logger *zap.Logger) (*transport.Transport, error)

// Config holds the call-setup endpoint and relay channel parameters.
type Config struct {
	SetupURL string
	RelayURL string
	Token    string
}

// Sinks are the shared conversation surfaces the relay channel feeds.
type Sinks struct {
	Aggregator *conversation.Aggregator
	Tracker    *conversation.Tracker
	Graph      *conversation.Graph
	Audio      *audio.PlaybackQueue
}

// setupRequest is the call-setup REST payload.
type setupRequest struct {
	Target string `json:"target"`
}

// setupResponse carries enough to proceed: a call identifier and,
// optionally, a relay channel URL overriding the configured one.
type setupResponse struct {
	CallID   string `json:"call_id"`
	RelayURL string `json:"relay_url,omitempty"`
}

// Bridge initiates an out-of-band call and relays its event stream into
// the session's conversation sinks, tagged by sender identity.
type Bridge struct {
	cfg    Config
	sinks  Sinks
	client *http.Client
	dial   DialFunc
	logger *zap.Logger

	mu     sync.Mutex
	relay  *transport.Transport
	active bool
	callID string
}

// NewBridge creates a bridge using the real transport dialer.
func NewBridge(cfg Config, sinks Sinks, logger *zap.Logger) *Bridge {
	return &Bridge{
		cfg:    cfg,
		sinks:  sinks,
		client: &http.Client{Timeout: setupTimeout},
		dial:   transport.Dial,
		logger: logger,
	}
}

// SetDialFunc overrides the relay dialer. Test hook.
func (b *Bridge) SetDialFunc(dial DialFunc) {
	b.dial = dial
}

// Active reports whether a relay channel is currently open.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Initiate performs the call-setup request and, on success, opens the
// relay channel. A non-success response is surfaced as a finalized system
// message and leaves no relay open.
func (b *Bridge) Initiate(ctx context.Context, target string) error {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return fmt.Errorf("call already active")
	}
	b.mu.Unlock()

	metrics.CallsInitiated.Inc()

	resp, err := b.requestSetup(ctx, target)
	if err != nil {
		b.logger.Error("Call setup failed", zap.String("target", target), zap.Error(err))
		b.sinks.Aggregator.OnFinal(entities.SpeakerAssistant,
			fmt.Sprintf("Call to %s could not be started: %v", target, err))
		return err
	}

	relayURL := b.cfg.RelayURL
	if resp.RelayURL != "" {
		relayURL = resp.RelayURL
	}

	relay, err := b.dial(ctx, relayURL, b.cfg.Token, transport.Callbacks{
		OnEvent: b.onRelayEvent,
		OnAudio: b.onRelayAudio,
		OnClose: b.onRelayClose,
	}, b.logger)
	if err != nil {
		b.logger.Error("Failed to open relay channel", zap.Error(err))
		b.sinks.Aggregator.OnFinal(entities.SpeakerAssistant,
			fmt.Sprintf("Call to %s could not be started: %v", target, err))
		return err
	}

	b.mu.Lock()
	b.relay = relay
	b.active = true
	b.callID = resp.CallID
	b.mu.Unlock()

	b.logger.Info("Call relay opened",
		zap.String("target", target),
		zap.String("callID", resp.CallID))
	return nil
}

// Close shuts the relay channel down if one is open. Idempotent.
func (b *Bridge) Close() {
	b.mu.Lock()
	relay := b.relay
	b.mu.Unlock()

	if relay != nil {
		relay.Close()
	}
}

func (b *Bridge) requestSetup(ctx context.Context, target string) (*setupResponse, error) {
	body, err := json.Marshal(setupRequest{Target: target})
	if err != nil {
		return nil, fmt.Errorf("failed to encode setup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.SetupURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build setup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call setup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("call setup returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var out setupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode setup response: %w", err)
	}
	return &out, nil
}

// onRelayEvent demultiplexes relay frames. Tool-shaped events go to the
// lifecycle tracker exactly like primary-channel ones; everything else is
// interpreted as a {sender, message} turn attributed to the sender.
func (b *Bridge) onRelayEvent(ev transport.ServerEvent) {
	switch ev.Kind {
	case transport.KindToolStart:
		b.sinks.Tracker.OnStart(ev.Tool)
		return
	case transport.KindToolProgress:
		b.sinks.Tracker.OnProgress(ev.Tool, ev.Pct)
		return
	case transport.KindToolEnd:
		b.sinks.Tracker.OnEnd(ev.Tool, ev.Outcome, ev.Payload, ev.ElapsedMs)
		return
	}

	frame, ok := transport.DecodeRelayFrame(ev.Raw)
	if !ok {
		b.logger.Warn("Discarding unrecognized relay frame", zap.ByteString("frame", ev.Raw))
		return
	}
	b.sinks.Aggregator.OnFinal(transport.RelaySpeaker(frame.Sender), frame.Message)
}

func (b *Bridge) onRelayAudio(chunk []byte) {
	if b.sinks.Audio != nil {
		b.sinks.Audio.Enqueue(chunk)
	}
}

// onRelayClose resets the live visualization and clears call-active
// state; the textual log of the call stays.
func (b *Bridge) onRelayClose(err error) {
	if err != nil {
		b.logger.Error("Relay channel closed with error", zap.Error(err))
	}

	b.mu.Lock()
	b.relay = nil
	b.active = false
	callID := b.callID
	b.callID = ""
	b.mu.Unlock()

	b.sinks.Graph.Reset()
	b.logger.Info("Call ended", zap.String("callID", callID))
}
