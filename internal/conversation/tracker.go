package conversation

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
	"github.com/voicewire/voicewire/internal/metrics"
)

// ToolGraph is the visualization surface the tracker drives. The graph
// node for a tool is ephemeral; the log entry is permanent.
type ToolGraph interface {
	OnToolStart(key, name string, parent entities.Speaker)
	OnToolTerminal(key, outcome string)
	RemoveToolNode(key string)
}

// toolEntry pairs a running invocation with its placeholder log entry.
type toolEntry struct {
	call     entities.ToolCall
	msgIndex int
}

// Tracker follows concurrent tool invocations through running to terminal
// states. The wire protocol identifies tools by name only, so invocations
// are keyed by name plus activation sequence; progress and terminal events
// resolve to the most recently started still-running invocation of the
// name.
type Tracker struct {
	mu      sync.Mutex
	log     *Log
	graph   ToolGraph
	grace   time.Duration
	timers  *TimerSet
	seq     map[string]int
	running map[string][]*toolEntry
	logger  *zap.Logger
}

// NewTracker creates a tracker writing placeholders into the given log and
// ephemeral nodes into the given graph. grace is how long a terminal
// tool's node stays visible.
func NewTracker(log *Log, graph ToolGraph, grace time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		log:     log,
		graph:   graph,
		grace:   grace,
		timers:  NewTimerSet(),
		seq:     make(map[string]int),
		running: make(map[string][]*toolEntry),
		logger:  logger,
	}
}

// OnStart opens a new running invocation of the named tool.
func (t *Tracker) OnStart(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq[name]++
	key := fmt.Sprintf("%s#%d", name, t.seq[name])

	entry := &toolEntry{
		call: entities.ToolCall{
			Key:       key,
			Name:      name,
			Status:    entities.ToolStatusRunning,
			StartedAt: time.Now(),
		},
	}
	entry.msgIndex = t.log.Append(entities.Message{
		Speaker: entities.SpeakerAssistant,
		Text:    fmt.Sprintf("[%s] started", name),
		IsTool:  true,
	})
	t.running[name] = append(t.running[name], entry)

	t.graph.OnToolStart(key, name, entities.SpeakerAssistant)
	t.logger.Info("Tool started", zap.String("tool", name), zap.String("key", key))
}

// OnProgress updates the latest running invocation of the named tool.
// Progress for a tool with no running invocation is dropped with a log
// entry, never an error.
func (t *Tracker) OnProgress(name string, pct int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.latestRunning(name)
	if entry == nil {
		t.logger.Warn("Progress for unknown tool", zap.String("tool", name))
		return
	}

	entry.call.Progress = pct
	t.log.Update(entry.msgIndex, func(msg *entities.Message) {
		msg.Text = fmt.Sprintf("[%s] %d%%", name, pct)
	})
}

// OnEnd finalizes the latest running invocation of the named tool. The
// placeholder log entry is rewritten to its final form and the ephemeral
// graph node is scheduled for removal after the grace period.
func (t *Tracker) OnEnd(name, outcome, payload string, elapsedMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := t.latestRunning(name)
	if entry == nil {
		t.logger.Warn("Terminal event for unknown tool", zap.String("tool", name))
		return
	}
	t.dropRunning(name, entry)

	status := entities.ToolStatusCompleted
	text := fmt.Sprintf("[%s] completed: %s", name, payload)
	if outcome != "success" {
		status = entities.ToolStatusError
		text = fmt.Sprintf("[%s] failed: %s", name, payload)
	}

	entry.call.Status = status
	entry.call.Payload = payload
	entry.call.ElapsedMs = elapsedMs
	if elapsedMs == 0 {
		entry.call.ElapsedMs = time.Since(entry.call.StartedAt).Milliseconds()
	}

	t.log.Update(entry.msgIndex, func(msg *entities.Message) {
		msg.Text = text
	})

	key := entry.call.Key
	t.graph.OnToolTerminal(key, outcome)
	t.timers.Schedule(t.grace, func() {
		t.graph.RemoveToolNode(key)
	})

	metrics.ToolCallsTotal.WithLabelValues(string(status)).Inc()
	t.logger.Info("Tool finished",
		zap.String("tool", name),
		zap.String("key", key),
		zap.String("status", string(status)),
		zap.Int64("elapsedMs", entry.call.ElapsedMs))
}

// Reset cancels pending node-removal timers and forgets running
// invocations. Log entries stay.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timers.Reset()
	t.seq = make(map[string]int)
	t.running = make(map[string][]*toolEntry)
}

// Running returns the calls currently in flight, in activation order.
func (t *Tracker) Running() []entities.ToolCall {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []entities.ToolCall
	for _, entries := range t.running {
		for _, e := range entries {
			out = append(out, e.call)
		}
	}
	return out
}

func (t *Tracker) latestRunning(name string) *toolEntry {
	entries := t.running[name]
	if len(entries) == 0 {
		return nil
	}
	return entries[len(entries)-1]
}

func (t *Tracker) dropRunning(name string, entry *toolEntry) {
	entries := t.running[name]
	for i, e := range entries {
		if e == entry {
			t.running[name] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}
