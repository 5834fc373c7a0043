package conversation

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voicewire/voicewire/domain/entities"
)

// recordingGraph captures the tool-node calls the tracker makes.
type recordingGraph struct {
	mu        sync.Mutex
	started   []string
	terminal  map[string]string
	removed   []string
	removedCh chan string
}

func newRecordingGraph() *recordingGraph {
	return &recordingGraph{
		terminal:  make(map[string]string),
		removedCh: make(chan string, 8),
	}
}

func (g *recordingGraph) OnToolStart(key, name string, parent entities.Speaker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.started = append(g.started, key)
}

func (g *recordingGraph) OnToolTerminal(key, outcome string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.terminal[key] = outcome
}

func (g *recordingGraph) RemoveToolNode(key string) {
	g.mu.Lock()
	g.removed = append(g.removed, key)
	g.mu.Unlock()
	g.removedCh <- key
}

func (g *recordingGraph) removedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.removed)
}

func TestTracker_Lifecycle(t *testing.T) {
	log := NewLog()
	graph := newRecordingGraph()
	tracker := NewTracker(log, graph, 20*time.Millisecond, zap.NewNop())

	tracker.OnStart("lookup_side_effects")

	msgs := log.Messages()
	if len(msgs) != 1 || !msgs[0].IsTool {
		t.Fatalf("expected one tool placeholder, got %+v", msgs)
	}
	if msgs[0].Text != "[lookup_side_effects] started" {
		t.Errorf("placeholder text = %q", msgs[0].Text)
	}

	tracker.OnProgress("lookup_side_effects", 50)
	if got := log.Messages()[0].Text; got != "[lookup_side_effects] 50%" {
		t.Errorf("progress text = %q", got)
	}

	tracker.OnEnd("lookup_side_effects", "success", `{"found":3}`, 420)
	if got := log.Messages()[0].Text; got != `[lookup_side_effects] completed: {"found":3}` {
		t.Errorf("terminal text = %q", got)
	}

	if len(tracker.Running()) != 0 {
		t.Error("call still reported running after terminal event")
	}
	if graph.terminal["lookup_side_effects#1"] != "success" {
		t.Errorf("graph terminal calls = %v", graph.terminal)
	}

	// The ephemeral node goes away after the grace period; the log
	// entry stays.
	select {
	case key := <-graph.removedCh:
		if key != "lookup_side_effects#1" {
			t.Errorf("removed node = %q", key)
		}
	case <-time.After(time.Second):
		t.Fatal("ephemeral node never removed")
	}
	if log.Len() != 1 {
		t.Error("log entry must persist after node removal")
	}
}

func TestTracker_FailureRendersErrorText(t *testing.T) {
	log := NewLog()
	tracker := NewTracker(log, newRecordingGraph(), time.Minute, zap.NewNop())

	tracker.OnStart("send_fax")
	tracker.OnEnd("send_fax", "error", "upstream timeout", 0)

	got := log.Messages()[0].Text
	if !strings.Contains(got, "failed") || !strings.Contains(got, "upstream timeout") {
		t.Errorf("error rendering = %q", got)
	}
}

func TestTracker_ConcurrentSameNameNotConflated(t *testing.T) {
	log := NewLog()
	graph := newRecordingGraph()
	tracker := NewTracker(log, graph, time.Minute, zap.NewNop())

	tracker.OnStart("lookup")
	tracker.OnStart("lookup")

	if got := len(tracker.Running()); got != 2 {
		t.Fatalf("running = %d, want 2", got)
	}
	if graph.started[0] == graph.started[1] {
		t.Errorf("both invocations got key %q", graph.started[0])
	}

	// Progress and the terminal event land on the latest invocation.
	tracker.OnProgress("lookup", 80)
	tracker.OnEnd("lookup", "success", `"ok"`, 10)

	msgs := log.Messages()
	if msgs[0].Text != "[lookup] started" {
		t.Errorf("first invocation touched: %q", msgs[0].Text)
	}
	if msgs[1].Text != `[lookup] completed: "ok"` {
		t.Errorf("second invocation text = %q", msgs[1].Text)
	}

	running := tracker.Running()
	if len(running) != 1 || running[0].Key != "lookup#1" {
		t.Errorf("running after end = %+v", running)
	}
}

func TestTracker_UnknownToolEventsDropped(t *testing.T) {
	log := NewLog()
	tracker := NewTracker(log, newRecordingGraph(), time.Minute, zap.NewNop())

	tracker.OnProgress("ghost", 10)
	tracker.OnEnd("ghost", "success", "", 0)

	if log.Len() != 0 {
		t.Errorf("log mutated by unknown tool events: %+v", log.Messages())
	}
}

func TestTracker_ResetCancelsGraceTimers(t *testing.T) {
	log := NewLog()
	graph := newRecordingGraph()
	tracker := NewTracker(log, graph, 30*time.Millisecond, zap.NewNop())

	tracker.OnStart("lookup")
	tracker.OnEnd("lookup", "success", "", 0)
	tracker.Reset()

	time.Sleep(80 * time.Millisecond)
	if got := graph.removedCount(); got != 0 {
		t.Errorf("stale timer fired after reset, removals = %d", got)
	}
}
