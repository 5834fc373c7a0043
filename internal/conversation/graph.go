package conversation

import (
	"sync"

	"github.com/voicewire/voicewire/domain/entities"
)

const previewRunes = 32

// Root node ids. The two speaker nodes persist across the whole session
// and are relabeled, never duplicated.
const (
	nodeUser      = "user"
	nodeAssistant = "assistant"
)

// Graph is the live call-state visualization: two persistent speaker
// nodes plus one ephemeral node per tool call still inside its grace
// period.
type Graph struct {
	mu sync.Mutex

	userLabel      string
	assistantLabel string

	// activeSpeaker marks the direction of the root edge after the most
	// recent finalized turn; empty until the first turn.
	activeSpeaker entities.Speaker

	toolOrder   []string
	tools       map[string]*entities.GraphNode
	toolParents map[string]string
}

// NewGraph creates a graph holding exactly the two root nodes.
func NewGraph() *Graph {
	g := &Graph{}
	g.Reset()
	return g
}

// Reset restores the two root nodes and clears all edges and ephemeral
// nodes. Called at session start and at call termination.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.userLabel = "User"
	g.assistantLabel = "Assistant"
	g.activeSpeaker = ""
	g.toolOrder = nil
	g.tools = make(map[string]*entities.GraphNode)
	g.toolParents = make(map[string]string)
}

// OnTurnFinalized relabels the speaker's root node with a truncated
// preview of the turn and activates the root edge in that direction.
func (g *Graph) OnTurnFinalized(speaker entities.Speaker, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	label := truncate(text, previewRunes)
	if speaker == entities.SpeakerUser {
		g.userLabel = label
	} else {
		g.assistantLabel = label
	}
	g.activeSpeaker = speaker
}

// OnToolStart attaches an ephemeral node for the tool to its parent
// speaker's root node.
func (g *Graph) OnToolStart(key, name string, parent entities.Speaker) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tools[key]; ok {
		return
	}
	g.tools[key] = &entities.GraphNode{
		ID:     key,
		Kind:   entities.NodeKindTool,
		Label:  name,
		Status: string(entities.ToolStatusRunning),
	}
	g.toolOrder = append(g.toolOrder, key)

	parentID := nodeAssistant
	if parent == entities.SpeakerUser {
		parentID = nodeUser
	}
	g.toolParents[key] = parentID
}

// OnToolTerminal recolors the tool's node with its outcome. Removal
// happens separately after the grace period.
func (g *Graph) OnToolTerminal(key, outcome string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.tools[key]
	if !ok {
		return
	}
	if outcome == "success" {
		node.Status = string(entities.ToolStatusCompleted)
	} else {
		node.Status = string(entities.ToolStatusError)
	}
}

// RemoveToolNode prunes the tool's ephemeral node.
func (g *Graph) RemoveToolNode(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tools[key]; !ok {
		return
	}
	delete(g.tools, key)
	delete(g.toolParents, key)
	for i, k := range g.toolOrder {
		if k == key {
			g.toolOrder = append(g.toolOrder[:i], g.toolOrder[i+1:]...)
			break
		}
	}
}

// Snapshot returns the current nodes and edges for rendering. Tool nodes
// hang off the assistant root; the root edge pair carries the direction
// of the last finalized turn.
func (g *Graph) Snapshot() ([]entities.GraphNode, []entities.GraphEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := []entities.GraphNode{
		{ID: nodeUser, Kind: entities.NodeKindSpeaker, Label: g.userLabel},
		{ID: nodeAssistant, Kind: entities.NodeKindSpeaker, Label: g.assistantLabel},
	}
	edges := []entities.GraphEdge{
		{From: nodeUser, To: nodeAssistant, Active: g.activeSpeaker == entities.SpeakerUser},
		{From: nodeAssistant, To: nodeUser, Active: g.activeSpeaker == entities.SpeakerAssistant},
	}

	for _, key := range g.toolOrder {
		node := g.tools[key]
		nodes = append(nodes, *node)
		edges = append(edges, entities.GraphEdge{From: g.toolParents[key], To: key})
	}
	return nodes, edges
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
