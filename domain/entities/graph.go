package entities

// NodeKind separates the two persistent speaker nodes from ephemeral
// tool nodes with a bounded lifetime.
type NodeKind string

const (
	NodeKindSpeaker NodeKind = "speaker"
	NodeKindTool    NodeKind = "tool"
)

// GraphNode is one element of the live call-state visualization.
type GraphNode struct {
	ID     string   `json:"id"`
	Kind   NodeKind `json:"kind"`
	Label  string   `json:"label"`
	Status string   `json:"status,omitempty"`
}

// GraphEdge connects two nodes. For the root edge between the speaker
// nodes, Active marks the direction of the most recent finalized turn.
type GraphEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Active bool   `json:"active"`
}
