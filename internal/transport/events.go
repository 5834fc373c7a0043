package transport

import (
	"encoding/json"

	"github.com/voicewire/voicewire/domain/entities"
)

// EventKind discriminates the server event union.
type EventKind string

// Supported inbound event kinds
const (
	KindStreamingDelta EventKind = "streaming_delta"
	KindFinalTurn      EventKind = "final_turn"
	KindStatus         EventKind = "status"
	KindToolStart      EventKind = "tool_start"
	KindToolProgress   EventKind = "tool_progress"
	KindToolEnd        EventKind = "tool_end"
	// KindUnknown covers malformed JSON and unrecognized type tags. It is
	// handled once, centrally, as a no-op with a log entry; Raw keeps the
	// original frame so the call-relay path can reinterpret it.
	KindUnknown EventKind = "unknown"
)

// ServerEvent is the decoded form of one inbound text frame.
type ServerEvent struct {
	Kind    EventKind
	Speaker entities.Speaker

	// Text carries delta/final/status content.
	Text string

	// Tool lifecycle fields
	Tool      string
	Pct       int
	Outcome   string
	Payload   string
	ElapsedMs int64

	// Raw is the original frame, retained on every event.
	Raw []byte
}

// IsTool reports whether the event belongs to the tool lifecycle.
func (e ServerEvent) IsTool() bool {
	switch e.Kind {
	case KindToolStart, KindToolProgress, KindToolEnd:
		return true
	}
	return false
}

// wireEvent is the JSON envelope shared by all inbound text frames.
type wireEvent struct {
	Type      string          `json:"type"`
	Content   string          `json:"content"`
	Message   string          `json:"message"`
	Tool      string          `json:"tool"`
	Pct       int             `json:"pct"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	Error     string          `json:"error"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// DecodeServerEvent parses one text frame into the event union. It never
// fails: anything that does not match a known shape comes back as
// KindUnknown and is the caller's to log and drop.
func DecodeServerEvent(data []byte) ServerEvent {
	ev := ServerEvent{Kind: KindUnknown, Raw: data}

	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return ev
	}

	content := w.Content
	if content == "" {
		content = w.Message
	}

	switch w.Type {
	case "assistant_streaming":
		ev.Kind = KindStreamingDelta
		ev.Speaker = entities.SpeakerAssistant
		ev.Text = w.Content
	case "assistant":
		ev.Kind = KindFinalTurn
		ev.Speaker = entities.SpeakerAssistant
		ev.Text = content
	case "status":
		ev.Kind = KindStatus
		ev.Speaker = entities.SpeakerAssistant
		ev.Text = content
	case "tool_start":
		if w.Tool == "" {
			return ev
		}
		ev.Kind = KindToolStart
		ev.Tool = w.Tool
	case "tool_progress":
		if w.Tool == "" {
			return ev
		}
		ev.Kind = KindToolProgress
		ev.Tool = w.Tool
		ev.Pct = w.Pct
	case "tool_end":
		if w.Tool == "" {
			return ev
		}
		ev.Kind = KindToolEnd
		ev.Tool = w.Tool
		ev.Outcome = w.Status
		ev.ElapsedMs = w.ElapsedMs
		if w.Error != "" {
			ev.Payload = w.Error
		} else if len(w.Result) > 0 {
			// String results are unquoted; structured results stay verbatim.
			var s string
			if err := json.Unmarshal(w.Result, &s); err == nil {
				ev.Payload = s
			} else {
				ev.Payload = string(w.Result)
			}
		}
	}

	return ev
}

// RelayFrame is the alternate shape carried on the call-relay channel for
// turns originating from an out-of-band call leg.
type RelayFrame struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// DecodeRelayFrame parses the relay channel's {sender, message} shape.
func DecodeRelayFrame(data []byte) (RelayFrame, bool) {
	var f RelayFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return RelayFrame{}, false
	}
	if f.Sender == "" || f.Message == "" {
		return RelayFrame{}, false
	}
	return f, true
}

// RelaySpeaker maps a relay sender tag onto a conversation speaker.
// Anything that is not the assistant is attributed to the user leg.
func RelaySpeaker(sender string) entities.Speaker {
	if sender == "Assistant" || sender == string(entities.SpeakerAssistant) {
		return entities.SpeakerAssistant
	}
	return entities.SpeakerUser
}
