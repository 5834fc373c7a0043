package transport

import (
	"testing"

	"github.com/voicewire/voicewire/domain/entities"
)

func TestDecodeServerEvent(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  ServerEvent
	}{
		{
			name:  "assistant streaming delta",
			frame: `{"type":"assistant_streaming","content":"I underst"}`,
			want:  ServerEvent{Kind: KindStreamingDelta, Speaker: entities.SpeakerAssistant, Text: "I underst"},
		},
		{
			name:  "assistant final turn",
			frame: `{"type":"assistant","content":"I understand, connecting you now."}`,
			want:  ServerEvent{Kind: KindFinalTurn, Speaker: entities.SpeakerAssistant, Text: "I understand, connecting you now."},
		},
		{
			name:  "status with message field",
			frame: `{"type":"status","message":"Transferring to a nurse."}`,
			want:  ServerEvent{Kind: KindStatus, Speaker: entities.SpeakerAssistant, Text: "Transferring to a nurse."},
		},
		{
			name:  "tool start",
			frame: `{"type":"tool_start","tool":"lookup_side_effects"}`,
			want:  ServerEvent{Kind: KindToolStart, Tool: "lookup_side_effects"},
		},
		{
			name:  "tool progress",
			frame: `{"type":"tool_progress","tool":"lookup_side_effects","pct":50}`,
			want:  ServerEvent{Kind: KindToolProgress, Tool: "lookup_side_effects", Pct: 50},
		},
		{
			name:  "tool end success",
			frame: `{"type":"tool_end","tool":"lookup_side_effects","status":"success","result":{"found":3},"elapsedMs":420}`,
			want:  ServerEvent{Kind: KindToolEnd, Tool: "lookup_side_effects", Outcome: "success", Payload: `{"found":3}`, ElapsedMs: 420},
		},
		{
			name:  "tool end string result unquoted",
			frame: `{"type":"tool_end","tool":"send_fax","status":"success","result":"delivered"}`,
			want:  ServerEvent{Kind: KindToolEnd, Tool: "send_fax", Outcome: "success", Payload: "delivered"},
		},
		{
			name:  "tool end error",
			frame: `{"type":"tool_end","tool":"lookup_side_effects","status":"error","error":"upstream timeout"}`,
			want:  ServerEvent{Kind: KindToolEnd, Tool: "lookup_side_effects", Outcome: "error", Payload: "upstream timeout"},
		},
		{
			name:  "invalid json",
			frame: `{"type":`,
			want:  ServerEvent{Kind: KindUnknown},
		},
		{
			name:  "unrecognized type",
			frame: `{"type":"telemetry","content":"x"}`,
			want:  ServerEvent{Kind: KindUnknown},
		},
		{
			name:  "tool event missing tool name",
			frame: `{"type":"tool_start"}`,
			want:  ServerEvent{Kind: KindUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeServerEvent([]byte(tt.frame))

			if got.Kind != tt.want.Kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.want.Kind)
			}
			if got.Speaker != tt.want.Speaker {
				t.Errorf("Speaker = %v, want %v", got.Speaker, tt.want.Speaker)
			}
			if got.Text != tt.want.Text {
				t.Errorf("Text = %q, want %q", got.Text, tt.want.Text)
			}
			if got.Tool != tt.want.Tool {
				t.Errorf("Tool = %q, want %q", got.Tool, tt.want.Tool)
			}
			if got.Pct != tt.want.Pct {
				t.Errorf("Pct = %d, want %d", got.Pct, tt.want.Pct)
			}
			if got.Outcome != tt.want.Outcome {
				t.Errorf("Outcome = %q, want %q", got.Outcome, tt.want.Outcome)
			}
			if got.Payload != tt.want.Payload {
				t.Errorf("Payload = %q, want %q", got.Payload, tt.want.Payload)
			}
			if got.ElapsedMs != tt.want.ElapsedMs {
				t.Errorf("ElapsedMs = %d, want %d", got.ElapsedMs, tt.want.ElapsedMs)
			}
			if string(got.Raw) != tt.frame {
				t.Errorf("Raw not preserved: %q", got.Raw)
			}
		})
	}
}

func TestDecodeRelayFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantOK  bool
		sender  string
		message string
	}{
		{
			name:    "user leg turn",
			frame:   `{"sender":"User","message":"hello"}`,
			wantOK:  true,
			sender:  "User",
			message: "hello",
		},
		{
			name:    "assistant leg turn",
			frame:   `{"sender":"Assistant","message":"how can I help?"}`,
			wantOK:  true,
			sender:  "Assistant",
			message: "how can I help?",
		},
		{
			name:   "missing sender",
			frame:  `{"message":"hello"}`,
			wantOK: false,
		},
		{
			name:   "not json",
			frame:  `hello`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeRelayFrame([]byte(tt.frame))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Sender != tt.sender || got.Message != tt.message {
				t.Errorf("got %+v, want sender=%q message=%q", got, tt.sender, tt.message)
			}
		})
	}
}

func TestRelaySpeaker(t *testing.T) {
	if got := RelaySpeaker("Assistant"); got != entities.SpeakerAssistant {
		t.Errorf("RelaySpeaker(Assistant) = %v", got)
	}
	if got := RelaySpeaker("User"); got != entities.SpeakerUser {
		t.Errorf("RelaySpeaker(User) = %v", got)
	}
	if got := RelaySpeaker("caller-7"); got != entities.SpeakerUser {
		t.Errorf("RelaySpeaker(caller-7) = %v", got)
	}
}
