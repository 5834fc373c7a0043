package entities

import "time"

// Speaker identifies which side of the conversation produced a message.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Message is one rendered entry in the conversation log.
//
// Invariant: at most one Message with Streaming=true exists per speaker.
// A delta for a speaker with an open streaming message rewrites it in
// place; it never appends a second entry.
type Message struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Streaming bool      `json:"streaming"`
	IsTool    bool      `json:"is_tool"`
	Timestamp time.Time `json:"timestamp"`
}
