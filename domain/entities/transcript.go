package entities

// TranscriptKind distinguishes in-progress recognition results from
// completed utterance segments.
type TranscriptKind int

const (
	// TranscriptInterim is a partial recognition result. Interim results
	// never enter the conversation log; they only drive barge-in.
	TranscriptInterim TranscriptKind = iota
	// TranscriptFinal is a completed utterance segment, submitted to the
	// session as a user turn.
	TranscriptFinal
)

// TranscriptEvent is emitted by a speech recognizer while the user talks.
type TranscriptEvent struct {
	Kind TranscriptKind
	Text string
}
