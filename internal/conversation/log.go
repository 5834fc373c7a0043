package conversation

import (
	"sync"
	"time"

	"github.com/voicewire/voicewire/domain/entities"
)

// Log is the append-only conversation record. Entries are never removed;
// streaming entries and tool placeholders are rewritten in place. It is
// safe for use from multiple transport goroutines.
type Log struct {
	mu       sync.Mutex
	messages []entities.Message
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a message and returns its index for later in-place updates.
func (l *Log) Append(msg entities.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	l.messages = append(l.messages, msg)
	return len(l.messages) - 1
}

// Update rewrites the message at index i under the log's lock.
func (l *Log) Update(i int, fn func(msg *entities.Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.messages) {
		return
	}
	fn(&l.messages[i])
}

// Messages returns a copy of the current log contents.
func (l *Log) Messages() []entities.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]entities.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
