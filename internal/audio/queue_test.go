package audio

import (
	"fmt"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"go.uber.org/zap"
)

// markerDecoder treats the first byte of a chunk as its sample value and
// fails on the 0xFF marker.
type markerDecoder struct{}

func (markerDecoder) Decode(chunk []byte) (*goaudio.IntBuffer, error) {
	if len(chunk) == 0 || chunk[0] == 0xFF {
		return nil, fmt.Errorf("unplayable chunk")
	}
	return &goaudio.IntBuffer{Data: []int{int(chunk[0])}}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	played []int
}

func (s *recordingSink) Play(buf *goaudio.IntBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, buf.Data[0])
	return nil
}

func (s *recordingSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.played))
	copy(out, s.played)
	return out
}

func TestPlaybackQueue_PlaysInArrivalOrder(t *testing.T) {
	sink := &recordingSink{}
	q := NewPlaybackQueue(markerDecoder{}, sink, zap.NewNop())

	q.Enqueue([]byte{1})
	q.Enqueue([]byte{2})
	q.Enqueue([]byte{3})
	q.Close()

	got := sink.snapshot()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("played %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("played %v, want %v", got, want)
		}
	}
}

func TestPlaybackQueue_DecodeFailureDoesNotBlock(t *testing.T) {
	sink := &recordingSink{}
	q := NewPlaybackQueue(markerDecoder{}, sink, zap.NewNop())

	q.Enqueue([]byte{1})
	q.Enqueue([]byte{0xFF}) // dropped with a log entry
	q.Enqueue([]byte{2})
	q.Close()

	got := sink.snapshot()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("played %v, want [1 2]", got)
	}
}

func TestPlaybackQueue_EnqueueAfterClose(t *testing.T) {
	q := NewPlaybackQueue(markerDecoder{}, &recordingSink{}, zap.NewNop())
	q.Close()

	// Must not panic or deadlock.
	q.Enqueue([]byte{1})
	q.Close()

	time.Sleep(10 * time.Millisecond)
}
