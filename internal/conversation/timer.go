package conversation

import (
	"sync"
	"time"
)

// TimerSet schedules delayed work that can be cancelled wholesale on
// session reset, so a stale timer never mutates a later session's state.
type TimerSet struct {
	mu     sync.Mutex
	next   int
	timers map[int]*time.Timer
}

// NewTimerSet creates an empty timer set.
func NewTimerSet() *TimerSet {
	return &TimerSet{timers: make(map[int]*time.Timer)}
}

// Schedule runs fn after d unless the set is reset first.
func (s *TimerSet) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++

	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()

		if live {
			fn()
		}
	})
}

// Reset cancels every pending timer.
func (s *TimerSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of timers not yet fired or cancelled.
func (s *TimerSet) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
