package search

import (
	"sync"

	"go.uber.org/atomic"
)

// Sequencer tags every search with a per-kind increasing token so late
// responses for superseded queries can be dropped.
type Sequencer struct {
	mu     sync.Mutex
	latest map[Kind]*atomic.Uint64
}

// NewSequencer creates a new Sequencer instance.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[Kind]*atomic.Uint64)}
}

// Ticket identifies one search request.
type Ticket struct {
	kind    Kind
	token   uint64
	counter *atomic.Uint64
}

// Begin issues the next token for kind.
func (s *Sequencer) Begin(kind Kind) Ticket {
	s.mu.Lock()
	counter, ok := s.latest[kind]
	if !ok {
		counter = atomic.NewUint64(0)
		s.latest[kind] = counter
	}
	s.mu.Unlock()

	return Ticket{kind: kind, token: counter.Inc(), counter: counter}
}

// Token returns the ticket's sequence number.
func (t Ticket) Token() uint64 { return t.token }

// Latest reports whether no newer search of the same kind has begun.
func (t Ticket) Latest() bool {
	return t.counter != nil && t.counter.Load() == t.token
}

// Kind returns the search kind the ticket was issued for.
func (t Ticket) Kind() Kind { return t.kind }
