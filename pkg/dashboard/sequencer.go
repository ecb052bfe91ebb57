package dashboard

import "sync/atomic"

// Sequencer orders overlapping fetches: the result of a request is used only
// if no newer request was issued in the meantime (last issued wins).
type Sequencer struct {
	last atomic.Uint64
}

type Ticket uint64

// Issue returns the ticket for a new request, superseding all earlier ones
func (s *Sequencer) Issue() Ticket {
	return Ticket(s.last.Add(1))
}

// Current reports whether t still belongs to the latest request
func (s *Sequencer) Current(t Ticket) bool {
	return uint64(t) == s.last.Load()
}
