package models

import "sync/atomic"

// LiftSequence is the logical clock stamped on every recorded lift.
// Stamps are strictly increasing; zero means "never lifted".
type LiftSequence struct {
	n atomic.Uint64
}

// Next returns a new stamp.
func (s *LiftSequence) Next() uint64 {
	return s.n.Add(1)
}

// Current returns the last stamp handed out.
func (s *LiftSequence) Current() uint64 {
	return s.n.Load()
}

// AdvanceTo makes sure later stamps are greater than seen, e.g. after
// loading persisted athletes.
func (s *LiftSequence) AdvanceTo(seen uint64) {
	for {
		cur := s.n.Load()
		if cur >= seen || s.n.CompareAndSwap(cur, seen) {
			return
		}
	}
}
