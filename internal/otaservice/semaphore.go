package otaservice

import "time"

// semaphore is a counting semaphore bounding concurrent flash operations,
// per spec §4.6/§5 and §9's open question: it is seeded with 1 of a
// possible 100, so in practice it never admits more than one writer. The
// extra capacity is carried over from the original device firmware as a
// deliberately unexplained vestige rather than trimmed away, per the open
// question in spec §9.
type semaphore struct {
	tokens chan struct{}
}

func newSemaphore(max, seed int) *semaphore {
	s := &semaphore{tokens: make(chan struct{}, max)}
	for i := 0; i < seed; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// take blocks until a token is available or timeout elapses.
func (s *semaphore) take(timeout time.Duration) bool {
	select {
	case <-s.tokens:
		return true
	case <-time.After(timeout):
		return false
	}
}

// give returns a token. It never blocks; a give with no matching take
// beyond max capacity is dropped rather than panicking, since every call
// site pairs exactly one give with the take that preceded it.
func (s *semaphore) give() {
	select {
	case s.tokens <- struct{}{}:
	default:
	}
}
