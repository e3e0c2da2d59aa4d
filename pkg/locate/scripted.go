package locate

import "sync"

// Scripted plays back a fixed sequence of sightings, one per call.
// Nil entries model ticks where nobody is visible. The simulator and
// integration tests drive the navigation loop with it.
type Scripted struct {
	mu    sync.Mutex
	steps []*Person
	index int
}

var _ Locator = (*Scripted)(nil)

// NewScripted creates a scripted locator over the given steps.
func NewScripted(steps ...*Person) *Scripted {
	return &Scripted{steps: steps}
}

// Person returns the next scripted sighting. After the script ends
// every call returns nil.
func (s *Scripted) Person() *Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.steps) {
		return nil
	}
	p := s.steps[s.index]
	s.index++
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

// Remaining reports how many scripted steps are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps) - s.index
}

// Close implements Locator.
func (s *Scripted) Close() error { return nil }
