package sano

// recordingSink collects dispatched events for assertions.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) Dispatch(ev Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) count(kind EventKind) int {
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
