package validate

import "sync"

// Sink receives the errors a session surfaces, as they are found.
type Sink interface {
	Report(Error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Error)

func (f SinkFunc) Report(e Error) { f(e) }

// Session collects the errors of one validation run. It is safe for
// concurrent use; remote field checks report into it from their own
// goroutines.
//
// Repeated messages are collapsed. A repeated warning is surfaced to the
// sink again each time its count reaches a power of two (1, 2, 4, 8, ...),
// so persistent problems stay visible without flooding the sink. A repeated
// fatal error is surfaced once.
type Session struct {
	mu     sync.Mutex
	sink   Sink
	errors []Error
	counts map[string]int
}

// NewSession returns a session reporting to sink, which may be nil. The
// sink is called with the session locked and must not call back into it.
func NewSession(sink Sink) *Session {
	return &Session{sink: sink, counts: map[string]int{}}
}

// Report records e and reports whether it was surfaced.
func (s *Session) Report(e Error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[e.Message]++
	n := s.counts[e.Message]
	if n == 1 {
		s.errors = append(s.errors, e)
	}

	surface := n == 1
	if e.Severity == Warning {
		surface = n&(n-1) == 0
	}
	if surface && s.sink != nil {
		s.sink.Report(e)
	}
	return surface
}

// Errors returns every distinct error in the order first reported.
func (s *Session) Errors() []Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Error(nil), s.errors...)
}

// Count returns how many times a message was reported.
func (s *Session) Count(message string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[message]
}

// HasFatal reports whether any fatal error was reported.
func (s *Session) HasFatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.errors {
		if e.Severity == Fatal {
			return true
		}
	}
	return false
}
