package provider

import "sync"

// Status tracks an adapter's in-flight operations and its most recent failure.
type Status struct {
	mu       sync.Mutex
	inFlight int
	err      error
}

// Begin marks an operation as started. The returned func marks it finished.
func (s *Status) Begin() func() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
		})
	}
}

func (s *Status) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Fail records err as the latest error and returns it unchanged.
func (s *Status) Fail(err error) error {
	if err == nil {
		return nil
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

func (s *Status) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Status) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}
