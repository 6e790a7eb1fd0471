package module

// StopAt stops the scheduler once a given timer has fired.
type StopAt struct {
	Base
	index    int
	complete bool
}

// StopAtIndex stops after the timer at index i fired.
func StopAtIndex(i int) *StopAt {
	return &StopAt{index: i}
}

// StopAtCompletion stops after the last timer of the chain fired.
func StopAtCompletion() *StopAt {
	return &StopAt{complete: true}
}

// PostTimer implements Module.
func (s *StopAt) PostTimer(info TimerInfo) (Progress, error) {
	stopAfter := s.index
	if s.complete {
		stopAfter = info.Length - 1
	}
	if info.Index >= stopAfter {
		return Stop, nil
	}
	return Continue, nil
}
