package module

// List runs its members in order as a single Module. PreTimer and PostTimer
// stop at the first member that does not answer Continue; Warning and Reset
// run every member and return the first error.
type List []Module

// Ensure List implements Module
var _ Module = List(nil)

// PreTimer implements Module.
func (l List) PreTimer(info TimerInfo) (Progress, error) {
	for _, m := range l {
		p, err := m.PreTimer(info)
		if err != nil || p != Continue {
			return p, err
		}
	}
	return Continue, nil
}

// PostTimer implements Module.
func (l List) PostTimer(info TimerInfo) (Progress, error) {
	for _, m := range l {
		p, err := m.PostTimer(info)
		if err != nil || p != Continue {
			return p, err
		}
	}
	return Continue, nil
}

// Warning implements Module.
func (l List) Warning(err error) error {
	var first error
	for _, m := range l {
		if werr := m.Warning(err); werr != nil && first == nil {
			first = werr
		}
	}
	return first
}

// Reset implements Module.
func (l List) Reset() error {
	var first error
	for _, m := range l {
		if err := m.Reset(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
