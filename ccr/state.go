package ccr

import "time"

// ExerciseState is the exercise decision of an option along one path.
type ExerciseState int

const (
	ExerciseNone ExerciseState = iota
	Exercised
	NotExercised
)

func (e ExerciseState) String() string {
	switch e {
	case Exercised:
		return "EXERCISED"
	case NotExercised:
		return "NOT_EXERCISED"
	default:
		return "NONE"
	}
}

// PathState is the per-path memory of a fast pricer. It mirrors the pricer tree: composites
// hold one child per component and pricers with fees hold a fee state. A PathState must not
// be shared between concurrently evaluated paths.
type PathState struct {
	started  bool
	lastDate time.Time

	// option memory
	lastLevel float64
	lastVol   float64
	exercise  ExerciseState
	knocked   bool
	payout    float64

	children []*PathState
	fee      *PathState
}

// newPathState sizes a state for a pricer with children components and an optional fee
// sub-pricer, whose state it builds.
func newPathState(children int, fee FastPricer) *PathState {
	s := &PathState{}
	if children > 0 {
		s.children = make([]*PathState, children)
	}
	if fee != nil {
		s.fee = fee.NewPathState()
	}
	return s
}

// Fee returns the state of the fee sub-pricer, or nil without one.
func (s *PathState) Fee() *PathState { return s.fee }

// Exercise returns the exercise decision reached so far on this path.
func (s *PathState) Exercise() ExerciseState { return s.exercise }

// Knocked reports whether a barrier has been hit on this path.
func (s *PathState) Knocked() bool { return s.knocked }

// Child returns the state of component i of a composite.
func (s *PathState) Child(i int) *PathState {
	if i < 0 || i >= len(s.children) {
		return nil
	}
	return s.children[i]
}

// restart clears the path memory when settle is the first call or not after the last
// seen date, and reports whether it did. lastDate is left to the caller.
func (s *PathState) restart(settle time.Time) bool {
	if s.started && settle.After(s.lastDate) {
		return false
	}
	s.started = true
	s.lastDate = settle
	s.lastLevel = 0
	s.lastVol = 0
	s.exercise = ExerciseNone
	s.knocked = false
	s.payout = 0
	return true
}

// advance is restart followed by recording settle as the last seen date.
func (s *PathState) advance(settle time.Time) bool {
	r := s.restart(settle)
	s.lastDate = settle
	return r
}
