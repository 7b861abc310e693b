package lecture

import (
	"fmt"

	"github.com/spherical/lecturecast/internal/domain"
)

var transitions = map[domain.RunState][]domain.RunState{
	domain.StateReceived:     {domain.StateExtracting, domain.StateFailed},
	domain.StateExtracting:   {domain.StateScripting, domain.StateFailed},
	domain.StateScripting:    {domain.StateSynthesizing, domain.StateFailed},
	domain.StateSynthesizing: {domain.StateComplete, domain.StateFailed},
}

// StateMachine tracks a run through its lifecycle. States are never re-entered.
type StateMachine struct {
	current domain.RunState
}

// NewStateMachine starts in Received.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: domain.StateReceived}
}

// Current returns the current state.
func (m *StateMachine) Current() domain.RunState {
	return m.current
}

// Transition moves to next or fails if the move is not allowed from the current state.
func (m *StateMachine) Transition(next domain.RunState) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return domain.InternalError(fmt.Sprintf("illegal run transition %s -> %s", m.current, next), nil)
}
