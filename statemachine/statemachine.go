package statemachine

import (
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/message"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

// StateFn handles one packet and returns the next state. A nil state is
// terminal.
type StateFn func(*message.Packet, transfer.Transfer) StateFn

type StateMachine struct {
	currentState StateFn
}

func NewStateMachine(initialState StateFn) *StateMachine {
	return &StateMachine{currentState: initialState}
}

// Transition feeds pkt to the current state and reports whether the machine
// is still running. Once stopped it ignores further packets.
func (s *StateMachine) Transition(pkt *message.Packet, t transfer.Transfer) bool {
	if s.currentState == nil {
		return false
	}
	s.currentState = s.currentState(pkt, t)
	return s.currentState != nil
}

func (s *StateMachine) Done() bool {
	return s.currentState == nil
}
