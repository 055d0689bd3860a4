package workflow

// documentTransitions is the transition table of the document approval
// lifecycle. RECALL is the only backward edge; APPROVED and REJECTED
// are terminal.
var documentTransitions = NewBuilder().
	Permit(StateDraft, TriggerSubmit, StateInProgress).
	Permit(StateDraft, TriggerAutoApprove, StateApproved).
	Permit(StateInProgress, TriggerApprove, StateApproved).
	Permit(StateInProgress, TriggerReject, StateRejected).
	Permit(StateInProgress, TriggerRecall, StateDraft)

// NewDocumentMachine creates a state machine for a document currently
// in the given status.
func NewDocumentMachine(current State) StateMachine {
	return documentTransitions.Build(current)
}
