package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerSubmit moves a draft into the approval flow.
	TriggerSubmit Trigger = "SUBMIT"

	// TriggerAutoApprove completes a draft whose line set contains only
	// the drafter, skipping INPROGRESS entirely.
	TriggerAutoApprove Trigger = "AUTO_APPROVE"

	// TriggerApprove is the final approval on the last pending line.
	TriggerApprove Trigger = "APPROVE"

	// TriggerReject ends the document regardless of remaining lines.
	TriggerReject Trigger = "REJECT"

	// TriggerRecall is the only backward edge: INPROGRESS back to DRAFT.
	TriggerRecall Trigger = "RECALL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
