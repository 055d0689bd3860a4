package event

// Type identifies the type of workflow event
type Type string

const (
	// TypeDocumentCompleted fires once when a document enters APPROVED.
	// Cross-domain handlers (attendance, promotion) key on the template.
	TypeDocumentCompleted Type = "document.completed"

	// TypeDocumentRejected fires once when a document enters REJECTED.
	TypeDocumentRejected Type = "document.rejected"

	// TypeApprovalRequested targets the newly active approver on
	// submission or after an intermediate approval.
	TypeApprovalRequested Type = "approval.requested"

	// TypeDocumentRecalled fires when a drafter pulls a document back.
	TypeDocumentRecalled Type = "document.recalled"

	// TypeApprovalReminder nudges an approver sitting on a pending line.
	TypeApprovalReminder Type = "approval.reminder"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentCompleted,
		TypeDocumentRejected,
		TypeApprovalRequested,
		TypeDocumentRecalled,
		TypeApprovalReminder:
		return true
	default:
		return false
	}
}
