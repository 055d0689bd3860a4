package entity

// Document status values
const (
	DocStatusDraft      = "DRAFT"
	DocStatusInProgress = "INPROGRESS"
	DocStatusApproved   = "APPROVED"
	DocStatusRejected   = "REJECTED"
)

// Approval line status values
const (
	LineStatusPending  = "PENDING"
	LineStatusApproved = "APPROVED"
	LineStatusRejected = "REJECTED"
)

// Approval actions accepted by ProcessApproval
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// DrafterSeq is the sequence position reserved for the document drafter.
// The drafter's line is created pre-approved at document creation time.
const DrafterSeq = 1
