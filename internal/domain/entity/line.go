package entity

import "time"

// ApprovalLine is one step of a document's approval chain. Lines are
// totally ordered by Seq within a document; the drafter occupies seq=1
// and is stored pre-approved.
type ApprovalLine struct {
	ID          int64      `json:"id"`
	DocID       int64      `json:"doc_id"`
	ApproverID  int64      `json:"approver_id"`
	Seq         int        `json:"seq"`
	Status      string     `json:"status"`
	Comment     string     `json:"comment,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Approve marks the line APPROVED and stamps the processing time.
func (l *ApprovalLine) Approve(now time.Time) {
	l.Status = LineStatusApproved
	l.ProcessedAt = &now
}

// RejectWithComment marks the line REJECTED with the rejection reason.
func (l *ApprovalLine) RejectWithComment(comment string, now time.Time) {
	l.Status = LineStatusRejected
	l.Comment = comment
	l.ProcessedAt = &now
}
