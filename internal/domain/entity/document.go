package entity

import "time"

// Document is an approval document moving through the workflow.
// DocNo is assigned only when the document reaches APPROVED; it stays
// empty for every other status.
type Document struct {
	ID          int64      `json:"id"`
	TemplateID  int64      `json:"template_id"`
	DrafterID   int64      `json:"drafter_id"`
	DocNo       string     `json:"doc_no,omitempty"`
	Title       string     `json:"title"`
	Details     string     `json:"details"` // opaque JSON payload for downstream consumers
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChangeStatus sets the document status without side effects.
func (d *Document) ChangeStatus(status string) {
	d.Status = status
}

// Complete marks the document APPROVED and stamps the completion time.
func (d *Document) Complete(now time.Time) {
	d.Status = DocStatusApproved
	d.CompletedAt = &now
}

// AssignDocNo attaches the allocated document number.
func (d *Document) AssignDocNo(docNo string) {
	d.DocNo = docNo
}
