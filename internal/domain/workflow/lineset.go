package workflow

import (
	"sort"

	"github.com/c4hero/hero-approval/internal/domain/entity"
)

// LineSet is the ordered approval chain of one document. It answers
// progression queries; it never mutates the lines it holds.
//
// Lines with seq <= 0 are reference-only markers inherited from the
// template layer: they are skipped by the completion check and never
// become the active line. Treating them this way is a confirmed policy,
// not an accident of the scan order.
type LineSet struct {
	lines []*entity.ApprovalLine
}

// NewLineSet builds a LineSet sorted ascending by seq.
func NewLineSet(lines []*entity.ApprovalLine) *LineSet {
	sorted := make([]*entity.ApprovalLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seq < sorted[j].Seq
	})
	return &LineSet{lines: sorted}
}

// Lines returns the lines in ascending seq order.
func (s *LineSet) Lines() []*entity.ApprovalLine {
	return s.lines
}

// Len returns the number of lines.
func (s *LineSet) Len() int {
	return len(s.lines)
}

// OnlyDrafter reports whether the set contains solely the drafter
// (every line has seq = 1). Such documents auto-complete on submission.
func (s *LineSet) OnlyDrafter() bool {
	if len(s.lines) == 0 {
		return false
	}
	for _, l := range s.lines {
		if l.Seq != entity.DrafterSeq {
			return false
		}
	}
	return true
}

// FirstApprover returns the seq=2 line, the approver notified on
// submission. Returns nil when no such line exists.
func (s *LineSet) FirstApprover() *entity.ApprovalLine {
	for _, l := range s.lines {
		if l.Seq == entity.DrafterSeq+1 {
			return l
		}
	}
	return nil
}

// NextPending returns the lowest-seq line still PENDING, skipping
// seq <= 0 markers. Returns nil when no line is pending.
func (s *LineSet) NextPending() *entity.ApprovalLine {
	for _, l := range s.lines {
		if l.Seq > 0 && l.Status == entity.LineStatusPending {
			return l
		}
	}
	return nil
}

// AllApproved reports whether every line with seq > 0 is APPROVED.
func (s *LineSet) AllApproved() bool {
	for _, l := range s.lines {
		if l.Seq > 0 && l.Status != entity.LineStatusApproved {
			return false
		}
	}
	return true
}

// HasApproverActed reports whether any line beyond the drafter has
// been processed. Recall does not currently consult this; it is here
// so the stricter recall policy is a one-line guard away.
func (s *LineSet) HasApproverActed() bool {
	for _, l := range s.lines {
		if l.Seq > entity.DrafterSeq && l.Status != entity.LineStatusPending {
			return true
		}
	}
	return false
}
