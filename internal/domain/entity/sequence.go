package entity

// SequenceCounter holds the last issued value of one document-number
// series. Rows are created lazily on first allocation for a period key
// and are never deleted.
type SequenceCounter struct {
	SeqType    string `json:"seq_type"` // period key, e.g. "HERO-2026"
	CurrentVal int64  `json:"current_val"`
}
