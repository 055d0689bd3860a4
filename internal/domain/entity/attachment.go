package entity

import "time"

// Attachment is a file attached to a document. StorageKey points into
// the attachment store; the attachment has no lifecycle beyond its
// document's.
type Attachment struct {
	ID         int64     `json:"id"`
	DocID      int64     `json:"doc_id"`
	OriginName string    `json:"origin_name"`
	StorageKey string    `json:"storage_key"`
	FileSize   int64     `json:"file_size"`
	CreatedAt  time.Time `json:"created_at"`
}
