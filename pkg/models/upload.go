package models

import "time"

// Upload is the record of one media blob stored through a one-shot upload
// token. Ref is opaque to clients.
type Upload struct {
	Ref       string    `json:"ref"`
	SessionID string    `json:"sessionId"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"` // sha256, lowercase hex
	CreatedAt time.Time `json:"createdAt"`
}
