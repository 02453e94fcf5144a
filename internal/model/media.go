package model

import "time"

// MediaFile — метаданные загруженного файла; сами байты лежат на диске под StoredFilename.
type MediaFile struct {
	FileID         string    `gorm:"primaryKey;type:uuid" json:"file_id"`
	Filename       string    `gorm:"type:varchar(255);not null" json:"filename"`
	StoredFilename string    `gorm:"type:varchar(255);not null" json:"-"`
	URL            string    `gorm:"type:varchar(255);not null" json:"url"`
	TicketID       *string   `gorm:"type:varchar(64);index" json:"ticket_id,omitempty"`
	UploadedBy     ClaimedID `gorm:"type:varchar(64);not null" json:"uploaded_by"`
	Size           int64     `gorm:"not null" json:"size"`
	ContentType    string    `gorm:"type:varchar(128)" json:"content_type"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MediaFile) TableName() string { return "media_files" }
