// internal/models/document.go
package models

import "time"

type Document struct {
	BaseModel
	Name         string       `json:"name" gorm:"size:255;not null"`
	EntryDate    time.Time    `json:"entry_date" gorm:"type:date;not null"`
	Responsible  string       `json:"responsible" gorm:"size:255;not null"`
	DocumentType DocumentType `json:"document_type" gorm:"type:varchar(20);not null;index"`
	Description  string       `json:"description" gorm:"type:text"`
	FileURL      string       `json:"file_url" gorm:"size:1024;not null"`
	FileName     string       `json:"file_name" gorm:"size:255;not null"`
	FileSize     int64        `json:"file_size"`
	MimeType     string       `json:"mime_type" gorm:"size:100"`
	Checksum     string       `json:"checksum" gorm:"size:64"`
	CreatedBy    *uint        `json:"created_by" gorm:"index"`
}
