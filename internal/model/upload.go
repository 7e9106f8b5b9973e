package model

import "gorm.io/datatypes"

// swagger:model Upload
type Upload struct {
	UUIDBase
	Filename    string         `gorm:"size:255;not null" json:"filename"`
	StoragePath string         `gorm:"size:500;not null" json:"storage_path"`
	FileURL     string         `gorm:"size:500;not null" json:"file_url"`
	FileType    string         `gorm:"size:100;not null" json:"file_type"`
	Bucket      string         `gorm:"size:100" json:"bucket"`
	UploadedBy  string         `gorm:"type:varchar(36);not null;index" json:"uploaded_by"`
	LessonID    *string        `gorm:"type:varchar(36);index" json:"lesson_id"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
}

func (Upload) TableName() string {
	return "uploads"
}
