package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// swagger:model Lesson
type Lesson struct {
	UUIDBase
	ChapterID   string         `gorm:"type:varchar(36);not null;index" json:"chapter_id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description *string        `gorm:"type:text" json:"description"`
	Content     datatypes.JSON `json:"content"`
	Order       int            `gorm:"column:order;default:0" json:"order"`
	CreatedBy   *string        `gorm:"type:varchar(36)" json:"created_by"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonContent 课时内容中已知的字段，其余字段原样保留
type LessonContent struct {
	VideoURL string `json:"video_url,omitempty"`
}

func (l *Lesson) ParsedContent() LessonContent {
	var c LessonContent
	if len(l.Content) == 0 {
		return c
	}
	_ = json.Unmarshal(l.Content, &c)
	return c
}
