package model

import "gorm.io/datatypes"

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// swagger:model Submission
type Submission struct {
	UUIDBase
	ExerciseID string           `gorm:"type:varchar(36);not null;index" json:"exercise_id"`
	UserID     string           `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Content    datatypes.JSON   `gorm:"not null" json:"content"`
	Status     SubmissionStatus `gorm:"size:20;default:'submitted'" json:"status"`
	Feedback   []Feedback       `gorm:"foreignKey:SubmissionID" json:"feedback,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// Feedback 教师对提交的评语与评分
type Feedback struct {
	UUIDBase
	SubmissionID string `gorm:"type:varchar(36);not null;index" json:"submission_id"`
	TeacherID    string `gorm:"type:varchar(36);not null" json:"teacher_id"`
	Content      string `gorm:"type:text;not null" json:"content"`
	Score        *int   `json:"score"`
}

func (Feedback) TableName() string {
	return "feedback"
}
