package model

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	}
	return false
}

// swagger:model Progress
type Progress struct {
	UUIDBase
	UserID      string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_user_lesson" json:"user_id"`
	LessonID    string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_user_lesson" json:"lesson_id"`
	Status      ProgressStatus `gorm:"size:20;default:'not_started'" json:"status"`
	CompletedAt *time.Time     `json:"completed_at"`
}

func (Progress) TableName() string {
	return "progress"
}
