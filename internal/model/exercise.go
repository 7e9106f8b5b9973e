package model

import "gorm.io/datatypes"

type ExerciseType string

const (
	ExerciseQuiz         ExerciseType = "quiz"
	ExerciseFillInBlanks ExerciseType = "fill-in-blanks"
	ExerciseMatching     ExerciseType = "matching"
)

// swagger:model Exercise
type Exercise struct {
	UUIDBase
	LessonID    string         `gorm:"type:varchar(36);not null;index" json:"lesson_id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description *string        `gorm:"type:text" json:"description"`
	Type        ExerciseType   `gorm:"size:32;not null" json:"type"`
	Content     datatypes.JSON `gorm:"not null" json:"content"`
	CreatedBy   *string        `gorm:"type:varchar(36)" json:"created_by"`
}

func (Exercise) TableName() string {
	return "exercises"
}
