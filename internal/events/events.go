package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSubmissionCreated EventType = "submission.created"
	EventSubmissionGraded  EventType = "submission.graded"
	EventProgressUpdated   EventType = "progress.updated"
)

const (
	source  = "learnhub_backend"
	version = "1.0"
)

// DomainEvent 领域事件统一外壳，Data 为具体载荷
type DomainEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func New(t EventType, data any) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   version,
		Data:      data,
	}
}

type SubmissionCreated struct {
	SubmissionID string `json:"submission_id"`
	ExerciseID   string `json:"exercise_id"`
	UserID       string `json:"user_id"`
	Score        *int   `json:"score,omitempty"`
	Total        *int   `json:"total,omitempty"`
}

type SubmissionGraded struct {
	SubmissionID string `json:"submission_id"`
	GraderID     string `json:"grader_id"`
	Score        int    `json:"score"`
}

type ProgressUpdated struct {
	UserID   string `json:"user_id"`
	LessonID string `json:"lesson_id"`
	Status   string `json:"status"`
}
