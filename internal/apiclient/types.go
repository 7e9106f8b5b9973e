package apiclient

import (
	"encoding/json"
	"time"
)

type User struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	AvatarURL *string    `json:"avatar_url"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LessonContent struct {
	VideoURL string `json:"video_url,omitempty"`
}

type Lesson struct {
	ID          string          `json:"id"`
	ChapterID   string          `json:"chapter_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Content     json.RawMessage `json:"content"`
}

// VideoURL 返回 content.video_url，没有视频时为空
func (l *Lesson) VideoURL() string {
	if len(l.Content) == 0 {
		return ""
	}
	var c LessonContent
	if err := json.Unmarshal(l.Content, &c); err != nil {
		return ""
	}
	return c.VideoURL
}

type Course struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type Submission struct {
	ID         string          `json:"id"`
	ExerciseID string          `json:"exercise_id"`
	UserID     string          `json:"user_id"`
	Status     string          `json:"status"`
	Content    json.RawMessage `json:"content"`
}

type ProgressStatus string

const (
	NotStarted ProgressStatus = "not_started"
	InProgress ProgressStatus = "in_progress"
	Completed  ProgressStatus = "completed"
)

type Progress struct {
	ID          string         `json:"id"`
	LessonID    string         `json:"lesson_id"`
	Status      ProgressStatus `json:"status"`
	CompletedAt *time.Time     `json:"completed_at"`
}

type Upload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

type DashboardStats struct {
	Courses          int   `json:"courses"`
	CompletedLessons int64 `json:"completed_lessons"`
	Stars            int64 `json:"stars"`
}
