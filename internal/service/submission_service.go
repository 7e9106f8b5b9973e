package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learnhub_backend/internal/events"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionService struct {
	ExerciseRepo   ExerciseStore
	SubmissionRepo SubmissionStore
	Publisher      events.Publisher
}

func NewSubmissionService(exerciseRepo ExerciseStore, submissionRepo SubmissionStore, publisher events.Publisher) *SubmissionService {
	return &SubmissionService{
		ExerciseRepo:   exerciseRepo,
		SubmissionRepo: submissionRepo,
		Publisher:      publisher,
	}
}

type SubmitInput struct {
	ExerciseID string         `json:"exercise_id" binding:"required"`
	Content    map[string]any `json:"content" binding:"required"`
}

func (s *SubmissionService) findExercise(id string) (*model.Exercise, error) {
	exercise, err := s.ExerciseRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExerciseNotFound
	}
	return exercise, err
}

func (s *SubmissionService) Submit(ctx context.Context, userID string, in SubmitInput) (*model.Submission, error) {
	if _, err := s.findExercise(in.ExerciseID); err != nil {
		return nil, err
	}

	content, err := json.Marshal(in.Content)
	if err != nil {
		return nil, fmt.Errorf("marshal submission content: %w", err)
	}

	submission := &model.Submission{
		ExerciseID: in.ExerciseID,
		UserID:     userID,
		Content:    datatypes.JSON(content),
		Status:     model.SubmissionSubmitted,
	}
	if err := s.SubmissionRepo.Create(submission); err != nil {
		return nil, err
	}

	payload := events.SubmissionCreated{
		SubmissionID: submission.ID,
		ExerciseID:   submission.ExerciseID,
		UserID:       userID,
		Score:        intField(in.Content, "score"),
		Total:        intField(in.Content, "total"),
	}
	s.publish(ctx, events.New(events.EventSubmissionCreated, payload))
	return submission, nil
}

// intField 读取 JSON 解码后的数值字段
func intField(content map[string]any, key string) *int {
	f, ok := content[key].(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

type GradeInput struct {
	Content string `json:"content" binding:"required"`
	Score   *int   `json:"score"`
}

func (s *SubmissionService) Grade(ctx context.Context, submissionID, teacherID string, in GradeInput) (*model.Submission, error) {
	if _, err := s.SubmissionRepo.FindByID(submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}

	feedback := &model.Feedback{
		SubmissionID: submissionID,
		TeacherID:    teacherID,
		Content:      in.Content,
		Score:        in.Score,
	}
	if err := s.SubmissionRepo.AddFeedback(feedback); err != nil {
		return nil, err
	}

	if in.Score != nil {
		s.publish(ctx, events.New(events.EventSubmissionGraded, events.SubmissionGraded{
			SubmissionID: submissionID,
			GraderID:     teacherID,
			Score:        *in.Score,
		}))
	}
	return s.SubmissionRepo.FindByID(submissionID)
}

func (s *SubmissionService) publish(ctx context.Context, event *events.DomainEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		logger.Log.Warn("发布提交事件失败", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// ExportSubmissions 导出某练习的全部提交为 xlsx
func (s *SubmissionService) ExportSubmissions(exerciseID string) ([]byte, string, error) {
	exercise, err := s.findExercise(exerciseID)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.SubmissionRepo.ListByExercise(exerciseID)
	if err != nil {
		return nil, "", err
	}

	f, err := BuildSubmissionWorkbook(exercise, rows)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("写入 Excel 失败: %w", err)
	}
	filename := fmt.Sprintf("submissions_%s_%s.xlsx", exerciseID, time.Now().Format("20060102"))
	return buf.Bytes(), filename, nil
}

const submissionSheet = "Submissions"

var submissionHeaders = []string{
	"Submission ID", "Student", "Email", "Status", "Score", "Total", "Submitted At", "Content",
}

func BuildSubmissionWorkbook(exercise *model.Exercise, rows []repository.SubmissionRow) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(submissionSheet)
	if err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(submissionSheet, "A1", exercise.Title)
	f.SetCellValue(submissionSheet, "B1", string(exercise.Type))

	for i, header := range submissionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(submissionSheet, cell, header)
	}

	for r, row := range rows {
		var content map[string]any
		_ = json.Unmarshal(row.Content, &content)

		values := []any{
			row.ID,
			row.FullName,
			row.Email,
			string(row.Status),
			numberOrEmpty(intField(content, "score")),
			numberOrEmpty(intField(content, "total")),
			row.CreatedAt.Format(util.TimeFormat),
			string(row.Content),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+3)
			f.SetCellValue(submissionSheet, cell, v)
		}
	}
	return f, nil
}

func numberOrEmpty(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}
