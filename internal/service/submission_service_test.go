package service

import (
	"context"
	"testing"
	"time"

	"learnhub_backend/internal/events"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestSubmitStoresContentAndPublishes(t *testing.T) {
	exercises := new(mockExerciseStore)
	exercises.On("FindByID", "e1").Return(&model.Exercise{Type: model.ExerciseQuiz}, nil)
	subs := new(mockSubmissionStore)
	subs.On("Create", mock.AnythingOfType("*model.Submission")).Return(nil)

	pub := events.NewMemoryPublisher()
	svc := NewSubmissionService(exercises, subs, pub)

	// 与 JSON 请求体解码后的形态一致
	content := map[string]any{"score": float64(2), "total": float64(3), "answers": []any{float64(1), float64(0)}}
	sub, err := svc.Submit(context.Background(), "u1", SubmitInput{ExerciseID: "e1", Content: content})
	require.NoError(t, err)

	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, model.SubmissionSubmitted, sub.Status)
	assert.JSONEq(t, `{"score":2,"total":3,"answers":[1,0]}`, string(sub.Content))

	published := pub.Events()
	require.Len(t, published, 1)
	payload, ok := published[0].Data.(events.SubmissionCreated)
	require.True(t, ok)
	assert.Equal(t, "sub-1", payload.SubmissionID)
	require.NotNil(t, payload.Score)
	assert.Equal(t, 2, *payload.Score)
	assert.Equal(t, 3, *payload.Total)
}

func TestSubmitUnknownExercise(t *testing.T) {
	exercises := new(mockExerciseStore)
	exercises.On("FindByID", "e404").Return(nil, gorm.ErrRecordNotFound)
	svc := NewSubmissionService(exercises, new(mockSubmissionStore), nil)

	_, err := svc.Submit(context.Background(), "u1", SubmitInput{ExerciseID: "e404", Content: map[string]any{}})
	assert.ErrorIs(t, err, util.ErrExerciseNotFound)
}

func TestGradeAddsFeedback(t *testing.T) {
	subs := new(mockSubmissionStore)
	graded := &model.Submission{Status: model.SubmissionGraded}
	subs.On("FindByID", "s1").Return(graded, nil)
	subs.On("AddFeedback", mock.MatchedBy(func(f *model.Feedback) bool {
		return f.SubmissionID == "s1" && f.TeacherID == "t1" && *f.Score == 9
	})).Return(nil)

	pub := events.NewMemoryPublisher()
	svc := NewSubmissionService(new(mockExerciseStore), subs, pub)

	score := 9
	got, err := svc.Grade(context.Background(), "s1", "t1", GradeInput{Content: "Nice", Score: &score})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, got.Status)
	require.Len(t, pub.Events(), 1)
	assert.Equal(t, events.EventSubmissionGraded, pub.Events()[0].Type)
}

func TestBuildSubmissionWorkbook(t *testing.T) {
	exercise := &model.Exercise{Title: "Animals", Type: model.ExerciseMatching}
	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	rows := []repository.SubmissionRow{
		{
			Submission: model.Submission{
				UUIDBase: model.UUIDBase{ID: "s1", CreatedAt: created},
				Content:  datatypes.JSON(`{"score":2,"total":4,"matches":[0,1]}`),
				Status:   model.SubmissionSubmitted,
			},
			FullName: "Ana",
			Email:    "ana@example.com",
		},
		{
			Submission: model.Submission{
				UUIDBase: model.UUIDBase{ID: "s2", CreatedAt: created},
				Content:  datatypes.JSON(`{}`),
				Status:   model.SubmissionGraded,
			},
			FullName: "Bo",
		},
	}

	f, err := BuildSubmissionWorkbook(exercise, rows)
	require.NoError(t, err)
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(submissionSheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Animals", cell("A1"))
	assert.Equal(t, "matching", cell("B1"))
	assert.Equal(t, "Submission ID", cell("A2"))
	assert.Equal(t, "Content", cell("H2"))

	assert.Equal(t, "s1", cell("A3"))
	assert.Equal(t, "Ana", cell("B3"))
	assert.Equal(t, "2", cell("E3"))
	assert.Equal(t, "4", cell("F3"))
	assert.Equal(t, "2026-03-01 10:30:00", cell("G3"))

	assert.Equal(t, "graded", cell("D4"))
	assert.Equal(t, "", cell("E4"))

	assert.Equal(t, []string{submissionSheet}, f.GetSheetList())
}
