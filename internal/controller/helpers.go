package controller

import (
	"errors"
	"net/http"

	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// notFoundErrors 统一映射为 404
var notFoundErrors = []error{
	util.ErrUserNotFound,
	util.ErrCourseNotFound,
	util.ErrLessonNotFound,
	util.ErrExerciseNotFound,
	util.ErrSubmissionNotFound,
}

// respondError 将服务层错误转换为 HTTP 响应
func respondError(ctx *gin.Context, err error) {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			util.Error(ctx, http.StatusNotFound, target.Error())
			return
		}
	}
	switch {
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrInvalidStatus), errors.Is(err, util.ErrUnsupportedFile):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
