package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UploadController struct {
	UploadService *service.UploadService
}

func NewUploadController(uploadService *service.UploadService) *UploadController {
	return &UploadController{UploadService: uploadService}
}

// Upload godoc
// @Summary 上传文件
// @Description 支持图片、PDF 和视频，视频会读取时长等元数据
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "文件"
// @Param lesson_id formData string false "关联课时ID"
// @Success 201 {object} model.Upload
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/uploads [post]
func (c *UploadController) Upload(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	upload, err := c.UploadService.Upload(ctx.Request.Context(), service.UploadInput{
		File:     file,
		LessonID: ctx.PostForm("lesson_id"),
		UserID:   user.UserID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, upload)
}
