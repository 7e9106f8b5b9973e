package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/apiclient"
	"learnhub_backend/internal/exercise"
	"learnhub_backend/internal/util"
	"learnhub_backend/internal/viewer"

	"github.com/gin-gonic/gin"
)

// APIFactory 为每个会话创建携带用户令牌的 API 客户端
type APIFactory func(token string) viewer.API

type ViewerController struct {
	Registry *viewer.Registry
	NewAPI   APIFactory
	WS       viewer.WSConfig

	mu      sync.RWMutex
	options []viewer.Option
}

func NewViewerController(registry *viewer.Registry, newAPI APIFactory, ws viewer.WSConfig, opts ...viewer.Option) *ViewerController {
	return &ViewerController{Registry: registry, NewAPI: newAPI, WS: ws, options: opts}
}

// SetOptions 替换新会话使用的选项，已打开的会话不受影响
func (c *ViewerController) SetOptions(opts ...viewer.Option) {
	c.mu.Lock()
	c.options = opts
	c.mu.Unlock()
}

type OpenSessionRequest struct {
	LessonID string `json:"lesson_id" form:"lesson_id"`
}

type TabRequest struct {
	Tab viewer.Tab `json:"tab" binding:"required"`
}

type VideoRequest struct {
	Event       viewer.VideoEvent `json:"event" binding:"required"`
	CurrentTime float64           `json:"current_time"`
	Duration    float64           `json:"duration"`
}

type SubmitResponse struct {
	Result exercise.Result `json:"result"`
	View   exercise.View   `json:"view"`
}

type AnnotationResponse struct {
	Response annotation.Response  `json:"response"`
	Layer    annotation.LayerView `json:"layer"`
}

// viewerError 将会话错误转换为响应，需要跳转时带上 redirect
func viewerError(ctx *gin.Context, err error) {
	redirect := viewer.RedirectFor(err)
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		util.ErrorRedirect(ctx, http.StatusUnauthorized, "Unauthorized", redirect)
	case errors.Is(err, viewer.ErrLessonIDMissing):
		util.ErrorRedirect(ctx, http.StatusBadRequest, err.Error(), redirect)
	case errors.Is(err, viewer.ErrLessonLoad):
		util.ErrorRedirect(ctx, http.StatusBadGateway, err.Error(), redirect)
	case errors.Is(err, viewer.ErrSessionClosed):
		util.Error(ctx, http.StatusGone, err.Error())
	case errors.Is(err, viewer.ErrUnknownTab),
		errors.Is(err, viewer.ErrNoExercise),
		errors.Is(err, viewer.ErrNoDocument),
		errors.Is(err, exercise.ErrUnsupportedType),
		errors.Is(err, util.ErrUnsupportedFile):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, viewer.ErrTabDisabled), errors.Is(err, exercise.ErrAlreadySubmitted):
		util.Error(ctx, http.StatusConflict, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// session 取出属于当前用户的会话，不存在或不属于该用户时返回 404
func (c *ViewerController) session(ctx *gin.Context) (*viewer.Session, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	s, ok := c.Registry.Get(ctx.Param("id"))
	if !ok || s.OwnerID != user.UserID {
		util.NotFound(ctx)
		return nil, false
	}
	return s, true
}

func (c *ViewerController) render(ctx *gin.Context, status int, s *viewer.Session) {
	view := s.View()
	if ctx.Query("format") != "html" {
		ctx.JSON(status, view)
		return
	}
	html, err := view.HTML()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Data(status, "text/html; charset=utf-8", []byte(html))
}

// OpenSession godoc
// @Summary 打开课时页面
// @Description 加载课时与练习并创建查看器会话，同时将进度标记为 in_progress
// @Tags 课时页面
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body OpenSessionRequest true "课时ID"
// @Param format query string false "html 返回页面片段"
// @Success 201 {object} viewer.PageView
// @Failure 400 {object} util.Response "缺少课时ID，redirect 指向 /dashboard"
// @Failure 502 {object} util.Response "课时加载失败，redirect 指向 /dashboard"
// @Router /viewer/sessions [post]
func (c *ViewerController) OpenSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req OpenSessionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBind(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	if req.LessonID == "" {
		req.LessonID = ctx.Query("id")
	}

	api := c.NewAPI(util.GetTokenFromContext(ctx))
	c.mu.RLock()
	opts := append([]viewer.Option{viewer.WithOwner(user.UserID)}, c.options...)
	c.mu.RUnlock()
	s, err := c.Registry.Create(ctx.Request.Context(), api, req.LessonID, opts...)
	if err != nil {
		viewerError(ctx, err)
		return
	}
	c.render(ctx, http.StatusCreated, s)
}

// GetSession godoc
// @Summary 课时页面状态
// @Tags 课时页面
// @Produce json
// @Produce html
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param format query string false "html 返回页面片段"
// @Success 200 {object} viewer.PageView
// @Failure 404 {object} util.Response
// @Router /viewer/sessions/{id} [get]
func (c *ViewerController) GetSession(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.render(ctx, http.StatusOK, s)
}

// CloseSession godoc
// @Summary 关闭课时页面
// @Tags 课时页面
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 204
// @Router /viewer/sessions/{id} [delete]
func (c *ViewerController) CloseSession(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	c.Registry.Remove(s.ID)
	ctx.Status(http.StatusNoContent)
}

// SelectTab godoc
// @Summary 切换标签页
// @Tags 课时页面
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param body body TabRequest true "video / exercise / document"
// @Success 200 {object} viewer.PageView
// @Failure 409 {object} util.Response "练习未加载"
// @Router /viewer/sessions/{id}/tab [post]
func (c *ViewerController) SelectTab(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req TabRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := s.SelectTab(req.Tab); err != nil {
		viewerError(ctx, err)
		return
	}
	c.render(ctx, http.StatusOK, s)
}

// Video godoc
// @Summary 视频播放事件
// @Description play / pause / ended / timeupdate
// @Tags 课时页面
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param body body VideoRequest true "播放事件"
// @Success 200 {object} viewer.VideoState
// @Router /viewer/sessions/{id}/video [post]
func (c *ViewerController) Video(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var req VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	state, err := s.HandleVideo(ctx.Request.Context(), req.Event, req.CurrentTime, req.Duration)
	if err != nil {
		if errors.Is(err, viewer.ErrSessionClosed) {
			viewerError(ctx, err)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, state)
}

// Repeat godoc
// @Summary 重复
// @Description 视频页从头播放，练习页清空作答
// @Tags 课时页面
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} viewer.PageView
// @Router /viewer/sessions/{id}/repeat [post]
func (c *ViewerController) Repeat(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := s.Repeat(); err != nil {
		viewerError(ctx, err)
		return
	}
	c.render(ctx, http.StatusOK, s)
}

// Help godoc
// @Summary 获取提示
// @Tags 课时页面
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]string
// @Router /viewer/sessions/{id}/help [post]
func (c *ViewerController) Help(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	tip, err := s.Help()
	if err != nil {
		viewerError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tip": tip})
}

// SubmitExercise godoc
// @Summary 提交当前练习
// @Description 表单字段 q{i} / blank_{i} / match_{i}，也可提交 JSON 作答
// @Tags 课时页面
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} SubmitResponse
// @Failure 409 {object} util.Response "已提交"
// @Router /viewer/sessions/{id}/exercise/submit [post]
func (c *ViewerController) SubmitExercise(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	var in exercise.Input
	if ctx.ContentType() == gin.MIMEJSON {
		if err := ctx.ShouldBindJSON(&in); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	} else {
		if err := ctx.Request.ParseForm(); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		in = exercise.InputFromForm(ctx.Request.PostForm)
	}

	res, err := s.SubmitExercise(ctx.Request.Context(), in)
	if err != nil {
		viewerError(ctx, err)
		return
	}
	util.Success(ctx, SubmitResponse{Result: res, View: *s.View().Exercise})
}

// RetryExercise godoc
// @Summary 重新作答
// @Tags 课时页面
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} exercise.View
// @Router /viewer/sessions/{id}/exercise/retry [post]
func (c *ViewerController) RetryExercise(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	view, err := s.RetryExercise()
	if err != nil {
		viewerError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

func formFloat(ctx *gin.Context, key string) float64 {
	f, _ := strconv.ParseFloat(ctx.PostForm(key), 64)
	return f
}

// UploadDocument godoc
// @Summary 打开文档
// @Description 图片和 PDF 可以批注，其他类型显示占位提示。文件同时转发到上传接口
// @Tags 课时页面
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param file formData file true "文档"
// @Param width formData number false "文档显示宽度"
// @Param height formData number false "文档显示高度"
// @Success 200 {object} viewer.Document
// @Router /viewer/sessions/{id}/document [post]
func (c *ViewerController) UploadDocument(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	box := annotation.DocumentBox{
		OffsetTop:  formFloat(ctx, "offset_top"),
		OffsetLeft: formFloat(ctx, "offset_left"),
		Width:      formFloat(ctx, "width"),
		Height:     formFloat(ctx, "height"),
	}
	doc, err := s.OpenDocument(ctx.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), data, box)
	if err != nil {
		viewerError(ctx, err)
		return
	}
	util.Success(ctx, doc)
}

// GetDocument godoc
// @Summary 当前文档内容
// @Tags 课时页面
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {file} file
// @Failure 404 {object} util.Response
// @Router /viewer/sessions/{id}/document [get]
func (c *ViewerController) GetDocument(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	doc, data, ok := s.DocumentData()
	if !ok {
		util.NotFound(ctx)
		return
	}
	ctx.Data(http.StatusOK, doc.MimeType, data)
}

// Annotate godoc
// @Summary 批注事件
// @Description 与 WebSocket 通道等价的 HTTP 入口
// @Tags 课时页面
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param body body annotation.Event true "界面事件"
// @Success 200 {object} AnnotationResponse
// @Router /viewer/sessions/{id}/annotations [post]
func (c *ViewerController) Annotate(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	var ev annotation.Event
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	resp, layer, err := s.Annotate(ev)
	if err != nil {
		viewerError(ctx, err)
		return
	}
	util.Success(ctx, AnnotationResponse{Response: resp, Layer: layer})
}

// HandleWS godoc
// @Summary 课时页面 WebSocket
// @Description 推送头像状态，接收批注、视频与标签事件
// @Tags 课时页面
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /viewer/sessions/{id}/ws [get]
func (c *ViewerController) HandleWS(ctx *gin.Context) {
	s, ok := c.session(ctx)
	if !ok {
		return
	}
	viewer.ServeWS(s, ctx.Writer, ctx.Request, c.WS)
}
