// Package viewer is the server side of the lesson page: it loads a lesson
// through the REST API and ties together video playback, tabs, the exercise
// engine, the annotation layer and the avatar for one browser session.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/apiclient"
	"learnhub_backend/internal/avatar"
	"learnhub_backend/internal/exercise"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

var (
	ErrLessonIDMissing = errors.New("lesson id is missing")
	ErrLessonLoad      = errors.New("failed to load lesson")
	ErrUnknownTab      = errors.New("unknown tab")
	ErrTabDisabled     = errors.New("tab is disabled")
	ErrNoExercise      = errors.New("no exercise loaded")
	ErrNoDocument      = errors.New("no annotatable document")
	ErrSessionClosed   = errors.New("viewer session closed")
)

const (
	dashboardPath = "/dashboard"
	loginPath     = "/"
)

// RedirectFor 返回出错后浏览器应跳转的页面，空串表示留在当前页
func RedirectFor(err error) string {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return loginPath
	case errors.Is(err, ErrLessonIDMissing), errors.Is(err, ErrLessonLoad):
		return dashboardPath
	}
	return ""
}

// API 是会话用到的 REST 接口，由 apiclient.Client 实现
type API interface {
	GetLesson(ctx context.Context, id string) (*apiclient.Lesson, error)
	ListLessonExercises(ctx context.Context, lessonID string) ([]exercise.Exercise, error)
	UpdateProgress(ctx context.Context, lessonID string, status apiclient.ProgressStatus) (*apiclient.Progress, error)
	Upload(ctx context.Context, filename string, r io.Reader, lessonID string) (*apiclient.Upload, error)
	ReportResult(ctx context.Context, exerciseID string, content map[string]any) error
}

type Tab string

const (
	TabVideo    Tab = "video"
	TabExercise Tab = "exercise"
	TabDocument Tab = "document"
)

var tabOrder = []Tab{TabVideo, TabExercise, TabDocument}

var tabLabels = map[Tab]string{
	TabVideo:    "Video",
	TabExercise: "Exercise",
	TabDocument: "Document",
}

var helpTips = map[Tab]string{
	TabVideo:    "Tip: Watch the video carefully and listen to the instructions.",
	TabExercise: "Tip: Take your time to think about each question before answering.",
	TabDocument: "Tip: You can use the annotation tools to mark important parts of the document.",
}

type VideoState struct {
	Src         string  `json:"src,omitempty"`
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Percent     int     `json:"percent"`
}

type Document struct {
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	Annotatable bool   `json:"annotatable"`
	Size        int    `json:"size"`

	data []byte
}

type Option func(*Session)

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithRevertAfter(d time.Duration) Option {
	return func(s *Session) { s.revertAfter = d }
}

func WithShuffle(fn exercise.ShuffleFunc) Option {
	return func(s *Session) { s.shuffle = fn }
}

func WithOwner(userID string) Option {
	return func(s *Session) { s.OwnerID = userID }
}

func WithMaxDocumentBytes(n int64) Option {
	return func(s *Session) { s.maxDocument = n }
}

type Session struct {
	ID       string
	LessonID string
	OwnerID  string

	mu sync.Mutex

	api       API
	lesson    *apiclient.Lesson
	exercises []exercise.Exercise
	engine    *exercise.Engine
	avatar    *avatar.Avatar
	layer     *annotation.Layer
	document  *Document
	tab       Tab
	video     VideoState

	lastSeen time.Time
	closed   bool
	tasks    sync.WaitGroup
	conns    map[*Conn]struct{}

	revertAfter time.Duration
	maxDocument int64
	shuffle     exercise.ShuffleFunc
	log         *zap.Logger
}

// Open 加载课时与练习并建立会话。课时加载成功后异步上报 in_progress
func Open(ctx context.Context, id string, api API, lessonID string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(lessonID) == "" {
		return nil, ErrLessonIDMissing
	}

	s := &Session{
		ID:       id,
		LessonID: lessonID,
		api:      api,
		tab:      TabVideo,
		lastSeen: time.Now(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", id), zap.String("lessonID", lessonID))

	lesson, err := api.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return nil, err
		}
		s.log.Warn("加载课时失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLessonLoad, err)
	}
	s.lesson = lesson
	s.video.Src = lesson.VideoURL()
	s.avatar = avatar.New(avatar.WithRevertAfter(s.revertAfter))

	s.loadExercises(ctx)
	s.updateProgress(ctx, apiclient.InProgress)
	return s, nil
}

func (s *Session) loadExercises(ctx context.Context) {
	list, err := s.api.ListLessonExercises(ctx, s.LessonID)
	if err != nil {
		s.log.Warn("加载练习失败", zap.Error(err))
		return
	}
	s.exercises = list
	if len(list) == 0 {
		return
	}

	opts := []exercise.Option{
		exercise.WithReporter(s.api),
		exercise.WithReactions(exercise.ReactionFunc(func(t exercise.Tier) {
			s.avatar.Set(avatar.State(t))
		})),
		exercise.WithLogger(s.log),
	}
	if s.shuffle != nil {
		opts = append(opts, exercise.WithShuffle(s.shuffle))
	}
	engine, err := exercise.NewEngine(list[0], opts...)
	if err != nil {
		s.log.Warn("练习内容无效", zap.String("exerciseID", list[0].ID), zap.Error(err))
		return
	}
	s.engine = engine
}

// goAsync 执行不阻塞调用方的网络请求，失败只记录日志
func (s *Session) goAsync(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := fn(ctx); err != nil {
			s.log.Warn(name+" failed", zap.Error(err))
		}
	}()
}

func (s *Session) updateProgress(ctx context.Context, status apiclient.ProgressStatus) {
	s.goAsync(ctx, "update progress", func(ctx context.Context) error {
		_, err := s.api.UpdateProgress(ctx, s.LessonID, status)
		return err
	})
}

// Wait 等待所有后台请求（进度、上传、成绩上报）完成
func (s *Session) Wait() {
	s.tasks.Wait()
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine != nil {
		engine.Wait()
	}
}

func (s *Session) touchLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastSeen = time.Now()
	return nil
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) Lesson() apiclient.Lesson {
	return *s.lesson
}

func (s *Session) Avatar() *avatar.Avatar {
	return s.avatar
}

func (s *Session) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *Session) ExerciseAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil
}

// SelectTab 切换标签页并按标签更新头像状态
func (s *Session) SelectTab(tab Tab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return err
	}
	if _, ok := tabLabels[tab]; !ok {
		return ErrUnknownTab
	}
	if tab == TabExercise && s.engine == nil {
		return ErrTabDisabled
	}
	s.tab = tab

	switch tab {
	case TabVideo:
		if s.video.Playing {
			s.avatar.Set(avatar.Listening)
		} else {
			s.avatar.Set(avatar.Idle)
		}
	case TabExercise:
		s.avatar.Set(avatar.Helping)
	case TabDocument:
		s.avatar.Set(avatar.Document)
	}
	return nil
}

type VideoEvent string

const (
	VideoPlay       VideoEvent = "play"
	VideoPause      VideoEvent = "pause"
	VideoEnded      VideoEvent = "ended"
	VideoTimeUpdate VideoEvent = "timeupdate"
)

// HandleVideo 处理播放器事件。播放结束时切到练习页并上报 completed
func (s *Session) HandleVideo(ctx context.Context, ev VideoEvent, currentTime, duration float64) (VideoState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return VideoState{}, err
	}

	switch ev {
	case VideoPlay:
		s.video.Playing = true
		s.avatar.Set(avatar.Listening)
	case VideoPause:
		s.video.Playing = false
		s.avatar.Set(avatar.Idle)
	case VideoEnded:
		s.video.Playing = false
		s.setTimeLocked(duration, duration)
		s.avatar.Set(avatar.Completion)
		// 保留 completion 反馈，不触发练习页的 helping
		if s.engine != nil {
			s.tab = TabExercise
		}
		s.updateProgress(ctx, apiclient.Completed)
	case VideoTimeUpdate:
		s.setTimeLocked(currentTime, duration)
	default:
		return s.video, fmt.Errorf("unknown video event %q", ev)
	}
	return s.video, nil
}

func (s *Session) setTimeLocked(currentTime, duration float64) {
	if duration > 0 {
		s.video.Duration = duration
	}
	s.video.CurrentTime = currentTime
	if s.video.Duration > 0 {
		s.video.Percent = int(math.Round(currentTime / s.video.Duration * 100))
	}
}

func (s *Session) SubmitExercise(ctx context.Context, in exercise.Input) (exercise.Result, error) {
	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return exercise.Result{}, err
	}
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return exercise.Result{}, ErrNoExercise
	}
	res, err := engine.Submit(ctx, in)
	if err != nil {
		return res, err
	}
	monitoring.ExerciseSubmissions.WithLabelValues(string(engine.Exercise().Type), string(res.Tier)).Inc()
	return res, nil
}

func (s *Session) RetryExercise() (exercise.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return exercise.View{}, err
	}
	if s.engine == nil {
		return exercise.View{}, ErrNoExercise
	}
	return s.engine.Retry(), nil
}

// Repeat 视频页从头播放，练习页重置作答
func (s *Session) Repeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return err
	}

	switch s.tab {
	case TabVideo:
		s.video.CurrentTime = 0
		s.video.Percent = 0
		s.video.Playing = true
	case TabExercise:
		if s.engine != nil {
			s.engine.Retry()
		}
	}
	s.avatar.Set(avatar.Helping)
	return nil
}

// Help 返回当前标签页的提示
func (s *Session) Help() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.touchLocked(); err != nil {
		return "", err
	}
	s.avatar.Set(avatar.Helping)
	return helpTips[s.tab], nil
}

// OpenDocument 打开用户选择的文件。图片和 PDF 建立新的批注层，
// 其他类型只显示占位提示。文件总会异步转发到上传接口
func (s *Session) OpenDocument(ctx context.Context, filename, mimeType string, data []byte, box annotation.DocumentBox) (*Document, error) {
	if s.maxDocument > 0 && int64(len(data)) > s.maxDocument {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", util.ErrUnsupportedFile, s.maxDocument)
	}
	if mimeType == "" || mimeType == util.MimeOctetStream {
		mimeType = http.DetectContentType(data)
	}
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])

	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.layer != nil {
		s.layer.Close()
		s.layer = nil
	}

	doc := &Document{
		Filename:    filename,
		MimeType:    mimeType,
		Annotatable: util.IsDocument(mimeType),
		Size:        len(data),
		data:        data,
	}
	s.document = doc
	s.tab = TabDocument

	if doc.Annotatable {
		s.layer = annotation.NewLayer(box,
			annotation.WithLogger(s.log),
			annotation.WithToolHook(func(annotation.Tool) { s.avatar.Set(avatar.Document) }),
		)
		s.avatar.Set(avatar.Document)
	}
	s.mu.Unlock()

	s.goAsync(ctx, "upload document", func(ctx context.Context) error {
		_, err := s.api.Upload(ctx, filename, bytes.NewReader(data), s.LessonID)
		return err
	})

	cp := *doc
	return &cp, nil
}

// DocumentData 返回当前文档内容，用于在页面中展示
func (s *Session) DocumentData() (*Document, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == nil {
		return nil, nil, false
	}
	cp := *s.document
	return &cp, s.document.data, true
}

// annotationLabel 未知类型统一记为 unknown
func annotationLabel(t annotation.EventType) string {
	if !t.Valid() {
		return "unknown"
	}
	return string(t)
}

// Annotate 将界面事件交给当前批注层
func (s *Session) Annotate(ev annotation.Event) (annotation.Response, annotation.LayerView, error) {
	s.mu.Lock()
	if err := s.touchLocked(); err != nil {
		s.mu.Unlock()
		return annotation.Response{}, annotation.LayerView{}, err
	}
	layer := s.layer
	s.mu.Unlock()

	if layer == nil {
		return annotation.Response{}, annotation.LayerView{}, ErrNoDocument
	}
	monitoring.AnnotationEvents.WithLabelValues(annotationLabel(ev.Type)).Inc()
	resp := layer.Handle(ev)
	return resp, layer.Snapshot(), nil
}

// Close 释放批注层与头像定时器并断开长连接，不等待后台请求
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for c := range s.conns {
		c.close()
	}
	s.conns = nil
	if s.layer != nil {
		s.layer.Close()
		s.layer = nil
	}
	if s.avatar != nil {
		s.avatar.Close()
	}
}
