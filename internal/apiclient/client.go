// Package apiclient talks to the learnhub REST API over HTTP with a bearer
// token. A 401 from any call clears the stored session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"learnhub_backend/internal/exercise"
	"learnhub_backend/pkg/tracing"

	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("unauthorized")

// APIError 非 2xx 响应，Message 与 Redirect 取自错误体
type APIError struct {
	Status   int
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsNotFound 判断错误是否为 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL        string
	http           *http.Client
	store          Store
	onUnauthorized func()
	log            *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

func WithStore(s Store) Option {
	return func(c *Client) { c.store = s }
}

// WithUnauthorizedHook 在收到 401 并清除登录态之后调用
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   NewMemoryStore(""),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() Store { return c.store }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	tracing.Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.forceLogout(req)
		return ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) forceLogout(req *http.Request) {
	c.log.Info("收到 401，清除登录态", zap.String("path", req.URL.Path))
	c.store.Clear()
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var res AuthResponse
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	c.store.Save(res.AccessToken, &res.User)
	return &res, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.postJSON(ctx, "/api/auth/register", in, &res); err != nil {
		return nil, err
	}
	c.store.Save(res.AccessToken, &res.User)
	return &res, nil
}

// Logout 通知服务端注销，无论结果如何都清除本地登录态
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.store.Token() != "" {
		err = c.postJSON(ctx, "/api/auth/logout", nil, nil)
		if err != nil && !errors.Is(err, ErrUnauthorized) {
			c.log.Warn("注销请求失败", zap.Error(err))
		}
	}
	c.store.Clear()
	return err
}

// Me 拉取当前用户并刷新本地缓存的用户信息
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/api/auth/me", &user); err != nil {
		return nil, err
	}
	c.store.Save(c.store.Token(), &user)
	return &user, nil
}

func (c *Client) GetLesson(ctx context.Context, id string) (*Lesson, error) {
	var lesson Lesson
	if err := c.getJSON(ctx, "/api/lessons/"+url.PathEscape(id), &lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessonExercises 按服务端顺序返回课时下的练习
func (c *Client) ListLessonExercises(ctx context.Context, lessonID string) ([]exercise.Exercise, error) {
	var list []exercise.Exercise
	err := c.getJSON(ctx, "/api/exercises/lesson/"+url.PathEscape(lessonID), &list)
	return list, err
}

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := c.getJSON(ctx, "/api/courses", &courses)
	return courses, err
}

func (c *Client) ListUserProgress(ctx context.Context) ([]Progress, error) {
	var list []Progress
	err := c.getJSON(ctx, "/api/progress/user", &list)
	return list, err
}

func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.getJSON(ctx, "/api/dashboard/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) SubmitExercise(ctx context.Context, exerciseID string, content map[string]any) (*Submission, error) {
	var sub Submission
	err := c.postJSON(ctx, "/api/exercises/submissions", map[string]any{
		"exercise_id": exerciseID,
		"content":     content,
	}, &sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReportResult 供练习引擎异步上报成绩
func (c *Client) ReportResult(ctx context.Context, exerciseID string, content map[string]any) error {
	_, err := c.SubmitExercise(ctx, exerciseID, content)
	return err
}

func (c *Client) UpdateProgress(ctx context.Context, lessonID string, status ProgressStatus) (*Progress, error) {
	var p Progress
	err := c.postJSON(ctx, "/api/progress", map[string]string{
		"lesson_id": lessonID,
		"status":    string(status),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upload 以 multipart 表单上传文件，lessonID 可为空
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, lessonID string) (*Upload, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if lessonID != "" {
		if err := w.WriteField("lesson_id", lessonID); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/uploads", &body, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var upload Upload
	if err := c.do(req, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}
