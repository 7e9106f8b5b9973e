package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/apiclient"
	"learnhub_backend/internal/avatar"
	"learnhub_backend/internal/exercise"
	"learnhub_backend/pkg/monitoring"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressCall struct {
	LessonID string
	Status   apiclient.ProgressStatus
}

type uploadCall struct {
	Filename string
	LessonID string
	Body     string
}

type fakeAPI struct {
	mu sync.Mutex

	lesson       *apiclient.Lesson
	lessonErr    error
	exercises    []exercise.Exercise
	exercisesErr error

	progress []progressCall
	uploads  []uploadCall
	reports  []map[string]any
}

func (f *fakeAPI) GetLesson(ctx context.Context, id string) (*apiclient.Lesson, error) {
	if f.lessonErr != nil {
		return nil, f.lessonErr
	}
	return f.lesson, nil
}

func (f *fakeAPI) ListLessonExercises(ctx context.Context, lessonID string) ([]exercise.Exercise, error) {
	return f.exercises, f.exercisesErr
}

func (f *fakeAPI) UpdateProgress(ctx context.Context, lessonID string, status apiclient.ProgressStatus) (*apiclient.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progressCall{LessonID: lessonID, Status: status})
	return &apiclient.Progress{LessonID: lessonID, Status: status}, nil
}

func (f *fakeAPI) Upload(ctx context.Context, filename string, r io.Reader, lessonID string) (*apiclient.Upload, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploadCall{Filename: filename, LessonID: lessonID, Body: string(b)})
	return &apiclient.Upload{}, nil
}

func (f *fakeAPI) ReportResult(ctx context.Context, exerciseID string, content map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, content)
	return nil
}

func (f *fakeAPI) progressCalls() []progressCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progressCall(nil), f.progress...)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newFakeAPI(t *testing.T) *fakeAPI {
	desc := "Greetings and <b>basics</b>"
	return &fakeAPI{
		lesson: &apiclient.Lesson{
			ID:          "lesson-1",
			Title:       "Saying hello",
			Description: &desc,
			Content:     mustJSON(t, map[string]string{"video_url": "https://cdn.example.com/hello.mp4"}),
		},
		exercises: []exercise.Exercise{{
			ID:    "ex-1",
			Title: "Greetings quiz",
			Type:  exercise.Quiz,
			Content: mustJSON(t, exercise.QuizContent{Questions: []exercise.QuizQuestion{
				{Text: "Hello in French?", Options: []string{"Hola", "Bonjour"}, CorrectIndex: 1},
				{Text: "Hello in Spanish?", Options: []string{"Hola", "Ciao"}, CorrectIndex: 0},
			}}),
		}},
	}
}

func openSession(t *testing.T, api *fakeAPI, opts ...Option) *Session {
	t.Helper()
	s, err := Open(context.Background(), "sess-1", api, "lesson-1", opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpen_LoadsLessonAndMarksInProgress(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)
	s.Wait()

	assert.Equal(t, "Saying hello", s.Lesson().Title)
	assert.True(t, s.ExerciseAvailable())
	assert.Equal(t, TabVideo, s.Tab())
	assert.Equal(t, avatar.Idle, s.Avatar().State())
	assert.Equal(t, []progressCall{{LessonID: "lesson-1", Status: apiclient.InProgress}}, api.progressCalls())

	v := s.View()
	assert.Equal(t, "https://cdn.example.com/hello.mp4", v.Video.Src)
	require.Len(t, v.Tabs, 3)
	assert.True(t, v.Tabs[0].Active)
	assert.False(t, v.Tabs[1].Disabled)
}

func TestOpen_Errors(t *testing.T) {
	api := newFakeAPI(t)

	_, err := Open(context.Background(), "s", api, "  ")
	assert.ErrorIs(t, err, ErrLessonIDMissing)
	assert.Equal(t, "/dashboard", RedirectFor(err))

	api.lessonErr = errors.New("boom")
	_, err = Open(context.Background(), "s", api, "lesson-1")
	assert.ErrorIs(t, err, ErrLessonLoad)
	assert.Equal(t, "/dashboard", RedirectFor(err))

	api.lessonErr = apiclient.ErrUnauthorized
	_, err = Open(context.Background(), "s", api, "lesson-1")
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, "/", RedirectFor(err))

	assert.Empty(t, api.progressCalls())
}

func TestOpen_ExerciseFailureKeepsLesson(t *testing.T) {
	api := newFakeAPI(t)
	api.exercisesErr = errors.New("exercises unavailable")
	s := openSession(t, api)

	assert.False(t, s.ExerciseAvailable())
	assert.ErrorIs(t, s.SelectTab(TabExercise), ErrTabDisabled)
	_, err := s.SubmitExercise(context.Background(), exercise.Input{})
	assert.ErrorIs(t, err, ErrNoExercise)

	v := s.View()
	assert.True(t, v.Tabs[1].Disabled)
	assert.Nil(t, v.Exercise)
}

func TestSelectTab_AvatarMapping(t *testing.T) {
	s := openSession(t, newFakeAPI(t))

	require.NoError(t, s.SelectTab(TabExercise))
	assert.Equal(t, avatar.Helping, s.Avatar().State())

	require.NoError(t, s.SelectTab(TabDocument))
	assert.Equal(t, avatar.Document, s.Avatar().State())

	require.NoError(t, s.SelectTab(TabVideo))
	assert.Equal(t, avatar.Idle, s.Avatar().State())

	_, err := s.HandleVideo(context.Background(), VideoPlay, 0, 0)
	require.NoError(t, err)
	require.NoError(t, s.SelectTab(TabExercise))
	require.NoError(t, s.SelectTab(TabVideo))
	assert.Equal(t, avatar.Listening, s.Avatar().State())

	assert.ErrorIs(t, s.SelectTab("quiz"), ErrUnknownTab)
}

func TestHandleVideo(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)
	ctx := context.Background()

	st, err := s.HandleVideo(ctx, VideoPlay, 0, 0)
	require.NoError(t, err)
	assert.True(t, st.Playing)
	assert.Equal(t, avatar.Listening, s.Avatar().State())

	st, err = s.HandleVideo(ctx, VideoTimeUpdate, 33.4, 100)
	require.NoError(t, err)
	assert.Equal(t, 33, st.Percent)

	st, err = s.HandleVideo(ctx, VideoPause, 40, 100)
	require.NoError(t, err)
	assert.False(t, st.Playing)
	assert.Equal(t, avatar.Idle, s.Avatar().State())

	st, err = s.HandleVideo(ctx, VideoEnded, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Percent)
	assert.Equal(t, avatar.Completion, s.Avatar().State())
	assert.Equal(t, TabExercise, s.Tab())

	s.Wait()
	calls := api.progressCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, apiclient.Completed, calls[1].Status)

	_, err = s.HandleVideo(ctx, "seek", 0, 0)
	assert.Error(t, err)
}

func TestHandleVideo_EndedWithoutExerciseStaysOnVideo(t *testing.T) {
	api := newFakeAPI(t)
	api.exercises = nil
	s := openSession(t, api)

	_, err := s.HandleVideo(context.Background(), VideoEnded, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, TabVideo, s.Tab())
}

func TestSubmitExercise_ReactsAndReports(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)
	require.NoError(t, s.SelectTab(TabExercise))

	in := exercise.InputFromForm(url.Values{"q0": {"1"}, "q1": {"1"}})
	res, err := s.SubmitExercise(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, exercise.TierGood, res.Tier)
	assert.Equal(t, avatar.Good, s.Avatar().State())

	s.Wait()
	api.mu.Lock()
	require.Len(t, api.reports, 1)
	assert.Equal(t, 1, api.reports[0]["score"])
	api.mu.Unlock()

	_, err = s.SubmitExercise(context.Background(), in)
	assert.ErrorIs(t, err, exercise.ErrAlreadySubmitted)

	view, err := s.RetryExercise()
	require.NoError(t, err)
	assert.False(t, view.Submitted)
	assert.Nil(t, view.Result)
}

func TestRepeatAndHelp(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	ctx := context.Background()

	_, err := s.HandleVideo(ctx, VideoTimeUpdate, 50, 100)
	require.NoError(t, err)
	require.NoError(t, s.Repeat())
	v := s.View()
	assert.Zero(t, v.Video.CurrentTime)
	assert.True(t, v.Video.Playing)
	assert.Equal(t, avatar.Helping, s.Avatar().State())

	tip, err := s.Help()
	require.NoError(t, err)
	assert.Equal(t, "Tip: Watch the video carefully and listen to the instructions.", tip)

	require.NoError(t, s.SelectTab(TabExercise))
	_, err = s.SubmitExercise(ctx, exercise.Input{Choices: map[int]int{0: 1, 1: 0}})
	require.NoError(t, err)
	require.NoError(t, s.Repeat())
	assert.Nil(t, s.View().Exercise.Result)

	tip, err = s.Help()
	require.NoError(t, err)
	assert.Equal(t, "Tip: Take your time to think about each question before answering.", tip)

	require.NoError(t, s.SelectTab(TabDocument))
	tip, err = s.Help()
	require.NoError(t, err)
	assert.Contains(t, tip, "annotation tools")
}

func TestOpenDocument_Annotatable(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)
	box := annotation.DocumentBox{Width: 400, Height: 300}

	doc, err := s.OpenDocument(context.Background(), "notes.png", "image/png", []byte("png-bytes"), box)
	require.NoError(t, err)
	assert.True(t, doc.Annotatable)
	assert.Equal(t, avatar.Document, s.Avatar().State())
	assert.Equal(t, TabDocument, s.Tab())

	resp, layer, err := s.Annotate(annotation.Event{Type: annotation.EventTool, Tool: annotation.ToolHighlight})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Equal(t, annotation.ToolHighlight, layer.Tool)

	_, _, err = s.Annotate(annotation.Event{Type: annotation.EventPointerDown, ClientX: 50, ClientY: 50})
	require.NoError(t, err)
	_, _, err = s.Annotate(annotation.Event{Type: annotation.EventPointerMove, ClientX: 10, ClientY: 10})
	require.NoError(t, err)
	_, layer, err = s.Annotate(annotation.Event{Type: annotation.EventPointerUp})
	require.NoError(t, err)
	require.Len(t, layer.Annotations, 1)

	s.Wait()
	api.mu.Lock()
	require.Len(t, api.uploads, 1)
	assert.Equal(t, uploadCall{Filename: "notes.png", LessonID: "lesson-1", Body: "png-bytes"}, api.uploads[0])
	api.mu.Unlock()

	d, data, ok := s.DocumentData()
	require.True(t, ok)
	assert.Equal(t, "image/png", d.MimeType)
	assert.Equal(t, []byte("png-bytes"), data)

	// a new document replaces the layer and its annotations
	_, err = s.OpenDocument(context.Background(), "handout.pdf", "application/pdf", []byte("%PDF-1.4"), box)
	require.NoError(t, err)
	pv := s.View()
	require.NotNil(t, pv.Document.Layer)
	assert.Empty(t, pv.Document.Layer.Annotations)
}

func TestAnnotate_UnknownTypesShareOneSeries(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)
	_, err := s.OpenDocument(context.Background(), "notes.png", "image/png", []byte("png-bytes"), annotation.DocumentBox{Width: 400, Height: 300})
	require.NoError(t, err)

	unknown := monitoring.AnnotationEvents.WithLabelValues("unknown")
	unknownBefore := testutil.ToFloat64(unknown)
	before := testutil.CollectAndCount(monitoring.AnnotationEvents)
	for i := 0; i < 50; i++ {
		resp, _, err := s.Annotate(annotation.Event{Type: annotation.EventType(fmt.Sprintf("junk-%d", i))})
		require.NoError(t, err)
		assert.Equal(t, annotation.ErrUnknownEvent.Error(), resp.Error)
	}
	after := testutil.CollectAndCount(monitoring.AnnotationEvents)
	assert.LessOrEqual(t, after-before, 1)
	assert.Equal(t, unknownBefore+50, testutil.ToFloat64(unknown))
	s.Wait()
}

func TestOpenDocument_Unsupported(t *testing.T) {
	api := newFakeAPI(t)
	s := openSession(t, api)

	doc, err := s.OpenDocument(context.Background(), "notes.txt", "", []byte("plain text"), annotation.DocumentBox{})
	require.NoError(t, err)
	assert.False(t, doc.Annotatable)
	assert.Equal(t, "text/plain", doc.MimeType)

	_, _, err = s.Annotate(annotation.Event{Type: annotation.EventTool, Tool: annotation.ToolCircle})
	assert.ErrorIs(t, err, ErrNoDocument)

	s.Wait()
	api.mu.Lock()
	assert.Len(t, api.uploads, 1)
	api.mu.Unlock()

	html, err := s.View().HTML()
	require.NoError(t, err)
	doc2, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	require.NoError(t, err)
	assert.Equal(t, "Unsupported File Type", doc2.Find(".unsupported-file h3").Text())
	assert.Zero(t, doc2.Find(".annotation-tool").Length())
}

func TestOpenDocument_TooLarge(t *testing.T) {
	s := openSession(t, newFakeAPI(t), WithMaxDocumentBytes(4))
	_, err := s.OpenDocument(context.Background(), "big.png", "image/png", []byte("0123456789"), annotation.DocumentBox{})
	assert.Error(t, err)
}

func TestToolSwitchSetsDocumentAvatar(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	_, err := s.OpenDocument(context.Background(), "a.png", "image/png", []byte("x"), annotation.DocumentBox{})
	require.NoError(t, err)

	require.NoError(t, s.SelectTab(TabVideo))
	assert.Equal(t, avatar.Idle, s.Avatar().State())

	_, _, err = s.Annotate(annotation.Event{Type: annotation.EventTool, Tool: annotation.ToolUnderline})
	require.NoError(t, err)
	assert.Equal(t, avatar.Document, s.Avatar().State())
}

func TestPageHTML(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	_, err := s.OpenDocument(context.Background(), "a.png", "image/png", []byte("x"), annotation.DocumentBox{Width: 10, Height: 10})
	require.NoError(t, err)

	html, err := s.View().HTML()
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	require.NoError(t, err)

	assert.Equal(t, "Saying hello", doc.Find("#lessonTitle").Text())
	assert.Equal(t, "Greetings and <b>basics</b>", doc.Find(".lesson-description").Text())
	assert.Equal(t, "document", doc.Find(".lesson-tabs .active").AttrOr("data-tab", ""))
	assert.Equal(t, 1, doc.Find("#quizForm").Length())
	assert.Equal(t, 1, doc.Find(".annotation-layer").Length())
	src, _ := doc.Find("img.document").Attr("src")
	assert.Equal(t, "/viewer/sessions/sess-1/document", src)
	frame, _ := doc.Find("#avatarImage").Attr("src")
	assert.Equal(t, "assets/mascots/document_1.svg", frame)
}

func TestClosedSession(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.SelectTab(TabVideo), ErrSessionClosed)
	_, err := s.Help()
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, _, err = s.Annotate(annotation.Event{Type: annotation.EventClick})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestTransientReactionReverts(t *testing.T) {
	s := openSession(t, newFakeAPI(t), WithRevertAfter(20*time.Millisecond))
	_, err := s.HandleVideo(context.Background(), VideoEnded, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, avatar.Completion, s.Avatar().State())
	assert.Eventually(t, func() bool { return s.Avatar().State() == avatar.Idle }, time.Second, 10*time.Millisecond)
}
