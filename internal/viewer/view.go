package viewer

import (
	"bytes"
	"html/template"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/avatar"
	"learnhub_backend/internal/exercise"
)

type TabView struct {
	Name     Tab    `json:"name"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	Disabled bool   `json:"disabled"`
}

type DocumentView struct {
	Filename    string                `json:"filename"`
	MimeType    string                `json:"mime_type"`
	Annotatable bool                  `json:"annotatable"`
	URL         string                `json:"url"`
	Layer       *annotation.LayerView `json:"layer,omitempty"`
}

func (d DocumentView) IsPDF() bool {
	return d.MimeType == "application/pdf"
}

// PageView 是课时页面的完整状态
type PageView struct {
	SessionID   string          `json:"session_id"`
	LessonID    string          `json:"lesson_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Tab         Tab             `json:"tab"`
	Tabs        []TabView       `json:"tabs"`
	Video       VideoState      `json:"video"`
	Avatar      avatar.Snapshot `json:"avatar"`
	Exercise    *exercise.View  `json:"exercise,omitempty"`
	Document    *DocumentView   `json:"document,omitempty"`
	Tip         string          `json:"tip"`
}

// DocumentURL 由控制器设置，指向会话文档内容
func DocumentURL(sessionID string) string {
	return "/viewer/sessions/" + sessionID + "/document"
}

func (s *Session) View() PageView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := PageView{
		SessionID: s.ID,
		LessonID:  s.LessonID,
		Title:     s.lesson.Title,
		Tab:       s.tab,
		Video:     s.video,
		Avatar:    s.avatar.Snapshot(),
		Tip:       helpTips[s.tab],
	}
	if s.lesson.Description != nil {
		v.Description = *s.lesson.Description
	}
	for _, t := range tabOrder {
		v.Tabs = append(v.Tabs, TabView{
			Name:     t,
			Label:    tabLabels[t],
			Active:   t == s.tab,
			Disabled: t == TabExercise && s.engine == nil,
		})
	}
	if s.engine != nil {
		ev := s.engine.Render()
		v.Exercise = &ev
	}
	if s.document != nil {
		d := &DocumentView{
			Filename:    s.document.Filename,
			MimeType:    s.document.MimeType,
			Annotatable: s.document.Annotatable,
			URL:         DocumentURL(s.ID),
		}
		if s.layer != nil {
			lv := s.layer.Snapshot()
			d.Layer = &lv
		}
		v.Document = d
	}
	return v
}

var pageTemplate = template.Must(template.New("lesson").Parse(`<div class="lesson" data-session-id="{{.View.SessionID}}" data-lesson-id="{{.View.LessonID}}">
<div class="lesson-header"><h2 id="lessonTitle">{{.View.Title}}</h2>{{with .View.Description}}<p class="lesson-description">{{.}}</p>{{end}}</div>
<div class="avatar-container"><img id="avatarImage" class="avatar" data-state="{{.View.Avatar.State}}" src="{{.View.Avatar.Frame}}" alt="avatar">
<div class="avatar-controls"><button type="button" id="repeatBtn" class="btn btn-outline">Repeat</button><button type="button" id="helpBtn" class="btn btn-outline">Help</button></div></div>
<ul class="lesson-tabs">
{{- range .View.Tabs}}
<li class="tab{{if .Active}} active{{end}}{{if .Disabled}} disabled{{end}}" data-tab="{{.Name}}">{{.Label}}</li>
{{- end}}
</ul>
<div class="tab-content{{if eq .View.Tab "video"}} active{{end}}" id="video">
{{- if .View.Video.Src}}
<video id="lessonVideo" controls src="{{.View.Video.Src}}"></video>
<div class="progress-bar"><div class="progress-fill" style="width: {{.View.Video.Percent}}%"></div></div>
{{- else}}
<p class="empty">This lesson has no video.</p>
{{- end}}
</div>
<div class="tab-content{{if eq .View.Tab "exercise"}} active{{end}}" id="exercise">
{{- if .Exercise}}{{.Exercise}}{{else}}<p class="empty">No exercises for this lesson.</p>{{end}}
</div>
<div class="tab-content{{if eq .View.Tab "document"}} active{{end}}" id="document">
<input type="file" id="documentUpload" accept="image/*,application/pdf">
{{- with .View.Document}}
<div class="document-container">
{{- if .Annotatable}}
{{- if .IsPDF}}<embed class="document" src="{{.URL}}" type="application/pdf">{{else}}<img class="document" src="{{.URL}}" alt="{{.Filename}}">{{end}}
{{$.Layer}}
{{- else}}
<div class="unsupported-file"><h3>Unsupported File Type</h3><p>{{.Filename}} cannot be annotated.</p></div>
{{- end}}
</div>
{{- end}}
</div>
</div>
`))

// HTML 渲染整页，练习和批注层使用各自的模板
func (v PageView) HTML() (template.HTML, error) {
	data := struct {
		View     PageView
		Exercise template.HTML
		Layer    template.HTML
	}{View: v}

	if v.Exercise != nil {
		h, err := v.Exercise.HTML()
		if err != nil {
			return "", err
		}
		data.Exercise = h
	}
	if v.Document != nil && v.Document.Layer != nil {
		h, err := v.Document.Layer.HTML()
		if err != nil {
			return "", err
		}
		data.Layer = h
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
