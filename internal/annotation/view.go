package annotation

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
)

// LayerView is a render-ready snapshot of the layer.
type LayerView struct {
	Frame       Frame            `json:"frame"`
	Tool        Tool             `json:"tool"`
	Phase       Phase            `json:"phase"`
	Annotations []AnnotationView `json:"annotations"`
	Temp        *AnnotationView  `json:"temp,omitempty"`
}

type AnnotationView struct {
	ID        string       `json:"id,omitempty"`
	Kind      Kind         `json:"kind"`
	Class     string       `json:"class"`
	Style     template.CSS `json:"style"`
	Text      string       `json:"text,omitempty"`
	Draggable bool         `json:"draggable"`
}

// ToolButton is one entry of the annotation toolbar.
type ToolButton struct {
	Tool   Tool   `json:"tool"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

var toolbar = []ToolButton{
	{Tool: ToolText, Label: "Text"},
	{Tool: ToolHighlight, Label: "Highlight"},
	{Tool: ToolCircle, Label: "Circle"},
	{Tool: ToolUnderline, Label: "Underline"},
	{Tool: ToolClear, Label: "Clear"},
}

// Tools returns the toolbar with the active tool marked.
func (v LayerView) Tools() []ToolButton {
	out := make([]ToolButton, len(toolbar))
	for i, b := range toolbar {
		b.Active = b.Tool == v.Tool && v.Tool != ToolNone
		out[i] = b
	}
	return out
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func (f Frame) Style() template.CSS {
	return template.CSS(fmt.Sprintf("position: absolute; top: %s; left: %s; width: %s; height: %s",
		px(f.Top), px(f.Left), px(f.Width), px(f.Height)))
}

func viewOf(a Annotation, temp bool) AnnotationView {
	class := "annotation"
	if a.Kind == KindText {
		class += " text-annotation"
	}
	if temp {
		class += " temp-annotation"
	}

	style := fmt.Sprintf("position: absolute; left: %s; top: %s", px(a.Position.X), px(a.Position.Y))
	if a.Size != nil {
		style += fmt.Sprintf("; width: %s; height: %s", px(a.Size.Width), px(a.Size.Height))
	}
	switch a.Kind {
	case KindHighlight:
		style += "; background-color: rgba(255, 255, 0, 0.3)"
	case KindCircle:
		style += "; border: 2px solid red; border-radius: 50%"
	case KindUnderline:
		style += "; background-color: blue"
	}

	return AnnotationView{
		ID:        a.ID,
		Kind:      a.Kind,
		Class:     class,
		Style:     template.CSS(style),
		Text:      a.Text,
		Draggable: !temp,
	}
}

func (l *Layer) Snapshot() LayerView {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := LayerView{
		Frame:       l.frame,
		Tool:        l.tool,
		Phase:       l.phaseLocked(),
		Annotations: make([]AnnotationView, 0, len(l.annotations)),
	}
	for _, a := range l.annotations {
		v.Annotations = append(v.Annotations, viewOf(*a, false))
	}
	if l.temp != nil {
		t := viewOf(*l.temp, true)
		v.Temp = &t
	}
	return v
}

var layerTemplate = template.Must(template.New("layer").Parse(`<div class="annotation-tools">
{{- range .Tools}}
<button type="button" class="annotation-tool{{if .Active}} active{{end}}" data-tool="{{.Tool}}">{{.Label}}</button>
{{- end}}
</div>
<div class="annotation-layer" style="{{.Frame.Style}}">
{{- range .Annotations}}
<div class="{{.Class}}" data-id="{{.ID}}" style="{{.Style}}"{{if .Draggable}} draggable="true"{{end}}>{{.Text}}</div>
{{- end}}
{{- with .Temp}}
<div class="{{.Class}}" style="{{.Style}}"></div>
{{- end}}
</div>
`))

// HTML renders the toolbar and layer. Note text is escaped.
func (v LayerView) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := layerTemplate.Execute(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
