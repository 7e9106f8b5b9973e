package exercise

import (
	"bytes"
	"html/template"
)

// View is the declarative render of an exercise in its current attempt state.
// Answers are never part of the view; correctness marks only appear after
// submission.
type View struct {
	ExerciseID  string `json:"exercise_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
	Supported   bool   `json:"supported"`
	Submitted   bool   `json:"submitted"`

	Questions []QuestionView `json:"questions,omitempty"`

	Segments      []Segment `json:"segments,omitempty"`
	MissingBlanks []int     `json:"missing_blanks,omitempty"`

	Lefts   []MatchLeft   `json:"lefts,omitempty"`
	Slots   []MatchSlot   `json:"slots,omitempty"`
	Options []MatchOption `json:"options,omitempty"`

	Result *ResultView `json:"result,omitempty"`
}

func (v View) IsQuiz() bool     { return v.Supported && v.Type == Quiz }
func (v View) IsBlanks() bool   { return v.Supported && v.Type == FillInBlanks }
func (v View) IsMatching() bool { return v.Supported && v.Type == Matching }

// Controls counts the input controls a user has to fill in.
func (v View) Controls() int {
	switch {
	case v.IsQuiz():
		return len(v.Questions)
	case v.IsBlanks():
		n := 0
		for _, s := range v.Segments {
			if s.Blank != nil {
				n++
			}
		}
		return n
	case v.IsMatching():
		return len(v.Slots)
	}
	return 0
}

type QuestionView struct {
	Index       int          `json:"index"`
	Name        string       `json:"name"`
	Text        string       `json:"text"`
	Options     []OptionView `json:"options"`
	Correct     *bool        `json:"correct,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

type OptionView struct {
	Value    int    `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Segment is either literal text or a blank input.
type Segment struct {
	Text  string      `json:"text,omitempty"`
	Blank *BlankInput `json:"blank,omitempty"`
}

type BlankInput struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Hint    string `json:"hint,omitempty"`
	Value   string `json:"value,omitempty"`
	Correct *bool  `json:"correct,omitempty"`
}

type MatchLeft struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// MatchSlot is one shuffled right-hand item. Which pair it came from stays in
// the engine.
type MatchSlot struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	Right    string `json:"right"`
	Selected *int   `json:"selected,omitempty"`
	Correct  *bool  `json:"correct,omitempty"`
}

func (s MatchSlot) IsSelected(value int) bool {
	return s.Selected != nil && *s.Selected == value
}

type MatchOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type ResultView struct {
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
}

func resultMessage(score, total int) string {
	if score == total {
		return "Great job!"
	}
	return "Keep practicing!"
}

func markClass(correct *bool) string {
	switch {
	case correct == nil:
		return ""
	case *correct:
		return "correct"
	default:
		return "incorrect"
	}
}

var viewTemplate = template.Must(template.New("exercise").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"mark": markClass,
}).Parse(`<div class="exercise" data-exercise-id="{{.ExerciseID}}" data-type="{{.Type}}">
<div class="exercise-header"><h3>{{.Title}}</h3><p>{{.Description}}</p></div>
<div class="exercise-content">
{{- if .IsQuiz}}
<form id="quizForm"{{if .Submitted}} class="disabled"{{end}}>
{{- range .Questions}}{{$q := .}}
<div class="question {{mark .Correct}}"><p class="question-text">{{inc .Index}}. {{.Text}}</p><div class="options">
{{- range .Options}}
<div class="option"><input type="radio" id="{{$q.Name}}_o{{.Value}}" name="{{$q.Name}}" value="{{.Value}}"{{if .Selected}} checked{{end}}{{if $.Submitted}} disabled{{end}}><label for="{{$q.Name}}_o{{.Value}}">{{.Label}}</label></div>
{{- end}}
</div>{{if and $.Submitted .Explanation}}<p class="explanation">{{.Explanation}}</p>{{end}}</div>
{{- end}}
<button type="submit" class="btn btn-primary"{{if .Submitted}} disabled{{end}}>Submit Answers</button>
</form>
{{- else if .IsBlanks}}
<form id="fillBlanksForm"{{if .Submitted}} class="disabled"{{end}}>
<div class="fill-blanks-text">
{{- range .Segments}}{{if .Blank}}<input type="text" class="blank-input {{mark .Blank.Correct}}" name="{{.Blank.Name}}" data-index="{{.Blank.Index}}" placeholder="{{.Blank.Hint}}" value="{{.Blank.Value}}"{{if $.Submitted}} disabled{{end}}>{{else}}{{.Text}}{{end}}{{end -}}
</div>
<button type="submit" class="btn btn-primary"{{if .Submitted}} disabled{{end}}>Check Answers</button>
</form>
{{- else if .IsMatching}}
<form id="matchingForm"{{if .Submitted}} class="disabled"{{end}}>
<div class="matching-container">
<div class="matching-left">
{{- range .Lefts}}
<div class="matching-item" data-index="{{.Position}}"><span>{{.Text}}</span></div>
{{- end}}
</div>
<div class="matching-right">
{{- range .Slots}}{{$s := .}}
<div class="matching-item" data-index="{{.Slot}}"><span class="matching-right-text">{{.Right}}</span>
<select class="matching-select {{mark .Correct}}" id="{{.Name}}" name="{{.Name}}"{{if $.Submitted}} disabled{{end}}>
<option value="">Select a match</option>
{{- range $.Options}}
<option value="{{.Value}}"{{if $s.IsSelected .Value}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select></div>
{{- end}}
</div>
</div>
<button type="submit" class="btn btn-primary"{{if .Submitted}} disabled{{end}}>Check Matches</button>
</form>
{{- else}}
<p>This exercise type is not supported yet.</p>
{{- end}}
</div>
{{- with .Result}}
<div class="exercise-result"><h4>Your Score: {{.Score}}/{{.Total}}</h4><p>{{.Message}}</p><button type="button" class="btn btn-secondary" id="retryBtn">Try Again</button></div>
{{- end}}
</div>
`))

// HTML renders the view as an HTML fragment. All authored text is escaped.
func (v View) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
