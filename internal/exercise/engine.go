package exercise

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type State string

const (
	Unanswered State = "unanswered"
	Submitted  State = "submitted"
)

// Tier is the reaction sent after scoring. Values match the avatar states.
type Tier string

const (
	TierSuccess       Tier = "success"
	TierGood          Tier = "good"
	TierEncouragement Tier = "encouragement"
)

func TierFor(score, total int) Tier {
	switch {
	case score == total:
		return TierSuccess
	case score*2 >= total:
		return TierGood
	default:
		return TierEncouragement
	}
}

// ReactionSink receives the reaction tier of every scored submission.
type ReactionSink interface {
	React(Tier)
}

type ReactionFunc func(Tier)

func (f ReactionFunc) React(t Tier) { f(t) }

// Reporter delivers a scored result to the submission endpoint.
type Reporter interface {
	ReportResult(ctx context.Context, exerciseID string, content map[string]any) error
}

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

type Result struct {
	Score     int            `json:"score"`
	Total     int            `json:"total"`
	Tier      Tier           `json:"tier"`
	Correct   []bool         `json:"correct"`
	DetailKey string         `json:"-"`
	Detail    map[string]any `json:"-"`
}

// SubmissionContent is the body content stored with the submission:
// {score, total, answers} or {score, total, matches}.
func (r Result) SubmissionContent() map[string]any {
	return map[string]any{
		"score":     r.Score,
		"total":     r.Total,
		r.DetailKey: r.Detail,
	}
}

type Option func(*Engine)

func WithShuffle(fn ShuffleFunc) Option {
	return func(e *Engine) { e.shuffle = fn }
}

func WithReactions(sink ReactionSink) Option {
	return func(e *Engine) { e.reactions = sink }
}

func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine holds one exercise and the attempt in progress. It is safe for
// concurrent use.
type Engine struct {
	mu sync.Mutex

	ex      Exercise
	content content
	shuffle ShuffleFunc

	// order maps a shuffled matching slot to the position of its pair
	order    []int
	segments []Segment
	missing  []int

	state  State
	input  Input
	result *Result

	reactions ReactionSink
	reporter  Reporter
	log       *zap.Logger
	reports   sync.WaitGroup
}

// NewEngine decodes the exercise content and renders a fresh attempt.
// Unsupported types are accepted and render a notice; they cannot be
// submitted.
func NewEngine(ex Exercise, opts ...Option) (*Engine, error) {
	e := &Engine{
		ex:      ex,
		shuffle: rand.Shuffle,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	c, err := decodeContent(ex)
	if err != nil {
		return nil, err
	}
	e.content = c
	if c.blanks != nil {
		e.segments, e.missing = splitTemplate(c.blanks.Text, c.blanks.Blanks)
	}
	e.reset()
	return e, nil
}

func (e *Engine) reset() {
	e.state = Unanswered
	e.input = Input{}
	e.result = nil
	if e.content.matching != nil {
		n := len(e.content.matching.Pairs)
		e.order = make([]int, n)
		for i := range e.order {
			e.order[i] = i
		}
		e.shuffle(n, func(i, j int) { e.order[i], e.order[j] = e.order[j], e.order[i] })
	}
}

func (e *Engine) Exercise() Exercise {
	return e.ex
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return Result{}, false
	}
	return *e.result, true
}

// Render returns the view of the current attempt.
func (e *Engine) Render() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderLocked()
}

// Retry discards the attempt and renders a fresh one. Matching exercises are
// shuffled again.
func (e *Engine) Retry() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
	return e.renderLocked()
}

// Submit scores in, sends the reaction and reports the result without waiting
// for the report to finish. Report failures are only logged.
func (e *Engine) Submit(ctx context.Context, in Input) (Result, error) {
	e.mu.Lock()
	if !e.ex.Type.Supported() {
		e.mu.Unlock()
		return Result{}, ErrUnsupportedType
	}
	if e.state == Submitted {
		e.mu.Unlock()
		return Result{}, ErrAlreadySubmitted
	}

	res := e.score(in)
	e.input = in
	e.result = &res
	e.state = Submitted
	e.mu.Unlock()

	if e.reactions != nil {
		e.reactions.React(res.Tier)
	}
	if e.reporter != nil {
		e.report(context.WithoutCancel(ctx), res)
	}
	return res, nil
}

func (e *Engine) report(ctx context.Context, res Result) {
	e.reports.Add(1)
	go func() {
		defer e.reports.Done()
		if err := e.reporter.ReportResult(ctx, e.ex.ID, res.SubmissionContent()); err != nil {
			e.log.Warn("submit exercise result failed",
				zap.String("exercise_id", e.ex.ID),
				zap.Int("score", res.Score),
				zap.Int("total", res.Total),
				zap.Error(err))
		}
	}()
}

// Wait blocks until outstanding result reports have finished.
func (e *Engine) Wait() {
	e.reports.Wait()
}

func (e *Engine) score(in Input) Result {
	var res Result
	switch {
	case e.content.quiz != nil:
		res = scoreQuiz(e.content.quiz, in)
	case e.content.blanks != nil:
		res = scoreBlanks(e.content.blanks, e.missing, in)
	case e.content.matching != nil:
		res = scoreMatching(e.content.matching, e.order, in)
	}
	res.Total = e.content.total()
	for _, ok := range res.Correct {
		if ok {
			res.Score++
		}
	}
	res.Tier = TierFor(res.Score, res.Total)
	return res
}

func scoreQuiz(c *QuizContent, in Input) Result {
	res := Result{DetailKey: "answers", Detail: map[string]any{}, Correct: make([]bool, len(c.Questions))}
	for i, q := range c.Questions {
		sel, ok := in.Choices[i]
		if !ok {
			res.Detail[strconv.Itoa(i)] = nil
			continue
		}
		res.Detail[strconv.Itoa(i)] = sel
		res.Correct[i] = sel == q.CorrectIndex
	}
	return res
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func scoreBlanks(c *FillInBlanksContent, missing []int, in Input) Result {
	res := Result{DetailKey: "answers", Detail: map[string]any{}, Correct: make([]bool, len(c.Blanks))}
	dropped := make(map[int]bool, len(missing))
	for _, i := range missing {
		dropped[i] = true
	}
	for i, b := range c.Blanks {
		// a blank without an input control can never be answered
		if dropped[i] {
			continue
		}
		answer := normalize(in.Blanks[i])
		res.Detail[strconv.Itoa(i)] = strings.TrimSpace(in.Blanks[i])
		res.Correct[i] = answer != "" && answer == normalize(b.Answer)
	}
	return res
}

func scoreMatching(c *MatchingContent, order []int, in Input) Result {
	res := Result{DetailKey: "matches", Detail: map[string]any{}, Correct: make([]bool, len(order))}
	for slot, origin := range order {
		sel, ok := in.Matches[slot]
		if !ok {
			res.Detail[strconv.Itoa(slot)] = nil
			continue
		}
		res.Detail[strconv.Itoa(slot)] = sel
		res.Correct[slot] = sel == c.Pairs[origin].Index
	}
	return res
}

func boolPtr(b bool) *bool { return &b }

func (e *Engine) renderLocked() View {
	v := View{
		ExerciseID:  e.ex.ID,
		Title:       e.ex.Title,
		Description: e.ex.Description,
		Type:        e.ex.Type,
		Supported:   e.ex.Type.Supported(),
		Submitted:   e.state == Submitted,
	}

	var correct []bool
	if e.result != nil {
		correct = e.result.Correct
		v.Result = &ResultView{
			Score:   e.result.Score,
			Total:   e.result.Total,
			Tier:    e.result.Tier,
			Message: resultMessage(e.result.Score, e.result.Total),
		}
	}
	mark := func(i int) *bool {
		if correct == nil {
			return nil
		}
		return boolPtr(correct[i])
	}

	switch {
	case e.content.quiz != nil:
		for i, q := range e.content.quiz.Questions {
			qv := QuestionView{Index: i, Name: quizControl(i), Text: q.Text, Correct: mark(i)}
			sel, answered := e.input.Choices[i]
			for j, opt := range q.Options {
				qv.Options = append(qv.Options, OptionView{Value: j, Label: opt, Selected: answered && sel == j})
			}
			if v.Submitted {
				qv.Explanation = q.Explanation
			}
			v.Questions = append(v.Questions, qv)
		}

	case e.content.blanks != nil:
		v.MissingBlanks = append([]int(nil), e.missing...)
		for _, s := range e.segments {
			if s.Blank == nil {
				v.Segments = append(v.Segments, s)
				continue
			}
			b := *s.Blank
			b.Value = e.input.Blanks[b.Index]
			b.Correct = mark(b.Index)
			v.Segments = append(v.Segments, Segment{Blank: &b})
		}

	case e.content.matching != nil:
		pairs := e.content.matching.Pairs
		for i, p := range pairs {
			v.Lefts = append(v.Lefts, MatchLeft{Position: i, Text: p.Left})
			v.Options = append(v.Options, MatchOption{Value: p.Index, Label: p.Left})
		}
		for slot, origin := range e.order {
			ms := MatchSlot{Slot: slot, Name: matchingControl(slot), Right: pairs[origin].Right, Correct: mark(slot)}
			if sel, ok := e.input.Matches[slot]; ok {
				ms.Selected = &sel
			}
			v.Slots = append(v.Slots, ms)
		}
	}
	return v
}
