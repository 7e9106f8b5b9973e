// Package exercise renders, scores and resets the interactive exercises
// attached to a lesson: multiple choice quizzes, fill-in-the-blank texts and
// matching pairs.
package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Type string

const (
	Quiz         Type = "quiz"
	FillInBlanks Type = "fill-in-blanks"
	Matching     Type = "matching"
)

func (t Type) Supported() bool {
	switch t {
	case Quiz, FillInBlanks, Matching:
		return true
	}
	return false
}

var (
	ErrUnsupportedType  = errors.New("exercise type is not supported")
	ErrInvalidContent   = errors.New("invalid exercise content")
	ErrAlreadySubmitted = errors.New("exercise already submitted")
)

// Exercise is the descriptor served by GET /api/exercises/lesson/{id}.
type Exercise struct {
	ID          string          `json:"id"`
	LessonID    string          `json:"lesson_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        Type            `json:"type"`
	Content     json.RawMessage `json:"content"`
}

type QuizQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
}

type QuizContent struct {
	Questions []QuizQuestion `json:"questions"`
}

type Blank struct {
	Answer string `json:"answer"`
	Hint   string `json:"hint,omitempty"`
}

// FillInBlanksContent holds a text with [BLANK_0], [BLANK_1] ... placeholders.
type FillInBlanksContent struct {
	Text   string  `json:"text"`
	Blanks []Blank `json:"blanks"`
}

type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	Index int    `json:"index"`
}

type MatchingContent struct {
	Pairs []MatchingPair `json:"pairs"`
}

// content is the decoded, validated variant payload. Exactly one field is set
// for supported types.
type content struct {
	quiz     *QuizContent
	blanks   *FillInBlanksContent
	matching *MatchingContent
}

func decodeContent(ex Exercise) (content, error) {
	var c content
	switch ex.Type {
	case Quiz:
		var q QuizContent
		if err := json.Unmarshal(ex.Content, &q); err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		if err := q.validate(); err != nil {
			return c, err
		}
		c.quiz = &q
	case FillInBlanks:
		var f FillInBlanksContent
		if err := json.Unmarshal(ex.Content, &f); err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		if len(f.Blanks) == 0 {
			return c, fmt.Errorf("%w: no blanks", ErrInvalidContent)
		}
		c.blanks = &f
	case Matching:
		var m MatchingContent
		if err := json.Unmarshal(ex.Content, &m); err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		if err := m.validate(); err != nil {
			return c, err
		}
		c.matching = &m
	}
	return c, nil
}

func (q *QuizContent) validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidContent)
	}
	for i, question := range q.Questions {
		if len(question.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidContent, i)
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidContent, i, question.CorrectIndex)
		}
	}
	return nil
}

func (m *MatchingContent) validate() error {
	if len(m.Pairs) == 0 {
		return fmt.Errorf("%w: no pairs", ErrInvalidContent)
	}
	seen := make(map[int]bool, len(m.Pairs))
	for i, p := range m.Pairs {
		if seen[p.Index] {
			return fmt.Errorf("%w: pair %d reuses index %d", ErrInvalidContent, i, p.Index)
		}
		seen[p.Index] = true
	}
	return nil
}

func (c content) total() int {
	switch {
	case c.quiz != nil:
		return len(c.quiz.Questions)
	case c.blanks != nil:
		return len(c.blanks.Blanks)
	case c.matching != nil:
		return len(c.matching.Pairs)
	}
	return 0
}
