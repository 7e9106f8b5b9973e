package exercise

import (
	"net/url"
	"strconv"
	"strings"
)

// Input is the answer state collected from the rendered controls. Keys are
// question, blank and slot positions; missing keys are unanswered.
type Input struct {
	Choices map[int]int    `json:"choices,omitempty"`
	Blanks  map[int]string `json:"blanks,omitempty"`
	Matches map[int]int    `json:"matches,omitempty"`
}

// Control names used by the rendered form.
func quizControl(i int) string     { return "q" + strconv.Itoa(i) }
func blankControl(i int) string    { return "blank_" + strconv.Itoa(i) }
func matchingControl(i int) string { return "match_" + strconv.Itoa(i) }

// InputFromForm reads a submitted exercise form. Empty and malformed values
// are treated as unanswered.
func InputFromForm(values url.Values) Input {
	in := Input{
		Choices: map[int]int{},
		Blanks:  map[int]string{},
		Matches: map[int]int{},
	}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch {
		case strings.HasPrefix(key, "blank_"):
			if i, err := strconv.Atoi(strings.TrimPrefix(key, "blank_")); err == nil {
				in.Blanks[i] = v
			}
		case strings.HasPrefix(key, "match_"):
			i, err := strconv.Atoi(strings.TrimPrefix(key, "match_"))
			sel, serr := strconv.Atoi(v)
			if err == nil && serr == nil {
				in.Matches[i] = sel
			}
		case strings.HasPrefix(key, "q"):
			i, err := strconv.Atoi(strings.TrimPrefix(key, "q"))
			sel, serr := strconv.Atoi(v)
			if err == nil && serr == nil {
				in.Choices[i] = sel
			}
		}
	}
	return in
}
