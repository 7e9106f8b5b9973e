package exercise

import (
	"sort"
	"strconv"
	"strings"
)

func placeholder(i int) string {
	return "[BLANK_" + strconv.Itoa(i) + "]"
}

// splitTemplate cuts text at the first occurrence of each declared blank's
// placeholder. Blanks whose placeholder is absent get no input and are
// returned in missing.
func splitTemplate(text string, blanks []Blank) (segments []Segment, missing []int) {
	type hit struct{ blank, start, end int }

	hits := make([]hit, 0, len(blanks))
	for i := range blanks {
		ph := placeholder(i)
		start := strings.Index(text, ph)
		if start < 0 {
			missing = append(missing, i)
			continue
		}
		hits = append(hits, hit{blank: i, start: start, end: start + len(ph)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].start < hits[b].start })

	pos := 0
	for _, h := range hits {
		if h.start > pos {
			segments = append(segments, Segment{Text: text[pos:h.start]})
		}
		segments = append(segments, Segment{Blank: &BlankInput{
			Index: h.blank,
			Name:  blankControl(h.blank),
			Hint:  blanks[h.blank].Hint,
		}})
		pos = h.end
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:]})
	}
	return segments, missing
}
