package annotation

import "math"

type Kind string

const (
	KindHighlight Kind = "highlight"
	KindCircle    Kind = "circle"
	KindUnderline Kind = "underline"
	KindText      Kind = "text"
)

// underlineHeight is the fixed thickness of an underline band.
const underlineHeight = 2

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Annotation struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Position Point  `json:"position"`
	Size     *Size  `json:"size,omitempty"`
	Text     string `json:"text,omitempty"`
}

// shapeFor builds the shape spanned by a stroke from start to cur, both in
// layer coordinates.
func shapeFor(kind Kind, start, cur Point) Annotation {
	left := math.Min(start.X, cur.X)
	width := math.Abs(cur.X - start.X)

	switch kind {
	case KindUnderline:
		return Annotation{
			Kind:     kind,
			Position: Point{X: left, Y: start.Y},
			Size:     &Size{Width: width, Height: underlineHeight},
		}
	default:
		return Annotation{
			Kind:     kind,
			Position: Point{X: left, Y: math.Min(start.Y, cur.Y)},
			Size:     &Size{Width: width, Height: math.Abs(cur.Y - start.Y)},
		}
	}
}

func (a Annotation) clone() Annotation {
	if a.Size != nil {
		s := *a.Size
		a.Size = &s
	}
	return a
}
