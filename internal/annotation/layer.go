// Package annotation implements the drawing surface laid over an uploaded
// image or PDF: shape strokes, one-shot text placement, dragging of placed
// marks and alignment with the document element.
package annotation

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Tool string

const (
	ToolNone      Tool = ""
	ToolText      Tool = "text"
	ToolHighlight Tool = "highlight"
	ToolCircle    Tool = "circle"
	ToolUnderline Tool = "underline"
	ToolClear     Tool = "clear"
)

func (t Tool) valid() bool {
	switch t {
	case ToolNone, ToolText, ToolHighlight, ToolCircle, ToolUnderline, ToolClear:
		return true
	}
	return false
}

// shapeKind is the kind drawn by a stroke tool.
func (t Tool) shapeKind() (Kind, bool) {
	switch t {
	case ToolHighlight:
		return KindHighlight, true
	case ToolCircle:
		return KindCircle, true
	case ToolUnderline:
		return KindUnderline, true
	}
	return "", false
}

type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseDrawing           Phase = "drawing"
	PhaseAwaitingPlacement Phase = "awaiting_placement"
	PhaseDragging          Phase = "dragging"
)

var (
	ErrUnknownTool = errors.New("unknown annotation tool")
	ErrNotTextTool = errors.New("text tool is not active")
	ErrEmptyText   = errors.New("annotation text is empty")
	ErrClosed      = errors.New("annotation layer closed")
)

// PointerEvent carries viewport (client) coordinates.
type PointerEvent struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
}

// DocumentBox describes the annotated document element: its offset inside the
// positioned parent, its size, and its top-left corner in client coordinates.
type DocumentBox struct {
	OffsetTop  float64 `json:"offsetTop"`
	OffsetLeft float64 `json:"offsetLeft"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	ClientLeft float64 `json:"clientLeft"`
	ClientTop  float64 `json:"clientTop"`
}

// Frame is the absolute placement of the layer itself.
type Frame struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type dragState struct {
	id     string
	offset Point
}

type Option func(*Layer)

// WithToolHook is called after every tool selection, including clear.
func WithToolHook(fn func(Tool)) Option {
	return func(l *Layer) { l.onTool = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Layer) { l.log = log }
}

// Layer is one annotation surface bound to one displayed document. It is safe
// for concurrent use.
type Layer struct {
	mu sync.Mutex

	tool        Tool
	drawing     bool
	start       Point
	temp        *Annotation
	annotations []*Annotation

	frame  Frame
	origin Point

	// one-shot click listener for text placement, removed by placeDispose
	placement    func(PointerEvent) *Annotation
	placeDispose func()

	drag   *dragState
	nextID int
	closed bool

	onTool func(Tool)
	log    *zap.Logger
}

func NewLayer(box DocumentBox, opts ...Option) *Layer {
	l := &Layer{
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.resizeLocked(box)
	return l
}

func (l *Layer) toLayer(ev PointerEvent) Point {
	return Point{X: ev.ClientX - l.origin.X, Y: ev.ClientY - l.origin.Y}
}

// SelectTool activates tool. Any pending text placement and any stroke in
// progress are cancelled. ToolClear removes every annotation and leaves no
// tool selected.
func (l *Layer) SelectTool(tool Tool) error {
	if !tool.valid() {
		return ErrUnknownTool
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.disposePlacementLocked()
	l.drawing = false
	l.temp = nil

	if tool == ToolClear {
		l.annotations = nil
		l.drag = nil
		l.tool = ToolNone
	} else {
		l.tool = tool
	}
	hook := l.onTool
	l.mu.Unlock()

	if hook != nil {
		hook(tool)
	}
	return nil
}

// BeginTextPlacement arms a one-shot click listener that places text at the
// next click on the layer. The previous pending placement, if any, is
// disposed first.
func (l *Layer) BeginTextPlacement(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if l.tool != ToolText {
		return ErrNotTextTool
	}
	l.disposePlacementLocked()

	dispose := func() {
		l.placement = nil
		l.placeDispose = nil
	}
	l.placement = func(ev PointerEvent) *Annotation {
		pos := l.toLayer(ev)
		a := &Annotation{ID: l.newIDLocked(), Kind: KindText, Position: pos, Text: text}
		l.annotations = append(l.annotations, a)
		dispose()
		return a
	}
	l.placeDispose = dispose
	return nil
}

func (l *Layer) disposePlacementLocked() {
	if l.placeDispose != nil {
		l.placeDispose()
	}
}

// Click delivers a click on the layer to the pending text placement.
func (l *Layer) Click(ev PointerEvent) *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.placement == nil {
		return nil
	}

	placed := l.placement(ev)
	if placed == nil {
		return nil
	}
	cp := placed.clone()
	return &cp
}

// PendingListeners reports how many click listeners are attached (0 or 1).
func (l *Layer) PendingListeners() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.placement == nil {
		return 0
	}
	return 1
}

func (l *Layer) newIDLocked() string {
	l.nextID++
	return "a" + strconv.Itoa(l.nextID)
}

// BeginStroke starts a shape at the pointer. It is a no-op unless a shape tool
// is active and no drag is in progress.
func (l *Layer) BeginStroke(ev PointerEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.drag != nil {
		return false
	}
	if _, ok := l.tool.shapeKind(); !ok {
		return false
	}
	l.drawing = true
	l.start = l.toLayer(ev)
	l.temp = nil
	return true
}

// UpdateStroke replaces the temporary shape with the one spanning the stroke
// start and the pointer.
func (l *Layer) UpdateStroke(ev PointerEvent) *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updateStrokeLocked(ev)
}

func (l *Layer) updateStrokeLocked(ev PointerEvent) *Annotation {
	if l.closed || !l.drawing {
		return nil
	}
	kind, ok := l.tool.shapeKind()
	if !ok {
		return nil
	}
	shape := shapeFor(kind, l.start, l.toLayer(ev))
	l.temp = &shape
	cp := shape.clone()
	return &cp
}

// EndStroke promotes the temporary shape. A stroke without movement leaves
// nothing behind.
func (l *Layer) EndStroke() *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endStrokeLocked()
}

func (l *Layer) endStrokeLocked() *Annotation {
	if !l.drawing {
		return nil
	}
	l.drawing = false
	if l.temp == nil {
		return nil
	}
	a := l.temp
	l.temp = nil
	a.ID = l.newIDLocked()
	l.annotations = append(l.annotations, a)
	cp := a.clone()
	return &cp
}

// StartDrag grabs a placed annotation. The event must not reach the stroke
// handlers; the return value tells the caller to stop propagation.
func (l *Layer) StartDrag(id string, ev PointerEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	a := l.findLocked(id)
	if a == nil {
		return false
	}
	elemLeft := l.origin.X + a.Position.X
	elemTop := l.origin.Y + a.Position.Y
	l.drag = &dragState{id: id, offset: Point{X: ev.ClientX - elemLeft, Y: ev.ClientY - elemTop}}
	return true
}

func (l *Layer) findLocked(id string) *Annotation {
	for _, a := range l.annotations {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (l *Layer) moveDragLocked(ev PointerEvent) *Annotation {
	a := l.findLocked(l.drag.id)
	if a == nil {
		l.drag = nil
		return nil
	}
	a.Position = Point{
		X: ev.ClientX - l.origin.X - l.drag.offset.X,
		Y: ev.ClientY - l.origin.Y - l.drag.offset.Y,
	}
	cp := a.clone()
	return &cp
}

// PointerMove is the document-level move handler: it repositions a dragged
// annotation, otherwise it updates the stroke.
func (l *Layer) PointerMove(ev PointerEvent) *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if l.drag != nil {
		return l.moveDragLocked(ev)
	}
	return l.updateStrokeLocked(ev)
}

// PointerUp ends a drag or a stroke.
func (l *Layer) PointerUp() *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.drag != nil {
		l.drag = nil
		return nil
	}
	return l.endStrokeLocked()
}

// TouchStart mirrors BeginStroke with the first touch point.
func (l *Layer) TouchStart(touches []PointerEvent) bool {
	if len(touches) == 0 {
		return false
	}
	return l.BeginStroke(touches[0])
}

func (l *Layer) TouchMove(touches []PointerEvent) *Annotation {
	if len(touches) == 0 {
		return nil
	}
	return l.UpdateStroke(touches[0])
}

func (l *Layer) TouchEnd() *Annotation {
	return l.EndStroke()
}

// Resize realigns the layer with the document element.
func (l *Layer) Resize(box DocumentBox) Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resizeLocked(box)
	return l.frame
}

func (l *Layer) resizeLocked(box DocumentBox) {
	l.frame = Frame{Top: box.OffsetTop, Left: box.OffsetLeft, Width: box.Width, Height: box.Height}
	l.origin = Point{X: box.ClientLeft, Y: box.ClientTop}
}

func (l *Layer) Tool() Tool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tool
}

func (l *Layer) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phaseLocked()
}

func (l *Layer) phaseLocked() Phase {
	switch {
	case l.drag != nil:
		return PhaseDragging
	case l.drawing:
		return PhaseDrawing
	case l.placeDispose != nil:
		return PhaseAwaitingPlacement
	}
	return PhaseIdle
}

// Annotations returns copies of the placed annotations in placement order.
func (l *Layer) Annotations() []Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Annotation, len(l.annotations))
	for i, a := range l.annotations {
		out[i] = a.clone()
	}
	return out
}

// Temp returns the in-progress shape, if any.
func (l *Layer) Temp() *Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.temp == nil {
		return nil
	}
	cp := l.temp.clone()
	return &cp
}

// Close detaches every listener and ends any drag. Later events are ignored.
func (l *Layer) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.disposePlacementLocked()
	l.drag = nil
	l.drawing = false
	l.temp = nil
	l.closed = true
	l.log.Debug("annotation layer closed", zap.Int("annotations", len(l.annotations)))
}
