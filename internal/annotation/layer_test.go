package annotation

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) PointerEvent { return PointerEvent{ClientX: x, ClientY: y} }

func newTestLayer(opts ...Option) *Layer {
	return NewLayer(DocumentBox{Width: 800, Height: 600}, opts...)
}

func draw(t *testing.T, l *Layer, tool Tool, from, to PointerEvent) Annotation {
	t.Helper()
	require.NoError(t, l.SelectTool(tool))
	require.True(t, l.BeginStroke(from))
	require.NotNil(t, l.UpdateStroke(to))
	a := l.EndStroke()
	require.NotNil(t, a)
	return *a
}

func TestHighlightNormalizesCorners(t *testing.T) {
	l := newTestLayer()
	a := draw(t, l, ToolHighlight, pt(50, 50), pt(10, 10))

	assert.Equal(t, KindHighlight, a.Kind)
	assert.Equal(t, Point{X: 10, Y: 10}, a.Position)
	assert.Equal(t, &Size{Width: 40, Height: 40}, a.Size)
	assert.NotEmpty(t, a.ID)
}

func TestCircleAndUnderlineShapes(t *testing.T) {
	l := newTestLayer()

	c := draw(t, l, ToolCircle, pt(10, 80), pt(60, 20))
	assert.Equal(t, Point{X: 10, Y: 20}, c.Position)
	assert.Equal(t, &Size{Width: 50, Height: 60}, c.Size)

	u := draw(t, l, ToolUnderline, pt(90, 40), pt(30, 75))
	assert.Equal(t, Point{X: 30, Y: 40}, u.Position)
	assert.Equal(t, &Size{Width: 60, Height: 2}, u.Size)

	assert.Len(t, l.Annotations(), 2)
}

func TestStrokeUsesLayerCoordinates(t *testing.T) {
	l := NewLayer(DocumentBox{Width: 400, Height: 300, ClientLeft: 100, ClientTop: 200})
	a := draw(t, l, ToolHighlight, pt(110, 220), pt(150, 260))

	assert.Equal(t, Point{X: 10, Y: 20}, a.Position)
	assert.Equal(t, &Size{Width: 40, Height: 40}, a.Size)
}

func TestTempShapeIsReplacedOnMove(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolHighlight))
	require.True(t, l.BeginStroke(pt(0, 0)))
	assert.Equal(t, PhaseDrawing, l.Phase())

	l.UpdateStroke(pt(10, 10))
	l.UpdateStroke(pt(30, 20))

	temp := l.Temp()
	require.NotNil(t, temp)
	assert.Equal(t, &Size{Width: 30, Height: 20}, temp.Size)
	assert.Empty(t, l.Annotations())

	view := l.Snapshot()
	require.NotNil(t, view.Temp)
	assert.Contains(t, view.Temp.Class, "temp-annotation")

	l.EndStroke()
	assert.Nil(t, l.Temp())
	assert.Len(t, l.Annotations(), 1)
	assert.Equal(t, PhaseIdle, l.Phase())
}

func TestStrokeWithoutMovementLeavesNothing(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolCircle))
	l.BeginStroke(pt(5, 5))
	assert.Nil(t, l.EndStroke())
	assert.Empty(t, l.Annotations())
}

func TestStrokeIgnoredWithoutShapeTool(t *testing.T) {
	l := newTestLayer()
	assert.False(t, l.BeginStroke(pt(1, 1)))

	require.NoError(t, l.SelectTool(ToolText))
	assert.False(t, l.BeginStroke(pt(1, 1)))
	assert.Nil(t, l.UpdateStroke(pt(5, 5)))
}

func TestPointerLeaveEndsStroke(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolUnderline))
	l.Handle(Event{Type: EventPointerDown, ClientX: 0, ClientY: 10})
	l.Handle(Event{Type: EventPointerMove, ClientX: 25, ClientY: 10})
	resp := l.Handle(Event{Type: EventPointerLeave})

	assert.True(t, resp.Changed)
	assert.Len(t, l.Annotations(), 1)
	assert.Nil(t, l.Temp())
}

func TestClearRemovesAllAndDeselects(t *testing.T) {
	l := newTestLayer()
	draw(t, l, ToolHighlight, pt(0, 0), pt(10, 10))
	draw(t, l, ToolCircle, pt(0, 0), pt(10, 10))

	require.NoError(t, l.SelectTool(ToolClear))
	assert.Empty(t, l.Annotations())
	assert.Equal(t, ToolNone, l.Tool())
}

func TestUnknownTool(t *testing.T) {
	l := newTestLayer()
	assert.ErrorIs(t, l.SelectTool(Tool("eraser")), ErrUnknownTool)
}

func TestToolHookFiresOnEverySelection(t *testing.T) {
	var got []Tool
	l := newTestLayer(WithToolHook(func(tool Tool) { got = append(got, tool) }))

	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.SelectTool(ToolHighlight))
	require.NoError(t, l.SelectTool(ToolClear))

	assert.Equal(t, []Tool{ToolText, ToolHighlight, ToolClear}, got)
}

func TestTextPlacement(t *testing.T) {
	l := NewLayer(DocumentBox{Width: 400, Height: 300, ClientLeft: 20, ClientTop: 30})
	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.BeginTextPlacement("remember this"))
	assert.Equal(t, PhaseAwaitingPlacement, l.Phase())
	assert.Equal(t, 1, l.PendingListeners())

	a := l.Click(pt(70, 90))
	require.NotNil(t, a)
	assert.Equal(t, KindText, a.Kind)
	assert.Equal(t, "remember this", a.Text)
	assert.Equal(t, Point{X: 50, Y: 60}, a.Position)
	assert.Nil(t, a.Size)

	// one-shot
	assert.Equal(t, 0, l.PendingListeners())
	assert.Nil(t, l.Click(pt(100, 100)))
	assert.Len(t, l.Annotations(), 1)
	assert.Equal(t, PhaseIdle, l.Phase())
}

func TestTextPlacementRequiresTextToolAndText(t *testing.T) {
	l := newTestLayer()
	assert.ErrorIs(t, l.BeginTextPlacement("note"), ErrNotTextTool)

	require.NoError(t, l.SelectTool(ToolText))
	assert.ErrorIs(t, l.BeginTextPlacement("   "), ErrEmptyText)
	assert.Equal(t, 0, l.PendingListeners())
}

func TestToolSwitchCancelsPendingPlacement(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.BeginTextPlacement("pending"))

	require.NoError(t, l.SelectTool(ToolHighlight))
	assert.Equal(t, 0, l.PendingListeners())
	assert.Nil(t, l.Click(pt(10, 10)))
	assert.Empty(t, l.Annotations())
}

func TestSecondPlacementReplacesFirst(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.BeginTextPlacement("first"))
	require.NoError(t, l.BeginTextPlacement("second"))
	assert.Equal(t, 1, l.PendingListeners())

	a := l.Click(pt(1, 1))
	require.NotNil(t, a)
	assert.Equal(t, "second", a.Text)
	assert.Len(t, l.Annotations(), 1)
}

func TestDragRepositionsAnnotation(t *testing.T) {
	l := NewLayer(DocumentBox{Width: 400, Height: 300, ClientLeft: 100, ClientTop: 50})
	a := draw(t, l, ToolHighlight, pt(120, 70), pt(160, 110)) // layer (20,20)

	// grab 5px inside the element
	require.True(t, l.StartDrag(a.ID, pt(125, 75)))
	assert.Equal(t, PhaseDragging, l.Phase())

	// a stroke cannot start while dragging
	assert.False(t, l.BeginStroke(pt(0, 0)))

	moved := l.PointerMove(pt(205, 155))
	require.NotNil(t, moved)
	assert.Equal(t, Point{X: 100, Y: 100}, moved.Position)
	assert.Equal(t, &Size{Width: 40, Height: 40}, moved.Size)

	l.PointerUp()
	assert.Equal(t, PhaseIdle, l.Phase())

	// further moves do not drag
	l.PointerMove(pt(300, 300))
	assert.Equal(t, Point{X: 100, Y: 100}, l.Annotations()[0].Position)
}

func TestAnnotationDownStopsPropagation(t *testing.T) {
	l := newTestLayer()
	a := draw(t, l, ToolCircle, pt(0, 0), pt(20, 20))

	resp := l.Handle(Event{Type: EventAnnotationDown, ID: a.ID, ClientX: 5, ClientY: 5})
	assert.True(t, resp.StopPropagation)

	resp = l.Handle(Event{Type: EventAnnotationDown, ID: "missing"})
	assert.False(t, resp.StopPropagation)
}

func TestTouchPreventsDefault(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolHighlight))

	start := l.Handle(Event{Type: EventTouchStart, Touches: []PointerEvent{pt(10, 10), pt(90, 90)}})
	move := l.Handle(Event{Type: EventTouchMove, Touches: []PointerEvent{pt(30, 40)}})
	end := l.Handle(Event{Type: EventTouchEnd})

	for _, r := range []Response{start, move, end} {
		assert.True(t, r.PreventDefault)
	}
	require.Len(t, l.Annotations(), 1)
	assert.Equal(t, &Size{Width: 20, Height: 30}, l.Annotations()[0].Size)

	// touch with no points still prevents default
	empty := l.Handle(Event{Type: EventTouchStart})
	assert.True(t, empty.PreventDefault)
	assert.False(t, empty.Changed)
}

func TestResizeFollowsDocument(t *testing.T) {
	l := newTestLayer()
	frame := l.Resize(DocumentBox{OffsetTop: 12, OffsetLeft: 8, Width: 640, Height: 480, ClientLeft: 8, ClientTop: 112})

	assert.Equal(t, Frame{Top: 12, Left: 8, Width: 640, Height: 480}, frame)
	assert.Equal(t, frame, l.Snapshot().Frame)

	a := draw(t, l, ToolHighlight, pt(18, 122), pt(28, 132))
	assert.Equal(t, Point{X: 10, Y: 10}, a.Position)
}

func TestHandleErrors(t *testing.T) {
	l := newTestLayer()
	assert.Equal(t, ErrUnknownEvent.Error(), l.Handle(Event{Type: "wheel"}).Error)
	assert.Equal(t, ErrUnknownTool.Error(), l.Handle(Event{Type: EventTool, Tool: "laser"}).Error)
	assert.NotEmpty(t, l.Handle(Event{Type: EventResize}).Error)

	assert.False(t, EventType("wheel").Valid())
	assert.True(t, EventTouchEnd.Valid())
}

func TestCloseDetachesEverything(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.BeginTextPlacement("note"))
	l.Close()

	assert.Equal(t, 0, l.PendingListeners())
	assert.Nil(t, l.Click(pt(1, 1)))
	assert.ErrorIs(t, l.SelectTool(ToolHighlight), ErrClosed)
	assert.False(t, l.BeginStroke(pt(1, 1)))
	assert.Equal(t, PhaseIdle, l.Phase())

	l.Close()
}

func TestLayerHTMLEscapesText(t *testing.T) {
	l := newTestLayer()
	require.NoError(t, l.SelectTool(ToolText))
	require.NoError(t, l.BeginTextPlacement(`<script>alert("x")</script>`))
	l.Click(pt(10, 20))
	draw(t, l, ToolHighlight, pt(0, 0), pt(40, 10))

	html, err := l.Snapshot().HTML()
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	require.NoError(t, err)

	text := doc.Find(".annotation.text-annotation")
	require.Equal(t, 1, text.Length())
	assert.Equal(t, `<script>alert("x")</script>`, text.Text())
	style, _ := text.Attr("style")
	assert.Contains(t, style, "left: 10px")
	assert.Contains(t, style, "top: 20px")

	hl := doc.Find(".annotation").Not(".text-annotation")
	require.Equal(t, 1, hl.Length())
	style, _ = hl.Attr("style")
	assert.Contains(t, style, "rgba(255, 255, 0, 0.3)")
	assert.Contains(t, style, "width: 40px")

	active := doc.Find(".annotation-tool.active")
	require.Equal(t, 1, active.Length())
	assert.Equal(t, "highlight", active.AttrOr("data-tool", ""))
}
