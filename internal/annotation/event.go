package annotation

import (
	"errors"

	"go.uber.org/zap"
)

type EventType string

const (
	EventTool           EventType = "tool"
	EventText           EventType = "text"
	EventPointerDown    EventType = "pointerdown"
	EventPointerMove    EventType = "pointermove"
	EventPointerUp      EventType = "pointerup"
	EventPointerLeave   EventType = "pointerleave"
	EventClick          EventType = "click"
	EventAnnotationDown EventType = "annotationdown"
	EventTouchStart     EventType = "touchstart"
	EventTouchMove      EventType = "touchmove"
	EventTouchEnd       EventType = "touchend"
	EventResize         EventType = "resize"
)

var ErrUnknownEvent = errors.New("unknown annotation event")

var knownEvents = map[EventType]bool{
	EventTool:           true,
	EventText:           true,
	EventPointerDown:    true,
	EventPointerMove:    true,
	EventPointerUp:      true,
	EventPointerLeave:   true,
	EventClick:          true,
	EventAnnotationDown: true,
	EventTouchStart:     true,
	EventTouchMove:      true,
	EventTouchEnd:       true,
	EventResize:         true,
}

// Valid reports whether Handle knows how to dispatch t.
func (t EventType) Valid() bool {
	return knownEvents[t]
}

// Event is a UI event as it arrives from the browser.
type Event struct {
	Type    EventType      `json:"type"`
	Tool    Tool           `json:"tool,omitempty"`
	Text    string         `json:"text,omitempty"`
	ID      string         `json:"id,omitempty"`
	ClientX float64        `json:"clientX,omitempty"`
	ClientY float64        `json:"clientY,omitempty"`
	Touches []PointerEvent `json:"touches,omitempty"`
	Box     *DocumentBox   `json:"box,omitempty"`
}

func (e Event) pointer() PointerEvent {
	return PointerEvent{ClientX: e.ClientX, ClientY: e.ClientY}
}

// Response tells the browser how to treat the native event and whether the
// layer has to be redrawn.
type Response struct {
	PreventDefault  bool   `json:"preventDefault,omitempty"`
	StopPropagation bool   `json:"stopPropagation,omitempty"`
	Changed         bool   `json:"changed"`
	Error           string `json:"error,omitempty"`
}

// Handle dispatches one event to the layer.
func (l *Layer) Handle(ev Event) Response {
	var resp Response
	fail := func(err error) Response {
		resp.Error = err.Error()
		return resp
	}

	switch ev.Type {
	case EventTool:
		if err := l.SelectTool(ev.Tool); err != nil {
			return fail(err)
		}
		resp.Changed = true
	case EventText:
		if err := l.BeginTextPlacement(ev.Text); err != nil {
			return fail(err)
		}
		resp.Changed = true
	case EventPointerDown:
		resp.Changed = l.BeginStroke(ev.pointer())
	case EventPointerMove:
		resp.Changed = l.PointerMove(ev.pointer()) != nil
	case EventPointerUp:
		resp.Changed = l.PointerUp() != nil
	case EventPointerLeave:
		resp.Changed = l.EndStroke() != nil
	case EventClick:
		resp.Changed = l.Click(ev.pointer()) != nil
	case EventAnnotationDown:
		resp.StopPropagation = l.StartDrag(ev.ID, ev.pointer())
		resp.Changed = resp.StopPropagation
	case EventTouchStart:
		resp.PreventDefault = true
		resp.Changed = l.TouchStart(ev.Touches)
	case EventTouchMove:
		resp.PreventDefault = true
		resp.Changed = l.TouchMove(ev.Touches) != nil
	case EventTouchEnd:
		resp.PreventDefault = true
		resp.Changed = l.TouchEnd() != nil
	case EventResize:
		if ev.Box == nil {
			return fail(errors.New("resize event without document box"))
		}
		l.Resize(*ev.Box)
		resp.Changed = true
	default:
		l.log.Debug("unknown annotation event", zap.String("type", string(ev.Type)))
		return fail(ErrUnknownEvent)
	}
	return resp
}
