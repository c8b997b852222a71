// File: internal/humanoid/types.go
package humanoid

// MouseEventType defines the type of mouse event. These strings align with
// standard DOM event types (and common automation protocols).
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseButton defines the mouse button.
type MouseButton string

const (
	ButtonNone MouseButton = "none"
	ButtonLeft MouseButton = "left"
)

// MouseEvent holds the data required to dispatch a mouse event. It is an
// agnostic structure so the Executor interface stays mockable.
type MouseEvent struct {
	Type       MouseEventType
	Pos        Vector2D
	Button     MouseButton
	ClickCount int
	// DeltaY is used for MouseWheel events; positive scrolls down.
	DeltaY float64
}
