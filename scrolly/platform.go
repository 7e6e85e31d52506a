package scrolly

import "fmt"

// Rect is an element's bounding rectangle in viewport coordinates.
type Rect struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
	Height float64
	Width  float64
}

// Element is the slice of a DOM element the engine reads and decorates.
// Implementations must be comparable; the engine keys steps by element.
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	BoundingRect() Rect
}

// Entry is one record of an intersection callback batch.
type Entry struct {
	Target         Element
	BoundingRect   Rect
	IsIntersecting bool
	Ratio          float64
}

// Margin is an observer root margin in pixels.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// String renders the margin in CSS order.
func (m Margin) String() string {
	return fmt.Sprintf("%gpx %gpx %gpx %gpx", m.Top, m.Right, m.Bottom, m.Left)
}

// ObserverInit configures a new intersection observer.
type ObserverInit struct {
	RootMargin Margin
	Thresholds []float64
}

// IntersectionObserver watches elements and reports batches of entries.
type IntersectionObserver interface {
	Observe(el Element)
	Unobserve(el Element)
	Disconnect()
}

// Overlay is a debug decoration drawn at a fixed viewport offset.
type Overlay interface {
	Move(top float64)
	Remove()
}

// Platform abstracts the browser environment the engine runs in.
type Platform interface {
	// Available reports whether a document and viewport exist. When false
	// Init and Resize do nothing.
	Available() bool
	ViewportHeight() float64
	ScrollY() float64
	QueryAll(selector string) []Element
	NewIntersectionObserver(callback func([]Entry), cfg ObserverInit) IntersectionObserver
	NewOverlay(label string, top float64) Overlay
}
