// Package fakedom is an in-memory scrolly.Platform. Nodes are laid out in
// document coordinates; scrolling moves the viewport and delivers one
// intersection batch per live observer.
package fakedom

import (
	"strings"
	"sync"

	"github.com/goliatone/go-paracharts/scrolly"
)

// Document is a scrollable page of nodes.
type Document struct {
	mu        sync.Mutex
	available bool
	viewport  float64
	scrollY   float64
	nodes     []*Node
	observers []*Observer
	overlays  []*Overlay
}

// NewDocument returns an available document with the given viewport height.
func NewDocument(viewportHeight float64) *Document {
	return &Document{available: true, viewport: viewportHeight}
}

// Append adds a node at document offset top with the given height.
func (d *Document) Append(top, height float64, attrs map[string]string) *Node {
	node := &Node{doc: d, top: top, height: height, attrs: map[string]string{}}
	for name, value := range attrs {
		node.attrs[name] = value
	}
	d.mu.Lock()
	d.nodes = append(d.nodes, node)
	d.mu.Unlock()
	return node
}

// SetAvailable toggles whether the document behaves like a browser.
func (d *Document) SetAvailable(available bool) {
	d.mu.Lock()
	d.available = available
	d.mu.Unlock()
}

// SetViewportHeight changes the viewport height, as a window resize would.
func (d *Document) SetViewportHeight(height float64) {
	d.mu.Lock()
	d.viewport = height
	d.mu.Unlock()
}

// ScrollTo moves the viewport and notifies every connected observer with
// the current geometry of the nodes it observes.
func (d *Document) ScrollTo(y float64) {
	d.mu.Lock()
	d.scrollY = y
	observers := append([]*Observer(nil), d.observers...)
	d.mu.Unlock()

	for _, observer := range observers {
		observer.flush()
	}
}

// Observers returns every observer created so far, including disconnected
// ones.
func (d *Document) Observers() []*Observer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Observer(nil), d.observers...)
}

// Overlays returns every overlay created so far.
func (d *Document) Overlays() []*Overlay {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Overlay(nil), d.overlays...)
}

func (d *Document) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

func (d *Document) ViewportHeight() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

func (d *Document) ScrollY() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrollY
}

// QueryAll supports comma separated attribute selectors such as
// "[data-para-enter],[data-para-exit]". Nodes are returned in insertion
// order.
func (d *Document) QueryAll(selector string) []scrolly.Element {
	var names []string
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]") {
			names = append(names, strings.TrimSpace(part[1:len(part)-1]))
		}
	}

	d.mu.Lock()
	nodes := append([]*Node(nil), d.nodes...)
	d.mu.Unlock()

	var out []scrolly.Element
	for _, node := range nodes {
		for _, name := range names {
			if _, ok := node.Attr(name); ok {
				out = append(out, node)
				break
			}
		}
	}
	return out
}

func (d *Document) NewIntersectionObserver(callback func([]scrolly.Entry), cfg scrolly.ObserverInit) scrolly.IntersectionObserver {
	observer := &Observer{doc: d, callback: callback, cfg: cfg}
	d.mu.Lock()
	d.observers = append(d.observers, observer)
	d.mu.Unlock()
	return observer
}

func (d *Document) NewOverlay(label string, top float64) scrolly.Overlay {
	overlay := &Overlay{Label: label, Top: top}
	d.mu.Lock()
	d.overlays = append(d.overlays, overlay)
	d.mu.Unlock()
	return overlay
}

// Node is a positioned element.
type Node struct {
	doc    *Document
	mu     sync.Mutex
	top    float64
	height float64
	attrs  map[string]string
}

func (n *Node) Attr(name string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	value, ok := n.attrs[name]
	return value, ok
}

func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	n.attrs[name] = value
	n.mu.Unlock()
}

func (n *Node) RemoveAttr(name string) {
	n.mu.Lock()
	delete(n.attrs, name)
	n.mu.Unlock()
}

// BoundingRect reports the node relative to the current viewport.
func (n *Node) BoundingRect() scrolly.Rect {
	scrollY := n.doc.ScrollY()
	n.mu.Lock()
	defer n.mu.Unlock()
	top := n.top - scrollY
	return scrolly.Rect{
		Top:    top,
		Bottom: top + n.height,
		Height: n.height,
	}
}

// Observer records what the engine observes and delivers batches.
type Observer struct {
	doc          *Document
	callback     func([]scrolly.Entry)
	cfg          scrolly.ObserverInit
	mu           sync.Mutex
	observed     []*Node
	disconnected bool
}

// Config returns the configuration the observer was created with.
func (o *Observer) Config() scrolly.ObserverInit { return o.cfg }

// Observed returns the nodes currently observed.
func (o *Observer) Observed() []*Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Node(nil), o.observed...)
}

// Disconnected reports whether Disconnect was called.
func (o *Observer) Disconnected() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disconnected
}

func (o *Observer) Observe(el scrolly.Element) {
	node, ok := el.(*Node)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, existing := range o.observed {
		if existing == node {
			return
		}
	}
	o.observed = append(o.observed, node)
}

func (o *Observer) Unobserve(el scrolly.Element) {
	node, ok := el.(*Node)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.observed {
		if existing == node {
			o.observed = append(o.observed[:i], o.observed[i+1:]...)
			return
		}
	}
}

func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.disconnected = true
	o.observed = nil
	o.mu.Unlock()
}

func (o *Observer) flush() {
	o.mu.Lock()
	if o.disconnected || len(o.observed) == 0 {
		o.mu.Unlock()
		return
	}
	nodes := append([]*Node(nil), o.observed...)
	o.mu.Unlock()

	viewport := o.doc.ViewportHeight()
	entries := make([]scrolly.Entry, 0, len(nodes))
	for _, node := range nodes {
		rect := node.BoundingRect()
		top := -o.cfg.RootMargin.Top
		bottom := viewport + o.cfg.RootMargin.Bottom
		visible := min(rect.Bottom, bottom) - max(rect.Top, top)
		ratio := 0.0
		if rect.Height > 0 && visible > 0 {
			ratio = visible / rect.Height
		}
		entries = append(entries, scrolly.Entry{
			Target:         node,
			BoundingRect:   rect,
			IsIntersecting: visible > 0,
			Ratio:          ratio,
		})
	}
	o.callback(entries)
}

// Overlay is a recorded debug overlay.
type Overlay struct {
	Label   string
	Top     float64
	Removed bool
}

func (o *Overlay) Move(top float64) { o.Top = top }

func (o *Overlay) Remove() { o.Removed = true }
