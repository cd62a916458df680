package headless

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a mount point holding parsed markup and the events
// dispatched on it.
type Element struct {
	tag string

	mu     sync.Mutex
	nodes  []*html.Node
	events []Event
}

// Event is an event dispatched on an Element.
type Event struct {
	Name   string
	Detail any
}

// NewElement creates an empty element with the given tag name.
func NewElement(tag string) *Element {
	return &Element{tag: tag}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.tag
}

// SetHTML replaces the element's children with markup, parsed the way a
// browser parses innerHTML.
func (e *Element) SetHTML(markup string) {
	parent := &html.Node{
		Type:     html.ElementNode,
		Data:     e.tag,
		DataAtom: atom.Lookup([]byte(e.tag)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		nodes = []*html.Node{{Type: html.TextNode, Data: markup}}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes = nodes
}

// HTML serializes the element's children.
func (e *Element) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	for _, n := range e.nodes {
		if err := html.Render(&sb, n); err != nil {
			break
		}
	}
	return sb.String()
}

// Text returns the concatenated text content of the element.
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	for _, n := range e.nodes {
		collectText(&sb, n)
	}
	return sb.String()
}

func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}

// Find returns the descendant elements with the given tag name in
// document order.
func (e *Element) Find(tag string) []*html.Node {
	e.mu.Lock()
	defer e.mu.Unlock()

	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range e.nodes {
		walk(n)
	}
	return found
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Dispatch records an event.
func (e *Element) Dispatch(event string, detail any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, Event{Name: event, Detail: detail})
}

// Events returns the dispatched events in order.
func (e *Element) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}
