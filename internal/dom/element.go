// Package dom models the page fragments widgets render into.
package dom

import (
	"slices"
	"sync"
)

// Element is the slice of a DOM node the widgets touch.
type Element interface {
	Text() string
	SetText(text string)
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	HasClass(class string) bool
	AddClass(class string)
	RemoveClass(class string)
	Hidden() bool
	SetHidden(hidden bool)
	Disabled() bool
	SetDisabled(disabled bool)
}

// Present reports whether el refers to a real node. Absent elements turn
// widget renders into no-ops.
func Present(el Element) bool {
	if el == nil {
		return false
	}
	if n, ok := el.(*Node); ok && n == nil {
		return false
	}
	return true
}

// Node is an in-memory Element. All methods are safe on a nil *Node.
type Node struct {
	mu       sync.RWMutex
	id       string
	text     string
	attrs    map[string]string
	classes  []string
	hidden   bool
	disabled bool
}

// NewNode creates a node with server-rendered text.
func NewNode(id, text string) *Node {
	return &Node{id: id, text: text, attrs: map[string]string{}}
}

// ID returns the identifier the node was created with.
func (n *Node) ID() string {
	if n == nil {
		return ""
	}
	return n.id
}

func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.text
}

func (n *Node) SetText(text string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.text = text
	n.mu.Unlock()
}

func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name, value string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.attrs == nil {
		n.attrs = map[string]string{}
	}
	n.attrs[name] = value
	n.mu.Unlock()
}

func (n *Node) RemoveAttr(name string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	delete(n.attrs, name)
	n.mu.Unlock()
}

func (n *Node) HasClass(class string) bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Contains(n.classes, class)
}

func (n *Node) AddClass(class string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	if !slices.Contains(n.classes, class) {
		n.classes = append(n.classes, class)
	}
	n.mu.Unlock()
}

func (n *Node) RemoveClass(class string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.classes = slices.DeleteFunc(n.classes, func(c string) bool { return c == class })
	n.mu.Unlock()
}

func (n *Node) Hidden() bool {
	if n == nil {
		return true
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hidden
}

func (n *Node) SetHidden(hidden bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.hidden = hidden
	n.mu.Unlock()
}

func (n *Node) Disabled() bool {
	if n == nil {
		return false
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.disabled
}

func (n *Node) SetDisabled(disabled bool) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.disabled = disabled
	n.mu.Unlock()
}

var _ Element = (*Node)(nil)
