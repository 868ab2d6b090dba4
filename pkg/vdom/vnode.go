package vdom

import "strings"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindRaw                   // Raw HTML (trusted markup only)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes
	Children []*VNode // Child nodes
	Text     string   // For KindText and KindRaw
	Control  Control  // User-activatable behaviour, if any
	HID      string   // Hydration ID (assigned during render)
}

// Props holds attributes.
type Props map[string]any

// IsInteractive reports whether this node carries a control and needs a HID.
func (v *VNode) IsInteractive() bool {
	return v != nil && v.Kind == KindElement && v.Control != nil
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Walk calls fn for v and every descendant in document order. Returning
// false from fn skips the node's children.
func Walk(v *VNode, fn func(*VNode) bool) {
	if v == nil {
		return
	}
	if !fn(v) {
		return
	}
	for _, c := range v.Children {
		Walk(c, fn)
	}
}

// HasClass reports whether the element's class attribute contains name.
func (v *VNode) HasClass(name string) bool {
	if v == nil {
		return false
	}
	s, _ := v.Props["class"].(string)
	for _, c := range strings.Fields(s) {
		if c == name {
			return true
		}
	}
	return false
}
