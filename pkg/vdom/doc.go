// Package vdom is the in-memory markup tree the widget renders into.
//
// VNode represents elements, text, fragments and raw HTML. Elements are
// created with variadic factory functions that accept attributes, children,
// strings and at most one Control:
//
//	Button(Class("carousel-nav", "carousel-prev"),
//	    AriaLabel(t.T(i18n.KeyPreviousFiles)),
//	    ControlNav{Dir: -1},
//	    Raw(icons.ChevronLeft),
//	)
//
// # Controls
//
// A Control marks an element the user can activate. The renderer gives
// every element carrying a control a hydration id and returns the id to
// control registry, so a click reported by the thin client is routed by id
// to a typed value instead of by inspecting class names.
package vdom
