package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and server conditions.
var (
	// ErrEventQueueFull is returned when the event queue is full and an event is dropped.
	ErrEventQueueFull = errors.New("server: event queue full")

	// ErrUnknownWidget is returned when a frame names a widget the page does not have.
	ErrUnknownWidget = errors.New("server: unknown widget")

	// ErrUnknownControl is returned when a click names a stale or unknown hydration id.
	ErrUnknownControl = errors.New("server: unknown control")

	// ErrUnknownForm is returned when a submit names a form the page does not have.
	ErrUnknownForm = errors.New("server: unknown form")
)

// HandlerError wraps a panic that occurred while handling an event.
type HandlerError struct {
	SessionID string
	Widget    string
	EventType string
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("server: handler panic in session %s, widget %s, event %s: %v",
		e.SessionID, e.Widget, e.EventType, e.Panic)
}

// NewHandlerError creates a new HandlerError.
func NewHandlerError(sessionID, widget, eventType string, panicVal any, stack []byte) *HandlerError {
	return &HandlerError{
		SessionID: sessionID,
		Widget:    widget,
		EventType: eventType,
		Panic:     panicVal,
		Stack:     stack,
	}
}
