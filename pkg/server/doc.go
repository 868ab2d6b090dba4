// Package server provides the live runtime for uploader pages.
//
// A page request mounts the host page (see package mount) and creates a
// Session for it. The session owns every widget controller on the page and
// runs them from a single event loop. The client script then connects a
// WebSocket to the session and streams user interaction to it as JSON
// frames; the session answers with re-rendered widget markup.
//
// # Session Lifecycle
//
// The session runs three goroutines:
//   - EventLoop: the only goroutine touching controllers. It runs queued
//     events, dispatched callbacks and timers, then re-renders changed
//     widgets.
//   - ReadLoop: decodes client frames, applies the rate limit, stats
//     staged files and queues events.
//   - WriteLoop: drains the outbound queue and sends heartbeat pings.
//
// ReadLoop and WriteLoop belong to one connection. A client that
// reconnects within the page TTL gets a fresh pair and a full re-render.
//
// # Frames
//
// Client to server: files, click, drag, resize, submit, ping.
// Server to client: render, scroll, blocked, submitted, error, pong.
//
// # Routes
//
//	GET  /                          mounted host page
//	POST /                          demo form receiver
//	GET  /_uploader/ws              live session WebSocket
//	POST /_uploader/upload          staging endpoint
//	GET  /_uploader/preview/{token} one-shot image previews
//	GET  /_uploader/client.js       client script
//	GET  /metrics                   Prometheus metrics
package server
