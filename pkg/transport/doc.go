// Package transport defines the handler interfaces and middleware chain for
// the funcall HTTP transport layer.
//
// The transport layer bridges web clients and the orchestration loop. It
// decodes incoming requests into the payload types defined in pkg/api,
// dispatches them to a Service, and serializes the results back as JSON.
//
// # Handler Interfaces
//
// ChatHandler is the core contract: run one user message through a
// conversation and report the answer. Service adds the read-mostly
// operations the web routes expose (conversation history, capability
// listing, model listing, health and info).
//
// # Middleware
//
// The middleware chain wraps ChatHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
