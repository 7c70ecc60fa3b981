// Package agent implements transport.Service. It binds the orchestration
// engine to the conversation store and exposes conversation history,
// capability and model listings, health and info to the web routes.
package agent
