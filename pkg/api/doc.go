// Package api defines the web-facing payload types of the funcall gateway:
// chat requests and responses, capability listings, conversation history,
// health and info documents, the structured APIError type, and id
// generation for invocations and conversations.
//
// The package performs no I/O. Its only dependency outside the standard
// library is github.com/google/uuid for id generation.
package api
