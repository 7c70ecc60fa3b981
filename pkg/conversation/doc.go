// Package conversation holds the conversation transcript: an ordered,
// append-only sequence of turns (system, user, assistant, tool result)
// that is replayed to the inference endpoint on every model round-trip.
//
// Turn is a closed sum type. Code that renders turns for a wire format
// implements Visitor, which makes a new variant a compile-time change for
// every renderer.
package conversation
