// Package session keeps conversation transcripts in process memory, keyed
// by conversation id. Conversations are lost when the process restarts.
// A size limit evicts the least recently used conversation.
package session
