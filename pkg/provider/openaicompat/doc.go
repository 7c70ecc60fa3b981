// Package openaicompat provides the wire layer for OpenAI-compatible
// inference endpoints: request and response types for chat completions
// (tools and legacy functions dialects) and text completions, transcript
// rendering for each dialect, response normalization, and error mapping
// to provider.TransportError.
//
// Gateway adapters (e.g., vllm) use the Client from this package and
// decide which dialect to send.
package openaicompat
