// Package vllm implements the provider.Gateway interface for vLLM and any
// OpenAI-compatible backend. Requests are first sent as chat completions
// with tools; endpoints that cannot serve that dialect are retried with
// legacy functions and finally with a flattened prompt against
// /v1/completions. All attempts share one HTTP connection pool.
package vllm
