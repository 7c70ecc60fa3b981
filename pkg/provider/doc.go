// Package provider defines the inference gateway contract used by the
// orchestration loop. Requests carry the conversation transcript and the
// capability catalog; responses are normalized to content plus structured
// invocation requests regardless of which protocol dialect produced them.
// Adapters (e.g., vllm) implement the wire protocols and the fallback ladder.
package provider
