// Package engine implements the orchestration loop. An Engine drives one
// user message through repeated inference calls: each answer is inspected
// for call intents, the requested capabilities are invoked through a
// tools.Invoker, their outcomes are folded back into the transcript, and
// the loop continues until the model answers in prose or the iteration
// budget is spent.
//
// The engine never surfaces inference or invocation failures as Go errors.
// Every outcome of a conversation, including an unreachable backend, is
// recorded in the transcript and reported as a Result.
package engine
