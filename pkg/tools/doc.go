// Package tools defines the capability types shared by the orchestration
// loop, the capability registry and the inference gateway: invocation
// requests (ToolCall), catalog entries (Definition) and invocation results
// (Outcome), plus the Invoker contract the loop dispatches through.
//
// This package has no dependencies outside the standard library.
package tools
