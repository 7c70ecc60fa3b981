// Package extract implements call-intent extraction: deciding from a
// normalized inference response whether the model requested capability
// invocations, and in which encoding.
//
// Two encodings are recognized. Structured invocations are the endpoint's
// tool_calls and always win. Embedded invocations are a JSON object of the
// form
//
//	{"tool_call": {"name": "get_current_time", "parameters": {"timezone": "UTC"}}}
//
// either inside the first ```json fenced block of the assistant text or as
// the entire text. Embedded invocations get a synthesized call id.
package extract
