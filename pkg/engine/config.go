package engine

import "time"

// Defaults for the loop bounds.
const (
	DefaultMaxIterations          = 10
	DefaultTimeout                = 300 * time.Second
	DefaultMaxParallelInvocations = 4
)

// DefaultSystemPrompt instructs models without native tool calling how to
// request an invocation in prose.
const DefaultSystemPrompt = "You are a helpful AI assistant. You can use the provided tools to answer the user's questions and carry out the requested tasks.\n" +
	"\n" +
	"When you use a tool, follow this format:\n" +
	"```json\n" +
	"{\n" +
	"  \"tool_call\": {\n" +
	"    \"name\": \"tool_name\",\n" +
	"    \"parameters\": {\n" +
	"      \"parameter_name\": \"value\"\n" +
	"    }\n" +
	"  }\n" +
	"}\n" +
	"```\n" +
	"\n" +
	"Once the tool results are available, give the user a clear and helpful answer based on them."

// Hint forces a capability on the first iteration when the user message
// mentions one of its keywords.
type Hint struct {
	// Tool is the capability name to force.
	Tool string `yaml:"tool"`

	// Keywords are matched case-insensitively as substrings of the message.
	Keywords []string `yaml:"keywords"`
}

// Config holds configuration for the orchestration loop.
type Config struct {
	// MaxIterations bounds the number of inference calls per message.
	// Zero or negative means use the default of 10.
	MaxIterations int

	// Timeout bounds a whole Converse call. Zero or negative means use the
	// default of 300 seconds.
	Timeout time.Duration

	// ParallelInvocations runs the invocations of one assistant turn
	// concurrently. Results are always folded back in request order.
	ParallelInvocations bool

	// MaxParallelInvocations caps concurrent invocations. Zero or negative
	// means use the default of 4.
	MaxParallelInvocations int

	// Hints map user keywords to a capability forced on the first
	// iteration.
	Hints []Hint
}

// maxIterations returns the effective iteration bound, defaulting to 10.
func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) maxParallel() int {
	if c.MaxParallelInvocations <= 0 {
		return DefaultMaxParallelInvocations
	}
	return c.MaxParallelInvocations
}
