package provider

// Capabilities declares which protocol dialects a gateway may fall back
// to. The chat dialect is always attempted first.
type Capabilities struct {
	// ToolCalling indicates whether the endpoint accepts a tool catalog.
	ToolCalling bool

	// LegacyFunctions enables the functions/function_call fallback.
	LegacyFunctions bool

	// TextCompletion enables the flattened-prompt completions fallback.
	TextCompletion bool
}

// Dialects returns the fallback ladder in the order it is attempted.
// A request without a catalog skips the legacy functions step.
func (c Capabilities) Dialects(withCatalog bool) []Dialect {
	ladder := []Dialect{DialectChat}
	if withCatalog && c.ToolCalling && c.LegacyFunctions {
		ladder = append(ladder, DialectFunctions)
	}
	if c.TextCompletion {
		ladder = append(ladder, DialectCompletion)
	}
	return ladder
}
