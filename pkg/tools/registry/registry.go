package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/observability"
	"github.com/rhuss/funcall/pkg/tools"
)

// DefaultTimeout bounds a single invocation when no WithTimeout option is
// given.
const DefaultTimeout = 30 * time.Second

// emptySchema is the parameter schema of capabilities that declare none.
var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// Descriptor describes one capability.
type Descriptor struct {
	// Name is the unique capability name offered to the model.
	Name string

	// Description tells the model what the capability does.
	Description string

	// Parameters is the JSON Schema of the argument object.
	Parameters json.RawMessage

	// Kind records where the capability is hosted. Defaults to
	// tools.ToolKindFunction.
	Kind tools.ToolKind

	// Handler runs the capability.
	Handler Handler
}

// entry is a registered descriptor plus its compiled schema.
type entry struct {
	desc   Descriptor
	schema *gojsonschema.Schema
}

// Registry maps capability names to descriptors and implements
// tools.Invoker. It is safe for concurrent use; lookups take a read lock.
type Registry struct {
	mu sync.RWMutex

	entries map[string]*entry

	// providers stores registered providers in insertion order.
	providers []Provider

	timeout  time.Duration
	validate bool
}

// Ensure Registry implements tools.Invoker at compile time.
var _ tools.Invoker = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds every invocation. A non-positive value disables the
// bound; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithArgumentValidation enables JSON Schema validation of arguments
// against each capability's parameter schema.
func WithArgumentValidation(enabled bool) Option {
	return func(r *Registry) {
		r.validate = enabled
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts d, replacing any capability with the same name.
func (r *Registry) Register(d Descriptor) {
	if len(d.Parameters) == 0 {
		d.Parameters = emptySchema
	}
	e := &entry{desc: d}

	if r.validate {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(d.Parameters))
		if err != nil {
			slog.Warn("capability parameter schema does not compile, arguments will not be validated",
				"capability", d.Name, "error", err)
		} else {
			e.schema = schema
		}
	}

	r.mu.Lock()
	_, replaced := r.entries[d.Name]
	r.entries[d.Name] = e
	r.mu.Unlock()

	if replaced {
		slog.Info("capability replaced", "capability", d.Name)
	} else {
		debug.Log("tools", "capability registered", "capability", d.Name, "kind", d.Kind.String())
	}
}

// RegisterProvider registers every capability of p and keeps p so that
// Close releases its resources. Any provider-specific Prometheus
// collectors are also registered.
func (r *Registry) RegisterProvider(p Provider) {
	caps := p.Capabilities()
	for _, d := range caps {
		r.Register(d)
	}

	r.mu.Lock()
	r.providers = append(r.providers, p)
	r.mu.Unlock()

	for _, c := range p.Collectors() {
		if err := prometheus.Register(c); err != nil {
			// Already registered is not an error worth crashing for.
			slog.Debug("collector already registered", "provider", p.Name(), "error", err)
		}
	}

	slog.Info("registered capability provider",
		"provider", p.Name(),
		"capabilities", len(caps),
	)
}

// Unregister removes the named capability. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Has reports whether a capability with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Catalog returns the protocol-ready definitions sorted by name.
func (r *Registry) Catalog() []tools.Definition {
	r.mu.RLock()
	defs := make([]tools.Definition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, tools.Definition{
			Name:        e.desc.Name,
			Description: e.desc.Description,
			Parameters:  e.desc.Parameters,
			Kind:        e.desc.Kind,
		})
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke runs call and reports the result as an Outcome. It never returns
// an error: unknown capabilities, bad arguments, handler errors, panics
// and timeouts all become failed outcomes.
func (r *Registry) Invoke(ctx context.Context, call tools.ToolCall) tools.Outcome {
	start := time.Now()
	out := tools.Outcome{CallID: call.ID, Name: call.Name}

	result, err := r.invoke(ctx, call)
	out.Duration = time.Since(start)
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Success = true
		out.Result = result
	}

	observability.ObserveToolExecution(call.Name, out.Success, out.Duration)
	if out.Success {
		debug.Log("tools", "capability invoked",
			"capability", call.Name, "call_id", call.ID, "duration", out.Duration)
		debug.Trace("tools", "capability result", "capability", call.Name, "result", debug.Truncate(out.Result, 2000))
	} else {
		slog.Warn("capability invocation failed",
			"capability", call.Name, "call_id", call.ID, "error", out.Error, "duration", out.Duration)
	}
	return out
}

func (r *Registry) invoke(ctx context.Context, call tools.ToolCall) (string, error) {
	r.mu.RLock()
	e, ok := r.entries[call.Name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("capability not found: %s", call.Name)
	}
	if e.desc.Handler == nil {
		return "", fmt.Errorf("capability %s has no handler", call.Name)
	}

	args, err := normalizeArguments(call.Arguments)
	if err != nil {
		return "", err
	}
	if e.schema != nil {
		if err := validateArguments(e.schema, args); err != nil {
			return "", err
		}
	}

	v, err := r.run(ctx, e.desc, args)
	if err != nil {
		return "", err
	}
	return stringify(v)
}

// normalizeArguments treats empty arguments as {} and requires a JSON object.
func normalizeArguments(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ArgumentError{Reason: "arguments must be a JSON object"}
		}
		return nil, &ArgumentError{Reason: err.Error()}
	}
	if obj == nil {
		return nil, &ArgumentError{Reason: "arguments must be a JSON object"}
	}
	return json.RawMessage(raw), nil
}

// validateArguments checks args against the capability's schema and
// reports the first violations as an ArgumentError.
func validateArguments(schema *gojsonschema.Schema, args json.RawMessage) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &ArgumentError{Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, re := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return &ArgumentError{Reason: strings.Join(problems, "; ")}
}

type handlerResult struct {
	value any
	err   error
}

// run executes the handler in its own goroutine so that a handler ignoring
// its context still cannot hold the loop past the timeout.
func (r *Registry) run(ctx context.Context, d Descriptor, args json.RawMessage) (any, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("capability handler panicked", "capability", d.Name, "panic", rec)
				done <- handlerResult{err: fmt.Errorf("internal error: capability %s panicked", d.Name)}
			}
		}()
		v, err := d.Handler(runCtx, args)
		done <- handlerResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-runCtx.Done():
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("capability %s timed out after %s", d.Name, r.timeout)
		}
		return nil, fmt.Errorf("capability %s cancelled: %w", d.Name, ctx.Err())
	}
}

// stringify coerces a handler result to the string folded into the
// transcript.
func stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.RawMessage:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return "", fmt.Errorf("failed to encode result: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	}
}

// Close closes all registered providers and joins their errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	providers := r.providers
	r.providers = nil
	r.mu.Unlock()

	var errs []error
	for _, p := range providers {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close capability provider", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
