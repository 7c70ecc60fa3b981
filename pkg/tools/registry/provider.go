// Package registry implements the capability registry: a concurrent-safe
// name → descriptor map that publishes the capability catalog and runs
// invocations with argument checking, timeouts, panic recovery and metrics.
//
// Capabilities are registered one by one (Register) or as a Provider, a
// named group that shares resources such as an HTTP client or an MCP
// session and is closed together with the registry.
package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provider is a pluggable group of capabilities.
// Each provider contributes a set of descriptors and optional Prometheus
// collectors, and owns the resources its handlers share.
type Provider interface {
	// Name returns a unique identifier for this provider (e.g., "clock").
	Name() string

	// Capabilities returns the descriptors this provider contributes.
	Capabilities() []Descriptor

	// Collectors returns Prometheus collectors for provider-specific metrics.
	Collectors() []prometheus.Collector

	// Close releases any resources held by the provider.
	Close() error
}
