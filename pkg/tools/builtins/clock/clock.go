// Package clock provides the get_current_time capability.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	// Zone names must resolve on hosts without a tz database.
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/tools/registry"
)

const (
	toolName = "get_current_time"

	// Layout renders times as "2006-01-02 15:04:05 MST".
	Layout = "2006-01-02 15:04:05 MST"
)

var parametersJSON = json.RawMessage(`{"type":"object","properties":{"timezone":{"type":"string","description":"IANA time zone, e.g. Asia/Seoul, America/New_York, Europe/London"}},"required":[]}`)

// Provider serves the current time in a requested zone.
type Provider struct {
	zoneName string
	zone     *time.Location
	now      func() time.Time
}

var _ registry.Provider = (*Provider)(nil)

// New creates a Provider whose fallback zone is defaultZone.
func New(defaultZone string) (*Provider, error) {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	loc, err := time.LoadLocation(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("clock: default zone: %w", err)
	}
	return &Provider{zoneName: defaultZone, zone: loc, now: time.Now}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "clock" }

// Capabilities returns the get_current_time descriptor.
func (p *Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{{
		Name:        toolName,
		Description: "Returns the current date and time in a time zone.",
		Parameters:  parametersJSON,
		Handler:     registry.Typed(p.currentTime),
	}}
}

// Collectors returns nil.
func (p *Provider) Collectors() []prometheus.Collector { return nil }

// Close is a no-op.
func (p *Provider) Close() error { return nil }

type timeArgs struct {
	Timezone string `json:"timezone"`
}

// currentTime falls back to the default zone on an empty or unknown name.
func (p *Provider) currentTime(_ context.Context, args timeArgs) (any, error) {
	name, loc := p.zoneName, p.zone
	if args.Timezone != "" {
		if l, err := time.LoadLocation(args.Timezone); err == nil {
			name, loc = args.Timezone, l
		} else {
			slog.Debug("unknown time zone, using default", "timezone", args.Timezone, "default", p.zoneName)
		}
	}
	return fmt.Sprintf("%s: %s", name, p.now().In(loc).Format(Layout)), nil
}
