package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 5000 * time.Millisecond
	DefaultInterval = 15000 * time.Millisecond
)

// ErrNoTargets is returned when configuration resolves to zero targets.
var ErrNoTargets = errors.New("no targets configured")

// Kind selects the prober used for a target.
type Kind string

const (
	KindPing Kind = "ping"
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

// Target is a configured endpoint. It is built once from configuration and
// never mutated afterwards.
type Target struct {
	Kind     Kind              `json:"type"`
	Address  string            `json:"address"`
	Timeout  time.Duration     `json:"-"`
	Interval time.Duration     `json:"-"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// LabelValue returns the value for key, or "" when the target does not carry it.
func (t *Target) LabelValue(key string) string {
	return t.Labels[key]
}

// LabelKeys returns the target's label names in sorted order.
func (t *Target) LabelKeys() []string {
	keys := make([]string, 0, len(t.Labels))
	for k := range t.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Target) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s timeout=%s interval=%s", t.Kind, t.Address, t.Timeout, t.Interval)
	for _, k := range t.LabelKeys() {
		fmt.Fprintf(&b, " %s=%q", k, t.Labels[k])
	}
	return b.String()
}

// LabelSchema is the sorted union of label keys across targets.
func LabelSchema(targets []Target) []string {
	seen := make(map[string]struct{})
	for i := range targets {
		for k := range targets[i].Labels {
			seen[k] = struct{}{}
		}
	}
	schema := make([]string, 0, len(seen))
	for k := range seen {
		schema = append(schema, k)
	}
	sort.Strings(schema)
	return schema
}

// Outcome is the classified result of one probe attempt.
// LatencyMS is meaningful only when Success is true.
type Outcome struct {
	Target    *Target
	Success   bool
	Status    Status
	LatencyMS float64
}
