package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyOverlay describes additional table entries for the default
// table/policy matrix (spec.md §4.2). It can only add table entries; it
// can never override the hard "users never syncs" rule, which this
// loader enforces by rejecting "users" and internal/sync.Gate enforces
// again by rejecting the users table before any other rule.
//
// cmd/regiond loads, validates and logs the overlay, but does not pass
// it to the consumer: the gate runs with sync.DefaultPolicy, only the
// sync.users/sync.products/sync.sales topics are subscribed, and the
// column whitelist has no entries for extra tables.
type PolicyOverlay struct {
	// ExtraTables lists additional table names accepted beyond
	// {products, sales}, each ACCEPT-by-default in the peer->local
	// direction and REJECT in the local->peer direction, mirroring the
	// sales row in the base matrix.
	ExtraTables []string `yaml:"extra_tables"`
}

// LoadPolicyOverlay reads an optional YAML overlay file. An empty path
// is not an error: it means no overlay is configured.
func LoadPolicyOverlay(path string) (*PolicyOverlay, error) {
	if path == "" {
		return &PolicyOverlay{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy overlay %s: %w", path, err)
	}

	var overlay PolicyOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse policy overlay %s: %w", path, err)
	}

	for _, t := range overlay.ExtraTables {
		if t == "users" {
			return nil, fmt.Errorf("policy overlay may not add %q: users never syncs", t)
		}
	}

	return &overlay, nil
}
