// Package policy loads the routing policy and budget documents. Both are
// YAML files merged over built-in defaults; a missing file means defaults
// only. Callers reload before every decision (there is no caching), so
// edits to the files take effect immediately.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Lane identifiers. A lane is an upstream execution/authentication path.
const (
	LaneOAuth  = "oauth-codex"
	LaneAPIKey = "api-key-openai"
	LaneLocal  = "local-only"
)

// Auth modes declared per lane.
const (
	AuthOAuth  = "oauth"
	AuthAPIKey = "api-key"
	AuthNone   = "none"
)

// LaneConfig describes one lane's authentication mode and capabilities.
type LaneConfig struct {
	AuthMode     string   `yaml:"auth_mode"`
	Capabilities []string `yaml:"capabilities"`
}

// FeatureOverride redirects matching routes to a target lane. Overrides are
// evaluated in declared order; the first enabled match wins.
type FeatureOverride struct {
	ID      string   `yaml:"id"`
	Enabled *bool    `yaml:"enabled"`
	Routes  []string `yaml:"routes"`
	// Keywords are matched by case-folded substring containment against
	// the command text; Match selects "any" (default) or "all".
	Keywords          []string `yaml:"keywords"`
	Match             string   `yaml:"match"`
	TargetLane        string   `yaml:"target_lane"`
	AllowEmptyCommand bool     `yaml:"allow_empty_command"`
}

// IsEnabled treats an absent enabled field as true.
func (f FeatureOverride) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Guards are the boolean conditions that can block the api-key lane.
type Guards struct {
	EnableAPIKeyLane           bool `yaml:"enable_api_key_lane"`
	RequirePaidApproval        bool `yaml:"require_paid_approval"`
	BlockWhenRateLimitSafeMode bool `yaml:"block_when_rate_limit_safe_mode"`
}

// Routing is the versioned routing policy document.
type Routing struct {
	Version          int                   `yaml:"version"`
	Lanes            map[string]LaneConfig `yaml:"lanes"`
	RouteDefaults    map[string]string     `yaml:"route_defaults"`
	FeatureOverrides []FeatureOverride     `yaml:"feature_overrides"`
	Guards           Guards                `yaml:"guards"`
}

// DefaultRouting returns the built-in routing policy.
func DefaultRouting() *Routing {
	return &Routing{
		Version: 1,
		Lanes: map[string]LaneConfig{
			LaneOAuth:  {AuthMode: AuthOAuth, Capabilities: []string{"chat", "code", "search"}},
			LaneAPIKey: {AuthMode: AuthAPIKey, Capabilities: []string{"chat", "code", "batch"}},
			LaneLocal:  {AuthMode: AuthNone, Capabilities: []string{"lookup"}},
		},
		RouteDefaults: map[string]string{
			"work":    LaneOAuth,
			"ops":     LaneLocal,
			"project": LaneOAuth,
			"status":  LaneLocal,
			"memo":    LaneLocal,
			"word":    LaneLocal,
			"inspect": LaneOAuth,
			"deploy":  LaneOAuth,
			"prompt":  LaneOAuth,
			"report":  LaneOAuth,
			"none":    LaneLocal,
		},
		Guards: Guards{
			EnableAPIKeyLane:           false,
			RequirePaidApproval:        true,
			BlockWhenRateLimitSafeMode: true,
		},
	}
}

// DefaultDir returns the directory holding relaybot state and config.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "relaybot")
	}
	return filepath.Join(home, ".relaybot")
}

// DefaultRoutingPath returns the default routing policy file location.
func DefaultRoutingPath() string {
	return filepath.Join(DefaultDir(), "routing.yaml")
}

// LoadRouting loads the routing policy from a YAML file. Empty path falls
// back to the default location. Missing file returns defaults. Invalid
// YAML returns an error. Map fields merge over defaults key by key; list
// fields replace wholesale.
func LoadRouting(path string) (*Routing, error) {
	if path == "" {
		path = DefaultRoutingPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRouting(), nil
		}
		return nil, fmt.Errorf("failed to read routing policy: %w", err)
	}

	cfg := DefaultRouting()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse routing policy: %w", err)
	}

	return cfg, nil
}

// LaneMeta returns a lane's declared metadata. Unknown lanes fall back to
// the local-only lane so a decision always carries an auth mode.
func (r *Routing) LaneMeta(lane string) LaneConfig {
	if lc, ok := r.Lanes[lane]; ok {
		return lc
	}
	if lc, ok := r.Lanes[LaneLocal]; ok {
		return lc
	}
	return LaneConfig{AuthMode: AuthNone}
}

// DefaultLaneFor returns the default lane for a route, consulting the
// fallback route "none" when the route has no explicit default.
func (r *Routing) DefaultLaneFor(route string) string {
	if lane, ok := r.RouteDefaults[route]; ok && lane != "" {
		return lane
	}
	if lane, ok := r.RouteDefaults["none"]; ok && lane != "" {
		return lane
	}
	return LaneLocal
}

// DefaultRoutingYAML returns a commented YAML string for policy init.
func DefaultRoutingYAML() string {
	return `# relaybot routing policy
# Generated by: relaybot policy init
#
# Evaluation order per request (cannot be changed):
#   1. route_defaults[route]           -> candidate lane
#   2. feature_overrides (first match) -> replace candidate
#   3. manual override (API field)     -> auto | oauth | key
#   4. api-key lane guards             -> may block with fallback
#   5. complex-work fallback hint      -> suggestion only

version: 1

lanes:
  oauth-codex:
    auth_mode: oauth
    capabilities: [chat, code, search]
  api-key-openai:
    auth_mode: api-key
    capabilities: [chat, code, batch]
  local-only:
    auth_mode: none
    capabilities: [lookup]

route_defaults:
  work: oauth-codex
  ops: local-only
  status: local-only
  none: local-only

# feature_overrides:
#   - id: long-report-to-key
#     routes: [report]
#     keywords: ["풀버전", "full"]
#     match: any
#     target_lane: api-key-openai

guards:
  enable_api_key_lane: false
  require_paid_approval: true
  block_when_rate_limit_safe_mode: true
`
}
