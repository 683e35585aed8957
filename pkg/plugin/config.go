package plugin

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyConfig is the YAML document controlling which capabilities a loaded
// plugin may exercise.
type PolicyConfig struct {
	Policy IsolationPolicy `yaml:"policy"`
}

// IsolationPolicy governs the capabilities granted to a plugin.
type IsolationPolicy struct {
	AllowedCapabilities []Capability `yaml:"allowedCapabilities"`
	DeniedCapabilities  []Capability `yaml:"deniedCapabilities"`
}

// LoadPolicy reads a YAML policy file. An empty path yields an empty policy,
// which grants every capability the plugin implements.
func LoadPolicy(path string) (IsolationPolicy, error) {
	if path == "" {
		return IsolationPolicy{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return IsolationPolicy{}, fmt.Errorf("read plugin policy: %w", err)
	}
	var cfg PolicyConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return IsolationPolicy{}, fmt.Errorf("unmarshal plugin policy: %w", err)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return IsolationPolicy{}, err
	}
	return cfg.Policy, nil
}

// Validate rejects capabilities that are both allowed and denied.
func (p IsolationPolicy) Validate() error {
	denied := make(map[Capability]struct{}, len(p.DeniedCapabilities))
	for _, c := range p.DeniedCapabilities {
		if c == "" {
			return errors.New("denied capability cannot be empty")
		}
		denied[c] = struct{}{}
	}
	for _, c := range p.AllowedCapabilities {
		if _, ok := denied[c]; ok {
			return fmt.Errorf("capability %s is both allowed and denied", c)
		}
	}
	return nil
}
