package syncsrc

import (
	"github.com/agentstation/tagsync/pkg/sources"
)

// Option configures source building.
type Option func(*Config)

// WithMode selects the variant to build.
func WithMode(mode sources.ID) Option {
	return func(cfg *Config) {
		if mode != "" {
			cfg.Mode = mode
		}
	}
}

// WithPolicyName restricts the policies variant to one policy.
func WithPolicyName(name string) Option {
	return func(cfg *Config) {
		cfg.PolicyName = name
	}
}

// WithPolicyDescription restricts the policies variant to policies whose
// description matches the regular expression expr.
func WithPolicyDescription(expr string) Option {
	return func(cfg *Config) {
		cfg.PolicyDescription = expr
	}
}

// WithStackStatuses sets the stack statuses the stacks variant lists.
func WithStackStatuses(statuses ...string) Option {
	return func(cfg *Config) {
		cfg.StackStatuses = statuses
	}
}
