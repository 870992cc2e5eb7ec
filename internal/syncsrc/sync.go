// Package syncsrc builds the sources.Source for a configured variant.
package syncsrc

import (
	"fmt"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/internal/aws/iampolicy"
	"github.com/agentstation/tagsync/internal/aws/stack"
	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Build creates the source selected by opts.
func Build(clients *awsapi.Clients, opts ...Option) (sources.Source, error) {
	cfg := newConfig(clients, opts...)
	available, err := available(cfg)
	if err != nil {
		return nil, err
	}

	src, ok := available.Get(cfg.Mode)
	if !ok {
		return nil, errors.NewValidationError("mode", cfg.Mode,
			fmt.Sprintf("no source registered, available: %v", available.IDs()))
	}
	return src, nil
}

func newConfig(clients *awsapi.Clients, opts ...Option) *Config {
	cfg := DefaultConfig(clients)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// available creates every variant from one configuration. Settings for all
// variants are validated, whichever mode is selected.
func available(cfg *Config) (*sources.Sources, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	selector, err := policySelector(cfg)
	if err != nil {
		return nil, err
	}
	statuses, err := stack.ParseStatuses(cfg.StackStatuses)
	if err != nil {
		return nil, err
	}

	return sources.NewSources(
		iampolicy.New(cfg.Clients.IAM, selector),
		stack.New(cfg.Clients.CloudFormation, cfg.Clients.Tagging, statuses...),
	), nil
}

func policySelector(cfg *Config) (sources.Selector, error) {
	switch {
	case cfg.PolicyName != "":
		return iampolicy.ByName(cfg.Clients.IAM, cfg.PolicyName), nil
	case cfg.PolicyDescription != "":
		return iampolicy.ByDescriptionPattern(cfg.Clients.IAM, cfg.PolicyDescription)
	default:
		return iampolicy.ByScope(cfg.Clients.IAM), nil
	}
}
