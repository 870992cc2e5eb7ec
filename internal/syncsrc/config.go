package syncsrc

import (
	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Config contains all configuration needed to build a source.
type Config struct {
	Mode    sources.ID
	Clients *awsapi.Clients

	// Policy selection. At most one of PolicyName and PolicyDescription is
	// set; neither means every customer-managed policy.
	PolicyName        string
	PolicyDescription string

	// StackStatuses are stack status names such as "CREATE_COMPLETE".
	StackStatuses []string
}

// DefaultConfig creates a new config for the policies variant.
func DefaultConfig(clients *awsapi.Clients) *Config {
	return &Config{
		Mode:    sources.PoliciesID,
		Clients: clients,
	}
}

// Validate checks that the config names a known variant with consistent
// selection settings.
func (c *Config) Validate() error {
	if c.Clients == nil {
		return errors.NewValidationError("clients", nil, "AWS clients are required")
	}
	if !c.Mode.IsValid() {
		return errors.NewValidationError("mode", c.Mode, "must be one of: policies, stacks")
	}
	if c.PolicyName != "" && c.PolicyDescription != "" {
		return errors.NewValidationError("policy", c.PolicyName,
			"policy name and description filters are mutually exclusive")
	}
	return nil
}
