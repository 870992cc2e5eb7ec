package awsapi

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/agentstation/tagsync/pkg/errors"
)

// LoadConfig loads the default AWS config (credentials chain, shared
// config files) pinned to region.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		return aws.Config{}, errors.NewConfigError("aws", "region is required", nil)
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, errors.NewConfigError("aws", "loading default config", err)
	}
	return cfg, nil
}

// AccountFromARN returns the account field of an ARN such as a Lambda
// function ARN, or "" when arn is malformed.
func AccountFromARN(arn string) string {
	// arn:partition:service:region:account:resource
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 || parts[0] != "arn" {
		return ""
	}
	return parts[4]
}

// CallerAccount returns the account of the credentials behind client.
// A nil client yields "".
func CallerAccount(ctx context.Context, client STS) (string, error) {
	if client == nil {
		return "", nil
	}
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", Classify(ServiceSTS, "GetCallerIdentity", err)
	}
	return aws.ToString(out.Account), nil
}
