package iampolicy

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/sources"
)

// ByScope selects every customer-managed permissions policy in the account.
func ByScope(client awsapi.IAM) sources.Selector {
	return sources.SelectorFunc(func(ctx context.Context) ([]sources.Object, error) {
		policies, err := listPolicies(ctx, client)
		if err != nil {
			return nil, err
		}
		objs := make([]sources.Object, 0, len(policies))
		for _, p := range policies {
			objs = append(objs, toObject(p))
		}
		return objs, nil
	})
}

// ByName selects the customer-managed policy called name. Selecting a name
// that does not exist yields no policies.
func ByName(client awsapi.IAM, name string) sources.Selector {
	return sources.SelectorFunc(func(ctx context.Context) ([]sources.Object, error) {
		policies, err := listPolicies(ctx, client)
		if err != nil {
			return nil, err
		}
		for _, p := range policies {
			if aws.ToString(p.PolicyName) == name {
				return []sources.Object{toObject(p)}, nil
			}
		}
		logging.FromContext(ctx).Warn().Str("policy", name).Msg("Policy not found")
		return nil, nil
	})
}

// ByDescription selects customer-managed policies whose description matches
// re. ListPolicies does not return descriptions, so every candidate costs a
// GetPolicy call; a candidate whose description cannot be read is skipped.
func ByDescription(client awsapi.IAM, re *regexp.Regexp) sources.Selector {
	return sources.SelectorFunc(func(ctx context.Context) ([]sources.Object, error) {
		logger := logging.FromContext(ctx)

		policies, err := listPolicies(ctx, client)
		if err != nil {
			return nil, err
		}

		var objs []sources.Object
		for _, p := range policies {
			out, err := client.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: p.Arn})
			if err != nil {
				logger.Error().
					Err(awsapi.Classify(awsapi.ServiceIAM, "GetPolicy", err)).
					Str("policy", aws.ToString(p.PolicyName)).
					Msg("Failed to read policy description, skipping")
				continue
			}
			if out.Policy == nil || !re.MatchString(aws.ToString(out.Policy.Description)) {
				continue
			}
			objs = append(objs, toObject(p))
		}
		return objs, nil
	})
}

// ByDescriptionPattern compiles expr and returns a ByDescription selector.
func ByDescriptionPattern(client awsapi.IAM, expr string) (sources.Selector, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.WrapValidation("description", err)
	}
	return ByDescription(client, re), nil
}

func listPolicies(ctx context.Context, client awsapi.IAM) ([]types.Policy, error) {
	var policies []types.Policy
	p := iam.NewListPoliciesPaginator(client, &iam.ListPoliciesInput{
		Scope:             types.PolicyScopeTypeLocal,
		PolicyUsageFilter: types.PolicyUsageTypePermissionsPolicy,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.WrapListing("policies", "",
				awsapi.Classify(awsapi.ServiceIAM, "ListPolicies", err))
		}
		policies = append(policies, page.Policies...)
	}
	return policies, nil
}

func toObject(p types.Policy) sources.Object {
	return sources.Object{
		Kind: sources.KindPolicy,
		ID:   aws.ToString(p.Arn),
		Name: aws.ToString(p.PolicyName),
	}
}
