// Package awsapi holds the narrow AWS client interfaces used by the tag
// sources, plus config loading and API error classification.
package awsapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Service names used in APIError.
const (
	ServiceIAM            = "iam"
	ServiceCloudFormation = "cloudformation"
	ServiceTagging        = "tagging"
	ServiceSTS            = "sts"
)

// IAM is the subset of the IAM API needed to copy role tags onto policies.
type IAM interface {
	iam.ListPoliciesAPIClient
	iam.ListEntitiesForPolicyAPIClient
	GetPolicy(ctx context.Context, params *iam.GetPolicyInput, optFns ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
	ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error)
	ListPolicyTags(ctx context.Context, params *iam.ListPolicyTagsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyTagsOutput, error)
	TagPolicy(ctx context.Context, params *iam.TagPolicyInput, optFns ...func(*iam.Options)) (*iam.TagPolicyOutput, error)
}

// CloudFormation is the subset of the CloudFormation API needed to read stacks.
type CloudFormation interface {
	cloudformation.ListStacksAPIClient
	cloudformation.DescribeStacksAPIClient
}

// Tagging is the subset of the Resource Groups Tagging API needed to list
// and tag stack resources.
type Tagging interface {
	resourcegroupstaggingapi.GetResourcesAPIClient
	TagResources(ctx context.Context, params *resourcegroupstaggingapi.TagResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.TagResourcesOutput, error)
}

// STS resolves the account of the calling credentials.
type STS interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Clients bundles the service clients for one account and region.
type Clients struct {
	Region         string
	IAM            IAM
	CloudFormation CloudFormation
	Tagging        Tagging
	STS            STS
}

// NewClients creates the service clients from cfg.
func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		Region:         cfg.Region,
		IAM:            iam.NewFromConfig(cfg),
		CloudFormation: cloudformation.NewFromConfig(cfg),
		Tagging:        resourcegroupstaggingapi.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
	}
}
