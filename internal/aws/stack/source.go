// Package stack copies CloudFormation stack tags onto the resources that
// belong to each stack.
//
// Stacks are listed by status. Each tagged stack expands into one Binding per
// resource, found through the Resource Groups Tagging API by the
// aws:cloudformation:stack-name tag. Resource tags come back with that
// listing, so targets carry their labels and need no second read.
package stack

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/smithy-go"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/labels"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/sources"
)

// StackNameTag is the tag CloudFormation puts on every resource it creates.
const StackNameTag = "aws:cloudformation:stack-name"

// DefaultStatuses are the stack states whose resources are synchronized.
var DefaultStatuses = []cftypes.StackStatus{
	cftypes.StackStatusCreateComplete,
	cftypes.StackStatusUpdateComplete,
}

// Source implements sources.Source for stack tags to resources.
type Source struct {
	cfn      awsapi.CloudFormation
	tagging  awsapi.Tagging
	statuses []cftypes.StackStatus
}

var _ sources.Source = (*Source)(nil)

// New creates a stack Source listing stacks in statuses, or in
// DefaultStatuses when none are given.
func New(cfn awsapi.CloudFormation, tagging awsapi.Tagging, statuses ...cftypes.StackStatus) *Source {
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}
	return &Source{cfn: cfn, tagging: tagging, statuses: statuses}
}

// ParseStatuses converts status names such as "UPDATE_COMPLETE" into stack
// statuses. Names are matched case-insensitively.
func ParseStatuses(names []string) ([]cftypes.StackStatus, error) {
	known := cftypes.StackStatus("").Values()
	out := make([]cftypes.StackStatus, 0, len(names))
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		found := false
		for _, k := range known {
			if string(k) == name {
				out = append(out, k)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewValidationError("status", name, "unknown stack status")
		}
	}
	return out, nil
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID {
	return sources.StacksID
}

// Roots lists the stacks in the configured statuses.
func (s *Source) Roots(ctx context.Context) ([]sources.Object, error) {
	var stacks []sources.Object
	p := cloudformation.NewListStacksPaginator(s.cfn, &cloudformation.ListStacksInput{
		StackStatusFilter: s.statuses,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.WrapListing("stacks", "",
				awsapi.Classify(awsapi.ServiceCloudFormation, "ListStacks", err))
		}
		for _, summary := range page.StackSummaries {
			name := aws.ToString(summary.StackName)
			stacks = append(stacks, sources.Object{Kind: sources.KindStack, ID: name, Name: name})
		}
	}
	return stacks, nil
}

// Expand returns one binding per resource of stack. A stack without tags
// has nothing to copy, so its resources are not listed.
func (s *Source) Expand(ctx context.Context, stack sources.Object) ([]sources.Binding, error) {
	logger := logging.FromContext(ctx).With().Str("stack", stack.ID).Logger()

	tags := stack.Labels
	if tags == nil {
		var err error
		tags, err = s.stackTags(ctx, stack.ID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to fetch stack tags, treating as empty")
			tags = labels.Set{}
		}
	}
	if len(tags) == 0 {
		logger.Info().Msg("Stack has no tags to apply")
		return nil, nil
	}
	logger.Debug().Stringer("labels", tags).Msg("Found stack tags")

	source := stack
	source.Labels = tags

	resources, err := s.resources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
		TagFilters: []tagtypes.TagFilter{{
			Key:    aws.String(StackNameTag),
			Values: []string{stack.ID},
		}},
	})
	if err != nil {
		return nil, errors.WrapListing("resources", stack.ID, err)
	}
	logger.Info().Int("count", len(resources)).Msg("Found resources in stack")

	bindings := make([]sources.Binding, 0, len(resources))
	for _, res := range resources {
		bindings = append(bindings, sources.Binding{
			Target:  res,
			Sources: []sources.Object{source},
		})
	}
	return bindings, nil
}

// Labels returns the tags of a stack or a resource.
func (s *Source) Labels(ctx context.Context, obj sources.Object) (labels.Set, error) {
	if obj.Labels != nil {
		return obj.Labels, nil
	}

	switch obj.Kind {
	case sources.KindStack:
		set, err := s.stackTags(ctx, obj.ID)
		return set, errors.WrapLabelFetch(string(obj.Kind), obj.ID, err)
	case sources.KindResource:
		resources, err := s.resources(ctx, &resourcegroupstaggingapi.GetResourcesInput{
			ResourceARNList: []string{obj.ID},
		})
		if err != nil {
			return nil, errors.WrapLabelFetch(string(obj.Kind), obj.ID, err)
		}
		if len(resources) == 0 {
			return labels.Set{}, nil
		}
		return resources[0].Labels, nil
	default:
		return nil, errors.WrapLabelFetch(string(obj.Kind), obj.ID,
			errors.NewValidationError("kind", obj.Kind, "unsupported object kind"))
	}
}

// Apply writes delta to one resource with a single TagResources call.
func (s *Source) Apply(ctx context.Context, target sources.Object, delta labels.Set) error {
	out, err := s.tagging.TagResources(ctx, &resourcegroupstaggingapi.TagResourcesInput{
		ResourceARNList: []string{target.ID},
		Tags:            delta.Clone(),
	})
	if err != nil {
		return errors.WrapApply(string(target.Kind), target.ID, delta.Keys(),
			awsapi.Classify(awsapi.ServiceTagging, "TagResources", err))
	}
	// Only one ARN is sent, so any entry in the failure map is the target.
	if len(out.FailedResourcesMap) > 0 {
		return errors.WrapApply(string(target.Kind), target.ID, delta.Keys(),
			failureError(out.FailedResourcesMap[target.ID]))
	}
	return nil
}

// stackTags reads the tags of a stack. A stack that no longer exists has no
// tags.
func (s *Source) stackTags(ctx context.Context, name string) (labels.Set, error) {
	out, err := s.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		if isStackNotFound(err) {
			logging.FromContext(ctx).Warn().Str("stack", name).Msg("Stack not found")
			return labels.Set{}, nil
		}
		return nil, awsapi.Classify(awsapi.ServiceCloudFormation, "DescribeStacks", err)
	}
	if len(out.Stacks) == 0 {
		return labels.Set{}, nil
	}

	pairs := make([]labels.Pair, 0, len(out.Stacks[0].Tags))
	for _, t := range out.Stacks[0].Tags {
		pairs = append(pairs, labels.Pair{Key: t.Key, Value: t.Value})
	}
	return labels.FromPairs(pairs), nil
}

// resources pages through GetResources and returns each resource with its
// tags.
func (s *Source) resources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput) ([]sources.Object, error) {
	var objs []sources.Object
	p := resourcegroupstaggingapi.NewGetResourcesPaginator(s.tagging, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, awsapi.Classify(awsapi.ServiceTagging, "GetResources", err)
		}
		for _, m := range page.ResourceTagMappingList {
			objs = append(objs, toObject(m))
		}
	}
	return objs, nil
}

func toObject(m tagtypes.ResourceTagMapping) sources.Object {
	pairs := make([]labels.Pair, 0, len(m.Tags))
	for _, t := range m.Tags {
		pairs = append(pairs, labels.Pair{Key: t.Key, Value: t.Value})
	}
	arn := aws.ToString(m.ResourceARN)
	return sources.Object{
		Kind:   sources.KindResource,
		ID:     arn,
		Name:   arn,
		Labels: labels.FromPairs(pairs),
	}
}

// isStackNotFound reports whether err is the ValidationError CloudFormation
// returns for an unknown stack name.
func isStackNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "StackNotFoundException":
		return true
	case "ValidationError":
		return strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}
	return false
}

func failureError(f tagtypes.FailureInfo) error {
	msg := aws.ToString(f.ErrorMessage)
	if msg == "" {
		msg = "resource not tagged"
	}
	return &errors.APIError{
		Service:   awsapi.ServiceTagging,
		Operation: "TagResources",
		Code:      string(f.ErrorCode),
		Message:   msg,
	}
}
