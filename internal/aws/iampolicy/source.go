// Package iampolicy copies IAM role tags onto the customer-managed policies
// attached to those roles.
//
// Each policy picked by the Selector becomes one Binding whose sources are
// the roles attached to it, in the order IAM lists them. Labels of roles and
// policies are read with ListRoleTags and ListPolicyTags, and missing labels
// are written with a single TagPolicy call.
package iampolicy

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/labels"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Source implements sources.Source for role tags to policies.
type Source struct {
	client   awsapi.IAM
	selector sources.Selector
}

var _ sources.Source = (*Source)(nil)

// New creates a policy Source. A nil selector selects every
// customer-managed permissions policy in the account.
func New(client awsapi.IAM, selector sources.Selector) *Source {
	if selector == nil {
		selector = ByScope(client)
	}
	return &Source{client: client, selector: selector}
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID {
	return sources.PoliciesID
}

// Roots returns the selected policies.
func (s *Source) Roots(ctx context.Context) ([]sources.Object, error) {
	policies, err := s.selector.Select(ctx)
	if err != nil {
		if errors.IsListing(err) {
			return nil, err
		}
		return nil, errors.WrapListing("policies", "", err)
	}
	return policies, nil
}

// Expand returns a single binding of policy to its attached roles. A policy
// with no attached roles still yields a binding so it is counted as
// processed.
func (s *Source) Expand(ctx context.Context, policy sources.Object) ([]sources.Binding, error) {
	logger := logging.FromContext(ctx)

	var roles []sources.Object
	p := iam.NewListEntitiesForPolicyPaginator(s.client, &iam.ListEntitiesForPolicyInput{
		PolicyArn:    aws.String(policy.ID),
		EntityFilter: types.EntityTypeRole,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.WrapListing("roles", policy.ID,
				awsapi.Classify(awsapi.ServiceIAM, "ListEntitiesForPolicy", err))
		}
		for _, r := range page.PolicyRoles {
			name := aws.ToString(r.RoleName)
			if name == "" {
				continue
			}
			roles = append(roles, sources.Object{Kind: sources.KindRole, ID: name, Name: name})
		}
	}

	logger.Debug().
		Str("policy", policy.DisplayName()).
		Int("roles", len(roles)).
		Msg("Listed roles attached to policy")

	return []sources.Binding{{Target: policy, Sources: roles}}, nil
}

// Labels returns the tags of a role or policy.
func (s *Source) Labels(ctx context.Context, obj sources.Object) (labels.Set, error) {
	if obj.Labels != nil {
		return obj.Labels, nil
	}

	switch obj.Kind {
	case sources.KindRole:
		set, err := s.roleTags(ctx, obj.ID)
		return set, errors.WrapLabelFetch(string(obj.Kind), obj.ID, err)
	case sources.KindPolicy:
		set, err := s.policyTags(ctx, obj.ID)
		return set, errors.WrapLabelFetch(string(obj.Kind), obj.ID, err)
	default:
		return nil, errors.WrapLabelFetch(string(obj.Kind), obj.ID,
			errors.NewValidationError("kind", obj.Kind, "unsupported object kind"))
	}
}

// Apply writes delta to the policy with one TagPolicy call.
func (s *Source) Apply(ctx context.Context, target sources.Object, delta labels.Set) error {
	_, err := s.client.TagPolicy(ctx, &iam.TagPolicyInput{
		PolicyArn: aws.String(target.ID),
		Tags:      toTags(delta),
	})
	if err != nil {
		return errors.WrapApply(string(target.Kind), target.ID, delta.Keys(),
			awsapi.Classify(awsapi.ServiceIAM, "TagPolicy", err))
	}
	return nil
}

func (s *Source) roleTags(ctx context.Context, roleName string) (labels.Set, error) {
	set := labels.Set{}
	var marker *string
	for {
		out, err := s.client.ListRoleTags(ctx, &iam.ListRoleTagsInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, awsapi.Classify(awsapi.ServiceIAM, "ListRoleTags", err)
		}
		set = set.Union(fromTags(out.Tags))
		if !out.IsTruncated || out.Marker == nil {
			return set, nil
		}
		marker = out.Marker
	}
}

func (s *Source) policyTags(ctx context.Context, policyArn string) (labels.Set, error) {
	set := labels.Set{}
	var marker *string
	for {
		out, err := s.client.ListPolicyTags(ctx, &iam.ListPolicyTagsInput{
			PolicyArn: aws.String(policyArn),
			Marker:    marker,
		})
		if err != nil {
			return nil, awsapi.Classify(awsapi.ServiceIAM, "ListPolicyTags", err)
		}
		set = set.Union(fromTags(out.Tags))
		if !out.IsTruncated || out.Marker == nil {
			return set, nil
		}
		marker = out.Marker
	}
}

func fromTags(tags []types.Tag) labels.Set {
	pairs := make([]labels.Pair, 0, len(tags))
	for _, t := range tags {
		pairs = append(pairs, labels.Pair{Key: t.Key, Value: t.Value})
	}
	return labels.FromPairs(pairs)
}

func toTags(set labels.Set) []types.Tag {
	pairs := set.Pairs()
	tags := make([]types.Tag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, types.Tag{Key: p.Key, Value: p.Value})
	}
	return tags
}
