package iampolicy

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
)

// fakeIAM serves canned pages. Markers are page indexes.
type fakeIAM struct {
	policyPages     [][]types.Policy
	listPoliciesErr error

	rolePages   map[string][][]string
	entitiesErr map[string]error

	descriptions map[string]string
	getPolicyErr map[string]error

	roleTagPages map[string][][]types.Tag
	roleTagsErr  map[string]error
	policyTags   map[string][]types.Tag

	tagPolicyErr map[string]error
	tagged       []*iam.TagPolicyInput
	calls        map[string]int
}

var _ awsapi.IAM = (*fakeIAM)(nil)

func (f *fakeIAM) count(op string) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// page returns the index of the page to serve and the marker of the next one.
func page(marker *string, total int) (int, *string, bool) {
	i := 0
	if marker != nil {
		i, _ = strconv.Atoi(*marker)
	}
	if i+1 < total {
		return i, aws.String(strconv.Itoa(i + 1)), true
	}
	return i, nil, false
}

func tag(k, v string) types.Tag {
	return types.Tag{Key: aws.String(k), Value: aws.String(v)}
}

func policyRef(name string) types.Policy {
	return types.Policy{
		PolicyName: aws.String(name),
		Arn:        aws.String(arn(name)),
	}
}

func arn(name string) string {
	return "arn:aws:iam::123456789012:policy/" + name
}

func (f *fakeIAM) ListPolicies(_ context.Context, in *iam.ListPoliciesInput, _ ...func(*iam.Options)) (*iam.ListPoliciesOutput, error) {
	f.count("ListPolicies")
	if f.listPoliciesErr != nil {
		return nil, f.listPoliciesErr
	}
	if in.Scope != types.PolicyScopeTypeLocal || in.PolicyUsageFilter != types.PolicyUsageTypePermissionsPolicy {
		panic("unexpected ListPolicies filter")
	}
	if len(f.policyPages) == 0 {
		return &iam.ListPoliciesOutput{}, nil
	}
	i, next, more := page(in.Marker, len(f.policyPages))
	return &iam.ListPoliciesOutput{Policies: f.policyPages[i], Marker: next, IsTruncated: more}, nil
}

func (f *fakeIAM) ListEntitiesForPolicy(_ context.Context, in *iam.ListEntitiesForPolicyInput, _ ...func(*iam.Options)) (*iam.ListEntitiesForPolicyOutput, error) {
	f.count("ListEntitiesForPolicy")
	policyArn := aws.ToString(in.PolicyArn)
	if err := f.entitiesErr[policyArn]; err != nil {
		return nil, err
	}
	if in.EntityFilter != types.EntityTypeRole {
		panic("unexpected entity filter")
	}
	pages := f.rolePages[policyArn]
	if len(pages) == 0 {
		return &iam.ListEntitiesForPolicyOutput{}, nil
	}
	i, next, more := page(in.Marker, len(pages))
	out := &iam.ListEntitiesForPolicyOutput{Marker: next, IsTruncated: more}
	for _, name := range pages[i] {
		out.PolicyRoles = append(out.PolicyRoles, types.PolicyRole{RoleName: aws.String(name)})
	}
	return out, nil
}

func (f *fakeIAM) GetPolicy(_ context.Context, in *iam.GetPolicyInput, _ ...func(*iam.Options)) (*iam.GetPolicyOutput, error) {
	f.count("GetPolicy")
	policyArn := aws.ToString(in.PolicyArn)
	if err := f.getPolicyErr[policyArn]; err != nil {
		return nil, err
	}
	out := &iam.GetPolicyOutput{Policy: &types.Policy{Arn: in.PolicyArn}}
	if d, ok := f.descriptions[policyArn]; ok {
		out.Policy.Description = aws.String(d)
	}
	return out, nil
}

func (f *fakeIAM) ListRoleTags(_ context.Context, in *iam.ListRoleTagsInput, _ ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error) {
	f.count("ListRoleTags")
	name := aws.ToString(in.RoleName)
	if err := f.roleTagsErr[name]; err != nil {
		return nil, err
	}
	pages := f.roleTagPages[name]
	if len(pages) == 0 {
		return &iam.ListRoleTagsOutput{}, nil
	}
	i, next, more := page(in.Marker, len(pages))
	return &iam.ListRoleTagsOutput{Tags: pages[i], Marker: next, IsTruncated: more}, nil
}

func (f *fakeIAM) ListPolicyTags(_ context.Context, in *iam.ListPolicyTagsInput, _ ...func(*iam.Options)) (*iam.ListPolicyTagsOutput, error) {
	f.count("ListPolicyTags")
	return &iam.ListPolicyTagsOutput{Tags: f.policyTags[aws.ToString(in.PolicyArn)]}, nil
}

func (f *fakeIAM) TagPolicy(_ context.Context, in *iam.TagPolicyInput, _ ...func(*iam.Options)) (*iam.TagPolicyOutput, error) {
	f.count("TagPolicy")
	if err := f.tagPolicyErr[aws.ToString(in.PolicyArn)]; err != nil {
		return nil, err
	}
	f.tagged = append(f.tagged, in)
	return &iam.TagPolicyOutput{}, nil
}
