package stack

import (
	"context"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/smithy-go"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
)

type fakeCFN struct {
	stackPages    [][]string
	listErr       error
	gotStatuses   []cftypes.StackStatus
	tags          map[string][]cftypes.Tag
	describeErr   map[string]error
	describeCalls int
}

var _ awsapi.CloudFormation = (*fakeCFN)(nil)

func (f *fakeCFN) ListStacks(_ context.Context, in *cloudformation.ListStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	f.gotStatuses = in.StackStatusFilter
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.stackPages) == 0 {
		return &cloudformation.ListStacksOutput{}, nil
	}
	i, next := page(in.NextToken, len(f.stackPages))
	out := &cloudformation.ListStacksOutput{NextToken: next}
	for _, name := range f.stackPages[i] {
		out.StackSummaries = append(out.StackSummaries, cftypes.StackSummary{
			StackName:   aws.String(name),
			StackStatus: cftypes.StackStatusCreateComplete,
		})
	}
	return out, nil
}

func (f *fakeCFN) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.describeCalls++
	name := aws.ToString(in.StackName)
	if err := f.describeErr[name]; err != nil {
		return nil, err
	}
	tags, ok := f.tags[name]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id " + name + " does not exist"}
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{{
		StackName: in.StackName,
		Tags:      tags,
	}}}, nil
}

type fakeResource struct {
	arn  string
	tags map[string]string
}

type fakeTagging struct {
	// resources maps a stack name to pages of its resources.
	resources map[string][][]fakeResource
	getErr    map[string]error
	getCalls  int

	tagErr   error
	failures map[string]tagtypes.FailureInfo
	tagged   []*resourcegroupstaggingapi.TagResourcesInput
}

var _ awsapi.Tagging = (*fakeTagging)(nil)

func (f *fakeTagging) GetResources(_ context.Context, in *resourcegroupstaggingapi.GetResourcesInput, _ ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	f.getCalls++

	var pages [][]fakeResource
	switch {
	case len(in.TagFilters) == 1 && aws.ToString(in.TagFilters[0].Key) == StackNameTag:
		stack := in.TagFilters[0].Values[0]
		if err := f.getErr[stack]; err != nil {
			return nil, err
		}
		pages = f.resources[stack]
	case len(in.ResourceARNList) > 0:
		var match []fakeResource
		for _, ps := range f.resources {
			for _, p := range ps {
				for _, r := range p {
					if slices.Contains(in.ResourceARNList, r.arn) {
						match = append(match, r)
					}
				}
			}
		}
		pages = [][]fakeResource{match}
	default:
		panic("unexpected GetResources filter")
	}

	if len(pages) == 0 {
		return &resourcegroupstaggingapi.GetResourcesOutput{}, nil
	}
	i, next := page(in.PaginationToken, len(pages))
	out := &resourcegroupstaggingapi.GetResourcesOutput{PaginationToken: next}
	for _, r := range pages[i] {
		m := tagtypes.ResourceTagMapping{ResourceARN: aws.String(r.arn)}
		for k, v := range r.tags {
			m.Tags = append(m.Tags, tagtypes.Tag{Key: aws.String(k), Value: aws.String(v)})
		}
		out.ResourceTagMappingList = append(out.ResourceTagMappingList, m)
	}
	return out, nil
}

func (f *fakeTagging) TagResources(_ context.Context, in *resourcegroupstaggingapi.TagResourcesInput, _ ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.TagResourcesOutput, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	out := &resourcegroupstaggingapi.TagResourcesOutput{}
	for _, arn := range in.ResourceARNList {
		if failure, ok := f.failures[arn]; ok {
			if out.FailedResourcesMap == nil {
				out.FailedResourcesMap = make(map[string]tagtypes.FailureInfo)
			}
			out.FailedResourcesMap[arn] = failure
		}
	}
	if len(out.FailedResourcesMap) == 0 {
		f.tagged = append(f.tagged, in)
	}
	return out, nil
}

// page returns the index of the page to serve and the token of the next one.
func page(token *string, total int) (int, *string) {
	i := 0
	if token != nil {
		i, _ = strconv.Atoi(*token)
	}
	if i+1 < total {
		return i, aws.String(strconv.Itoa(i + 1))
	}
	return i, nil
}

func cfTag(k, v string) cftypes.Tag {
	return cftypes.Tag{Key: aws.String(k), Value: aws.String(v)}
}
