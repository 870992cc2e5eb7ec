package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	pkgerrors "github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/sources"
)

const policyArn = "arn:aws:iam::123456789012:policy/deploy"

// fakeAWS serves one policy attached to one tagged role, and no stacks.
type fakeAWS struct {
	tagged      []*iam.TagPolicyInput
	regions     []string
	identityErr error
}

func (f *fakeAWS) ListPolicies(context.Context, *iam.ListPoliciesInput, ...func(*iam.Options)) (*iam.ListPoliciesOutput, error) {
	return &iam.ListPoliciesOutput{Policies: []types.Policy{{
		Arn:        aws.String(policyArn),
		PolicyName: aws.String("deploy"),
	}}}, nil
}

func (f *fakeAWS) ListEntitiesForPolicy(context.Context, *iam.ListEntitiesForPolicyInput, ...func(*iam.Options)) (*iam.ListEntitiesForPolicyOutput, error) {
	return &iam.ListEntitiesForPolicyOutput{PolicyRoles: []types.PolicyRole{{RoleName: aws.String("deployer")}}}, nil
}

func (f *fakeAWS) GetPolicy(_ context.Context, in *iam.GetPolicyInput, _ ...func(*iam.Options)) (*iam.GetPolicyOutput, error) {
	return &iam.GetPolicyOutput{Policy: &types.Policy{Arn: in.PolicyArn, Description: aws.String("deploy access")}}, nil
}

func (f *fakeAWS) ListRoleTags(context.Context, *iam.ListRoleTagsInput, ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error) {
	return &iam.ListRoleTagsOutput{Tags: []types.Tag{{Key: aws.String("team"), Value: aws.String("x")}}}, nil
}

func (f *fakeAWS) ListPolicyTags(context.Context, *iam.ListPolicyTagsInput, ...func(*iam.Options)) (*iam.ListPolicyTagsOutput, error) {
	return &iam.ListPolicyTagsOutput{}, nil
}

func (f *fakeAWS) TagPolicy(_ context.Context, in *iam.TagPolicyInput, _ ...func(*iam.Options)) (*iam.TagPolicyOutput, error) {
	f.tagged = append(f.tagged, in)
	return &iam.TagPolicyOutput{}, nil
}

func (f *fakeAWS) ListStacks(context.Context, *cloudformation.ListStacksInput, ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	return &cloudformation.ListStacksOutput{}, nil
}

func (f *fakeAWS) DescribeStacks(context.Context, *cloudformation.DescribeStacksInput, ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return &cloudformation.DescribeStacksOutput{}, nil
}

func (f *fakeAWS) GetResources(context.Context, *resourcegroupstaggingapi.GetResourcesInput, ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	return &resourcegroupstaggingapi.GetResourcesOutput{}, nil
}

func (f *fakeAWS) TagResources(context.Context, *resourcegroupstaggingapi.TagResourcesInput, ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.TagResourcesOutput, error) {
	return &resourcegroupstaggingapi.TagResourcesOutput{}, nil
}

func (f *fakeAWS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String("123456789012")}, nil
}

func (f *fakeAWS) clients(_ context.Context, region string) (*awsapi.Clients, error) {
	f.regions = append(f.regions, region)
	return &awsapi.Clients{Region: region, IAM: f, CloudFormation: f, Tagging: f, STS: f}, nil
}

func newTestApp(t *testing.T, config *Config) (*App, *fakeAWS, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	fake := &fakeAWS{}
	buf := &bytes.Buffer{}
	a, err := New("1.2.3", "abc123", "2026-10-18", "test",
		WithConfig(config),
		WithLogger(logging.NewNopLogger()),
		WithClients(fake.clients),
		WithOutput(buf),
	)
	require.NoError(t, err)
	return a, fake, buf
}

func baseConfig() *Config {
	return &Config{
		Region:    "us-east-1",
		Mode:      sources.PoliciesID,
		LogFormat: "json",
		LogOutput: "discard",
	}
}

func decodeSummary(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	return out
}

func TestExecute_SyncPolicies(t *testing.T) {
	a, fake, buf := newTestApp(t, baseConfig())

	err := a.Execute(context.Background(), []string{"sync", "policies", "-o", "json"})
	require.NoError(t, err)

	summary := decodeSummary(t, buf)
	assert.Equal(t, "policies", summary["source"])
	assert.Equal(t, "123456789012", summary["account"])
	assert.EqualValues(t, 1, summary["objectsProcessed"])
	assert.EqualValues(t, 1, summary["objectsTagged"])
	assert.Equal(t, []any{}, summary["errors"])

	require.Len(t, fake.tagged, 1)
	assert.Equal(t, policyArn, aws.ToString(fake.tagged[0].PolicyArn))
	assert.Equal(t, []string{"us-east-1"}, fake.regions)
}

func TestExecute_AccountLookupFailureIsNotFatal(t *testing.T) {
	a, fake, buf := newTestApp(t, baseConfig())
	fake.identityErr = errors.New("expired token")

	require.NoError(t, a.Execute(context.Background(), []string{"sync", "policies", "-o", "json"}))

	summary := decodeSummary(t, buf)
	assert.NotContains(t, summary, "account")
	assert.EqualValues(t, 1, summary["objectsTagged"])
}

func TestExecute_FlagsOverrideConfig(t *testing.T) {
	a, fake, buf := newTestApp(t, baseConfig())

	err := a.Execute(context.Background(), []string{
		"sync", "policies", "--dry-run", "--region", "eu-west-1", "--policy-name", "deploy", "--format", "yaml",
	})
	require.NoError(t, err)

	assert.Empty(t, fake.tagged)
	assert.Equal(t, []string{"eu-west-1"}, fake.regions)
	assert.Equal(t, "deploy", a.Config().PolicyName)
	assert.Contains(t, buf.String(), "dryRun: true")
	assert.Contains(t, buf.String(), "labelsAdded: 1")
}

func TestExecute_SyncStacks(t *testing.T) {
	a, _, buf := newTestApp(t, baseConfig())

	err := a.Execute(context.Background(), []string{"sync", "stacks", "--status", "UPDATE_COMPLETE", "-o", "json"})
	require.NoError(t, err)

	summary := decodeSummary(t, buf)
	assert.Equal(t, "stacks", summary["source"])
	assert.EqualValues(t, 0, summary["objectsProcessed"])
	assert.Equal(t, []string{"UPDATE_COMPLETE"}, a.Config().StackStatuses)
}

func TestExecute_SyncUsesConfiguredMode(t *testing.T) {
	config := baseConfig()
	config.Mode = sources.StacksID
	a, _, buf := newTestApp(t, config)

	require.NoError(t, a.Execute(context.Background(), []string{"sync", "-o", "json"}))
	assert.Equal(t, "stacks", decodeSummary(t, buf)["source"])
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Config)
		args  []string
		check func(error) bool
	}{
		{
			name:  "missing region",
			setup: func(c *Config) { c.Region = "" },
			args:  []string{"sync", "policies"},
			check: func(err error) bool {
				var cfgErr *pkgerrors.ConfigError
				return pkgerrors.As(err, &cfgErr)
			},
		},
		{
			name:  "invalid format",
			args:  []string{"sync", "policies", "-o", "xml"},
			check: pkgerrors.IsValidationError,
		},
		{
			name:  "invalid status",
			args:  []string{"sync", "stacks", "--status", "DONE"},
			check: pkgerrors.IsValidationError,
		},
		{
			name:  "invalid description pattern",
			args:  []string{"sync", "policies", "--description", "("},
			check: pkgerrors.IsValidationError,
		},
		{
			name:  "negative timeout",
			args:  []string{"sync", "policies", "--timeout", "-1s"},
			check: pkgerrors.IsValidationError,
		},
		{
			name:  "name and description",
			args:  []string{"sync", "policies", "--policy-name", "a", "--description", "b"},
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := baseConfig()
			if tt.setup != nil {
				tt.setup(config)
			}
			a, fake, _ := newTestApp(t, config)

			err := a.Execute(context.Background(), tt.args)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Empty(t, fake.tagged)
		})
	}
}

func TestExecute_Version(t *testing.T) {
	a, _, buf := newTestApp(t, baseConfig())

	require.NoError(t, a.Execute(context.Background(), []string{"version"}))
	assert.Equal(t, "tagsync 1.2.3\n", buf.String())

	buf.Reset()
	require.NoError(t, a.Execute(context.Background(), []string{"version", "-v"}))
	assert.Contains(t, buf.String(), "commit:   abc123")
}

func TestOptionsRejectNil(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := New("dev", "", "", "", WithConfig(nil))
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = New("dev", "", "", "", WithClients(nil))
	assert.True(t, pkgerrors.IsValidationError(err))
}
