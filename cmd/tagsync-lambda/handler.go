package main

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/agentstation/tagsync/cmd/tagsync/app"
	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/internal/syncsrc"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/reconciler"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Event optionally overrides the environment configuration for one
// invocation. Scheduled events carry none of these fields and run with the
// environment settings unchanged.
type Event struct {
	Mode              string `json:"mode,omitempty"`
	PolicyName        string `json:"policyName,omitempty"`
	PolicyDescription string `json:"policyDescription,omitempty"`
	DryRun            *bool  `json:"dryRun,omitempty"`
}

// reportMargin is the time kept back from the invocation deadline so an
// interrupted run can still return its summary.
const reportMargin = 3 * time.Second

type handler struct {
	loadConfig func() (*app.Config, error)
	clients    app.ClientsFunc
}

func newHandler() *handler {
	return &handler{
		loadConfig: app.LoadConfig,
		clients: func(ctx context.Context, region string) (*awsapi.Clients, error) {
			cfg, err := awsapi.LoadConfig(ctx, region)
			if err != nil {
				return nil, err
			}
			return awsapi.NewClients(cfg), nil
		},
	}
}

// Handle runs one pass. Only configuration problems are returned as errors;
// failures on individual objects are reported in the summary.
func (h *handler) Handle(ctx context.Context, event Event) (*reconciler.Summary, error) {
	config, err := h.loadConfig()
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Failed to load configuration")
		return nil, err
	}
	event.apply(config)

	logger := app.NewLogger(config)
	ctx = logging.WithLogger(ctx, &logger)

	var account string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		ctx = logging.WithRequestID(ctx, lc.AwsRequestID)
		account = awsapi.AccountFromARN(lc.InvokedFunctionArn)
	}

	if err := config.Validate(); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Invalid configuration")
		return nil, err
	}

	clients, err := h.clients(ctx, config.Region)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Failed to create AWS clients")
		return nil, err
	}

	src, err := syncsrc.Build(clients,
		syncsrc.WithMode(config.Mode),
		syncsrc.WithPolicyName(config.PolicyName),
		syncsrc.WithPolicyDescription(config.PolicyDescription),
		syncsrc.WithStackStatuses(config.StackStatuses...),
	)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("Invalid source configuration")
		return nil, err
	}

	r, err := reconciler.New(src,
		reconciler.WithDryRun(config.DryRun),
		reconciler.WithTimeout(runTimeout(ctx, config.Timeout)),
		reconciler.WithAccount(account),
		reconciler.WithRegion(config.Region),
	)
	if err != nil {
		return nil, err
	}

	return r.Run(ctx), nil
}

func (e Event) apply(config *app.Config) {
	if e.Mode != "" {
		config.Mode = sources.ID(strings.ToLower(e.Mode))
	}
	if e.PolicyName != "" {
		config.PolicyName = e.PolicyName
	}
	if e.PolicyDescription != "" {
		config.PolicyDescription = e.PolicyDescription
	}
	if e.DryRun != nil {
		config.DryRun = *e.DryRun
	}
}

// runTimeout returns the configured timeout, shortened so the run ends
// reportMargin before the invocation deadline.
func runTimeout(ctx context.Context, configured time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return configured
	}
	remaining := time.Until(deadline) - reportMargin
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	if configured == 0 || remaining < configured {
		return remaining
	}
	return configured
}
