package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/internal/cmd/output"
	"github.com/agentstation/tagsync/internal/syncsrc"
	"github.com/agentstation/tagsync/pkg/logging"
	"github.com/agentstation/tagsync/pkg/reconciler"
	"github.com/agentstation/tagsync/pkg/sources"
)

// NewSyncCommand creates the sync command and its variants.
func (a *App) NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Copy missing tags onto dependent objects",
		Long: `Sync runs one tag synchronization pass and prints its summary.

Failures on individual objects are logged and listed in the summary; they
do not make the command fail.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, a.config.Mode)
		},
	}

	cmd.AddCommand(a.newSyncPoliciesCommand())
	cmd.AddCommand(a.newSyncStacksCommand())
	return cmd
}

func (a *App) newSyncPoliciesCommand() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Copy IAM role tags onto attached customer-managed policies",
		Example: `  tagsync sync policies
  tagsync sync policies --policy-name deploy-access
  tagsync sync policies --description '^Managed by platform' --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("policy-name") {
				a.config.PolicyName = name
			}
			if cmd.Flags().Changed("description") {
				a.config.PolicyDescription = description
			}
			return a.runSync(cmd, sources.PoliciesID)
		},
	}

	cmd.Flags().StringVar(&name, "policy-name", "", "only sync the policy with this name")
	cmd.Flags().StringVar(&description, "description", "", "only sync policies whose description matches this regular expression")
	cmd.MarkFlagsMutuallyExclusive("policy-name", "description")
	return cmd
}

func (a *App) newSyncStacksCommand() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "stacks",
		Short: "Copy CloudFormation stack tags onto stack resources",
		Example: `  tagsync sync stacks
  tagsync sync stacks --status UPDATE_ROLLBACK_COMPLETE --status UPDATE_COMPLETE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("status") {
				a.config.StackStatuses = statuses
			}
			return a.runSync(cmd, sources.StacksID)
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "stack statuses to include (default CREATE_COMPLETE,UPDATE_COMPLETE)")
	return cmd
}

// runSync builds the source for mode, runs one pass and prints the summary.
func (a *App) runSync(cmd *cobra.Command, mode sources.ID) error {
	a.config.Mode = mode
	if err := a.config.Validate(); err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)

	clients, err := a.clients(ctx, a.config.Region)
	if err != nil {
		return err
	}

	src, err := syncsrc.Build(clients,
		syncsrc.WithMode(mode),
		syncsrc.WithPolicyName(a.config.PolicyName),
		syncsrc.WithPolicyDescription(a.config.PolicyDescription),
		syncsrc.WithStackStatuses(a.config.StackStatuses...),
	)
	if err != nil {
		return err
	}

	account, err := awsapi.CallerAccount(ctx, clients.STS)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to resolve account, continuing without it")
	}

	r, err := reconciler.New(src,
		reconciler.WithDryRun(a.config.DryRun),
		reconciler.WithTimeout(a.config.Timeout),
		reconciler.WithAccount(account),
		reconciler.WithRegion(a.config.Region),
		reconciler.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	summary := r.Run(ctx)
	return output.FormatSummary(cmd.OutOrStdout(), summary, output.DetectFormat(a.config.Format))
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("tagsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
