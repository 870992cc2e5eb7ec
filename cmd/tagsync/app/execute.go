package app

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/tagsync/internal/cmd/output"
	"github.com/agentstation/tagsync/pkg/errors"
)

// flagValues holds the raw values of the persistent flags. They are merged
// into the config in setupCommand, only when set, so that unset flags do not
// hide environment or config file values.
type flagValues struct {
	configFile string
	verbose    bool
	quiet      bool
	format     string
	logLevel   string
	region     string
	dryRun     bool
	timeout    time.Duration
}

// Execute runs the tagsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.out)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tagsync",
		Short:   "Copy AWS tags from owners onto the objects they own",
		Version: a.version,
		Long: `Tagsync keeps AWS tags consistent between related objects.

It copies the tags of IAM roles onto the customer-managed policies attached
to them, and the tags of CloudFormation stacks onto the resources those
stacks created. Only missing tags are added; existing tags are never
overwritten or removed.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.configFile, "config", "", "config file (default is $HOME/.tagsync.yaml)")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	f.BoolVarP(&a.flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	f.StringVarP(&a.flags.format, "format", "o", "", "output format: table, json, yaml")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	f.StringVar(&a.flags.region, "region", "", "AWS region (default is $AWS_REGION)")
	f.BoolVar(&a.flags.dryRun, "dry-run", false, "report missing tags without writing them")
	f.DurationVar(&a.flags.timeout, "timeout", 0, "stop the run after this long, e.g. 10m (0 means no limit)")

	rootCmd.SetVersionTemplate("tagsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if a.flags.configFile != "" {
		config, err := LoadConfigFile(a.flags.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(a.flags.verbose, a.flags.quiet, a.flags.format, a.flags.logLevel)

	flags := cmd.Flags()
	if flags.Changed("region") {
		a.config.Region = a.flags.region
	}
	if flags.Changed("dry-run") {
		a.config.DryRun = a.flags.dryRun
	}
	if flags.Changed("timeout") {
		a.config.Timeout = a.flags.timeout
	}

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return errors.WrapValidation("format", err)
	}

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(a.NewSyncCommand())
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
