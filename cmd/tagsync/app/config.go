package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/tagsync/pkg/errors"
	"github.com/agentstation/tagsync/pkg/sources"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	Format  string

	// Config file
	ConfigFile string

	// AWS
	Region string

	// Synchronization
	Mode              sources.ID
	PolicyName        string
	PolicyDescription string
	StackStatuses     []string
	DryRun            bool
	Timeout           time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// logLevelFlag is set when LogLevel came from --log-level.
	logLevelFlag bool
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.tagsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("TAGSYNC_CONFIG"))
}

// LoadConfigFile is LoadConfig with an explicit config file. An empty path
// searches for .tagsync.yaml in the home and working directories.
func LoadConfigFile(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("tagsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", string(sources.PoliciesID))
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	// AWS and logging settings keep their conventional unprefixed names.
	bindings := map[string][]string{
		"region":     {"AWS_REGION", "AWS_DEFAULT_REGION"},
		"log_level":  {"LOG_LEVEL"},
		"log_format": {"LOG_FORMAT"},
		"log_output": {"LOG_OUTPUT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, errors.NewConfigError("env", "binding "+key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".tagsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", "reading "+configFile, err)
		}
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		Region: v.GetString("region"),

		Mode:              sources.ID(strings.ToLower(v.GetString("mode"))),
		PolicyName:        v.GetString("policy_name"),
		PolicyDescription: v.GetString("policy_description"),
		StackStatuses:     splitList(v.GetStringSlice("stack_statuses")),
		DryRun:            v.GetBool("dry_run"),
		Timeout:           v.GetDuration("timeout"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

// Validate checks the settings every sync needs.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.NewConfigError("aws", "region not set: use --region or AWS_REGION", nil)
	}
	if !c.Mode.IsValid() {
		return errors.NewValidationError("mode", c.Mode, "must be one of: policies, stacks")
	}
	if c.PolicyName != "" && c.PolicyDescription != "" {
		return errors.NewValidationError("policy-name", c.PolicyName,
			"cannot be combined with --description")
	}
	if c.Timeout < 0 {
		return errors.NewValidationError("timeout", c.Timeout, "cannot be negative")
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
		c.logLevelFlag = true
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// godotenv never overwrites a set variable, so the file loaded first wins
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// splitList flattens comma separated entries, as found in environment
// variables, into one item per value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
