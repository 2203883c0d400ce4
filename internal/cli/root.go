package cli

import (
	"fmt"

	"github.com/checkpoint-dev/checkpoint/internal/hooks"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Pre-commit checks for dbt projects",
		Long: `Checkpoint cross-references the dbt manifest with the files changed in a
commit. It reports models without a properties file and can declare the
sources your changed models read from in a schema file.

Run "dbt parse" (or any dbt command) first so target/manifest.json is current.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("manifest", manifest.DefaultPath, "Path to the dbt manifest")
	flags.String("config", "", "Config file (default .checkpoint.yaml in the working directory)")
	flags.Bool("json", false, "Print machine-readable run summary")
	flags.String("log-level", "warn", "Log level: debug|info|warn|error")
	flags.String("log-format", "text", "Log format: text|json")
	flags.Bool("disable-tracking", false, "Do not record hook events")
	flags.String("tracking-file", "", "Append hook events as JSON lines to this file")
	flags.StringSlice("exclude", []string{}, "Gitignore-style patterns of changed files to skip")

	// Hook Commands
	propertiesCmd := &cobra.Command{
		Use:   hooks.CheckModelHasPropertiesFile + " [files...]",
		Short: "Fail when a changed model has no properties file",
		RunE:  RunCheckModelHasPropertiesFile,
	}

	sourcesCmd := &cobra.Command{
		Use:   hooks.GenerateMissingSources + " [files...]",
		Short: "Declare sources used by changed models in a schema file",
		RunE:  RunGenerateMissingSources,
	}
	sourcesCmd.Flags().String("schema-file", "", "Schema file where missing source tables are declared")
	sourcesCmd.Flags().Bool("dry-run", false, "Print planned additions without writing the schema file")
	_ = sourcesCmd.MarkFlagRequired("schema-file")

	// Additional Commands
	installHookCmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install git pre-commit hook running checkpoint on staged files",
		RunE:  RunInstallHook,
	}
	installHookCmd.Flags().String("schema-file", "", "Also run generate-missing-sources into this schema file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "checkpoint %s\n", version)
		},
	}

	rootCmd.AddCommand(
		propertiesCmd,
		sourcesCmd,
		installHookCmd,
		versionCmd,
	)

	return rootCmd
}
