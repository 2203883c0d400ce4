package cli

import (
	"github.com/checkpoint-dev/checkpoint/internal/hooks"
	"github.com/spf13/cobra"
)

func RunCheckModelHasPropertiesFile(cmd *cobra.Command, args []string) error {
	run, err := setupHookRun(cmd, args)
	if err != nil {
		return err
	}

	result := hooks.CheckModelHasProperties(run.ctx, run.graph, run.files, run.out)
	return run.finish(cmd, result, nil)
}

func RunGenerateMissingSources(cmd *cobra.Command, args []string) error {
	schemaFile, err := OptionalStringFlag(cmd, "schema-file")
	if err != nil {
		return err
	}
	dryRun, err := OptionalBoolFlag(cmd, "dry-run")
	if err != nil {
		return err
	}

	run, err := setupHookRun(cmd, args)
	if err != nil {
		return err
	}

	result, runErr := hooks.GenerateMissing(run.ctx, run.graph, run.files, hooks.GenerateOptions{
		SchemaFile: schemaFile,
		DryRun:     dryRun,
		Out:        run.out,
	})
	return run.finish(cmd, result, runErr)
}
