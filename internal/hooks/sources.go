package hooks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/checkpoint-dev/checkpoint/internal/refs"
	"github.com/checkpoint-dev/checkpoint/internal/schema"
)

type GenerateOptions struct {
	SchemaFile string
	DryRun     bool
	Out        io.Writer
}

// GenerateMissing declares every source table read by the changed models in
// the schema file. The file is created when absent and rewritten only when
// something was added. Load failures are returned as errors.
func GenerateMissing(ctx context.Context, g *manifest.Graph, changed []string, opts GenerateOptions) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	out := output(opts.Out)

	result := Result{
		Hook:       GenerateMissingSources,
		StatusCode: StatusOK,
		SchemaFile: opts.SchemaFile,
		DryRun:     opts.DryRun,
	}

	resolution := refs.ResolveModels(ctx, g, changed)
	result.Models = len(resolution.Models)
	result.Unmatched = resolution.Unmatched

	pairs := refs.PairsOf(ctx, resolution.Models)
	result.Sources = pairs.Len()
	if pairs.Len() == 0 {
		logger.Info("no source references in changed models")
		return result, nil
	}

	doc, created, err := loadSchema(opts)
	if err != nil {
		return result, err
	}
	result.Created = created
	if created {
		fmt.Fprintf(out, "Target schema file not found at `%s`. Created it.\n", opts.SchemaFile)
	}

	plan := schema.ComputeAdditions(doc, pairs.Pairs())
	result.Additions = plan.Ops
	for _, op := range plan.Ops {
		result.Added = append(result.Added, op.Pair().String())
		fmt.Fprintln(out, describeOp(op, opts.DryRun))
	}

	if opts.DryRun || !plan.Updated {
		logger.Info("schema file left untouched", "path", opts.SchemaFile, "dry_run", opts.DryRun, "additions", len(plan.Ops))
		return result, nil
	}

	if _, _, err := schema.Apply(doc, plan); err != nil {
		return result, fmt.Errorf("failed to merge sources into %s: %w", opts.SchemaFile, err)
	}
	written, err := doc.Save(opts.SchemaFile)
	if err != nil {
		return result, err
	}
	result.Written = written
	logger.Info("schema file updated", "path", opts.SchemaFile, "additions", len(plan.Ops))
	return result, nil
}

func loadSchema(opts GenerateOptions) (*schema.Document, bool, error) {
	if opts.DryRun {
		if _, err := os.Stat(opts.SchemaFile); os.IsNotExist(err) {
			return schema.NewDocument(), false, nil
		}
		return schema.LoadFile(opts.SchemaFile, false)
	}
	return schema.LoadFile(opts.SchemaFile, true)
}

func describeOp(op schema.Op, dryRun bool) string {
	var msg string
	switch op.Kind {
	case schema.OpNewGroup:
		msg = fmt.Sprintf("Adding schema source for `%s`.", op.Pair())
	default:
		msg = fmt.Sprintf("Generating missing source `%s`.", op.Pair())
	}
	if dryRun {
		return "[dry-run] " + msg
	}
	return msg
}
