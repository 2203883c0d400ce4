package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/checkpoint-dev/checkpoint/internal/config"
	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/hooks"
	"github.com/checkpoint-dev/checkpoint/internal/ignore"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/checkpoint-dev/checkpoint/internal/tracking"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// hookRun holds what every hook command needs before it starts.
type hookRun struct {
	ctx      context.Context
	cfg      *config.Config
	rootPath string
	graph    *manifest.Graph
	files    []string
	ignored  []string
	asJSON   bool
	out      io.Writer
	sink     tracking.Sink
	start    time.Time
}

func setupHookRun(cmd *cobra.Command, args []string) (*hookRun, error) {
	start := time.Now()
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return nil, err
	}
	configFile, err := OptionalStringFlag(cmd, "config")
	if err != nil {
		return nil, err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(rootPath, configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	ctx := ctxlog.WithLogger(cmd.Context(), logger)
	if cfg.ConfigFile != "" {
		logger.Debug("using config file", "path", cfg.ConfigFile)
	}

	if asJSON || os.Getenv("NO_COLOR") != "" {
		color.Enable = false
	}

	// Hook messages move to stderr so --json output stays parseable.
	out := cmd.OutOrStdout()
	if asJSON {
		out = cmd.ErrOrStderr()
	}

	rules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return nil, err
	}
	rules = append(rules, cfg.Exclude...)
	files, ignored := ignore.NewMatcher(rules).Filter(args)
	for _, p := range ignored {
		logger.Debug("skipping excluded path", "path", p)
	}

	manifestPath := cfg.Manifest
	g, err := manifest.Load(manifestPath)
	if err != nil {
		fmt.Fprintf(out, "Unable to load manifest file (%v)\n", err)
		return nil, &ExitError{Code: hooks.StatusFailed, Err: err}
	}
	logger.Debug("manifest loaded", "path", manifestPath, "nodes", len(g.Nodes), "dbt_version", g.Metadata.DbtVersion)

	return &hookRun{
		ctx:      ctx,
		cfg:      cfg,
		rootPath: rootPath,
		graph:    g,
		files:    files,
		ignored:  ignored,
		asJSON:   asJSON,
		out:      out,
		sink:     newSink(cfg),
		start:    start,
	}, nil
}

func newSink(cfg *config.Config) tracking.Sink {
	if cfg.TrackingDisabled {
		return tracking.Nop{}
	}
	sinks := tracking.Multi{tracking.LogSink{}}
	if cfg.TrackingFile != "" {
		sinks = append(sinks, tracking.FileSink{Path: cfg.TrackingFile})
	}
	return sinks
}

// finish records the run event, prints the summary and maps the hook status
// onto the command error.
func (r *hookRun) finish(cmd *cobra.Command, result hooks.Result, runErr error) error {
	elapsed := time.Since(r.start)
	status := result.StatusCode
	if runErr != nil {
		status = hooks.StatusFailed
	}

	tracking.Emit(r.ctx, r.sink, tracking.NewHookEvent(
		result.Hook,
		hooks.Description(result.Hook),
		status,
		elapsed,
		r.graph.Metadata,
	))

	if runErr != nil {
		var loadErr *fileutil.LoadError
		if errors.As(runErr, &loadErr) {
			fmt.Fprintf(r.out, "Unable to load %s (%v)\n", loadErr.What, loadErr.Err)
			return &ExitError{Code: hooks.StatusFailed, Err: runErr}
		}
		return runErr
	}

	summary := NewHookSummary(r, result, elapsed)
	if err := PrintHookSummary(cmd.OutOrStdout(), summary, r.asJSON); err != nil {
		return err
	}

	if status != hooks.StatusOK {
		return &ExitError{Code: status}
	}
	return nil
}
