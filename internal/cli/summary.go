package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/hooks"
)

type HookSummary struct {
	Mode         string   `json:"mode"`
	RootPath     string   `json:"root_path"`
	Manifest     string   `json:"manifest"`
	DbtVersion   string   `json:"dbt_version,omitempty"`
	Status       int      `json:"status"`
	Files        int      `json:"files"`
	Models       int      `json:"models"`
	Sources      int      `json:"sources"`
	DurationMS   int64    `json:"duration_ms"`
	Offending    []string `json:"offending,omitempty"`
	Unmatched    []string `json:"unmatched,omitempty"`
	IgnoredFiles []string `json:"ignored_files,omitempty"`
	Added        []string `json:"added,omitempty"`
	SchemaFile   string   `json:"schema_file,omitempty"`
	Created      bool     `json:"created,omitempty"`
	Written      bool     `json:"written,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

func NewHookSummary(run *hookRun, result hooks.Result, elapsed time.Duration) HookSummary {
	return HookSummary{
		Mode:         result.Hook,
		RootPath:     run.rootPath,
		Manifest:     run.cfg.Manifest,
		DbtVersion:   run.graph.Metadata.DbtVersion,
		Status:       result.StatusCode,
		Files:        len(run.files),
		Models:       result.Models,
		Sources:      result.Sources,
		DurationMS:   elapsed.Milliseconds(),
		Offending:    result.Offending,
		Unmatched:    result.Unmatched,
		IgnoredFiles: run.ignored,
		Added:        result.Added,
		SchemaFile:   result.SchemaFile,
		Created:      result.Created,
		Written:      result.Written,
		DryRun:       result.DryRun,
	}
}

// PrintHookSummary writes the JSON summary. Text mode stays silent on success
// so pre-commit output only shows the hook's own messages.
func PrintHookSummary(w io.Writer, summary HookSummary, asJSON bool) error {
	if asJSON {
		return fileutil.WriteJSON(w, summary)
	}
	if summary.Status == hooks.StatusOK && len(summary.Added) == 0 {
		return nil
	}

	parts := []string{
		fmt.Sprintf("%s:", summary.Mode),
		fmt.Sprintf("files=%d", summary.Files),
		fmt.Sprintf("models=%d", summary.Models),
	}
	if summary.SchemaFile != "" {
		parts = append(parts,
			fmt.Sprintf("sources=%d", summary.Sources),
			fmt.Sprintf("added=%d", len(summary.Added)),
		)
	}
	if len(summary.Offending) > 0 {
		parts = append(parts, fmt.Sprintf("missing_properties=%d", len(summary.Offending)))
	}
	parts = append(parts, fmt.Sprintf("duration=%dms", summary.DurationMS))
	fmt.Fprintln(w, strings.Join(parts, " "))
	if len(summary.Unmatched) > 0 {
		fmt.Fprintf(w, "not in manifest (%d): %s\n", len(summary.Unmatched), SummarizePaths(summary.Unmatched, 8))
	}
	return nil
}

func SummarizePaths(paths []string, max int) string {
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(paths[:max], ", "), len(paths)-max)
}
