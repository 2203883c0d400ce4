package hooks

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/checkpoint-dev/checkpoint/internal/refs"
)

// ModelPaths narrows changed paths to model SQL files. A changed properties
// file pulls in the models it patches so their status is re-checked.
func ModelPaths(g *manifest.Graph, changed []string) []string {
	out := make([]string, 0, len(changed))
	for _, p := range changed {
		switch {
		case hasExt(p, ".sql"):
			out = append(out, p)
		case hasExt(p, ".yml", ".yaml"):
			for _, model := range g.ModelsPatchedBy(p) {
				out = append(out, model.Path)
			}
		}
	}
	return fileutil.DedupeStrings(out)
}

// CheckModelHasProperties reports changed models that no properties file
// patches. Findings are returned as data with StatusFailed; they are not
// errors.
func CheckModelHasProperties(ctx context.Context, g *manifest.Graph, changed []string, w io.Writer) Result {
	logger := ctxlog.FromContext(ctx)
	out := output(w)

	resolution := refs.ResolveModels(ctx, g, ModelPaths(g, changed))
	result := Result{
		Hook:       CheckModelHasPropertiesFile,
		StatusCode: StatusOK,
		Models:     len(resolution.Models),
		Unmatched:  resolution.Unmatched,
	}

	for _, model := range resolution.Models {
		if model.HasProperties() {
			logger.Debug("model has properties", "model", model.UniqueID, "patch_path", model.PatchPath)
			continue
		}
		result.Offending = append(result.Offending, model.Path)
	}
	sort.Strings(result.Offending)

	for _, p := range result.Offending {
		result.StatusCode = StatusFailed
		fmt.Fprintf(out, "%s: does not have model properties defined in any .yml file.\n", red(p))
	}
	return result
}
