// Package hooks implements the pre-commit checks on top of the manifest and
// schema packages.
package hooks

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/checkpoint-dev/checkpoint/internal/schema"
	"github.com/gookit/color"
)

const (
	StatusOK     = 0
	StatusFailed = 1

	CheckModelHasPropertiesFile = "check-model-has-properties-file"
	GenerateMissingSources      = "generate-missing-sources"
)

var descriptions = map[string]string{
	CheckModelHasPropertiesFile: "Check model has properties file",
	GenerateMissingSources:      "If any source is missing this hook tries to create it.",
}

// Description returns the human description recorded for a hook.
func Description(hook string) string {
	return descriptions[hook]
}

// Result is what a hook hands back to the CLI layer.
type Result struct {
	Hook       string      `json:"hook"`
	StatusCode int         `json:"status"`
	Offending  []string    `json:"offending,omitempty"`
	Unmatched  []string    `json:"unmatched,omitempty"`
	Models     int         `json:"models"`
	Sources    int         `json:"sources"`
	Additions  []schema.Op `json:"-"`
	Added      []string    `json:"added,omitempty"`
	SchemaFile string      `json:"schema_file,omitempty"`
	Created    bool        `json:"created,omitempty"`
	Written    bool        `json:"written,omitempty"`
	DryRun     bool        `json:"dry_run,omitempty"`
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func red(s string) string {
	return color.Red.Sprint(s)
}

func hasExt(p string, exts ...string) bool {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}
