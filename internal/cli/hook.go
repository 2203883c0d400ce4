package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/hooks"
	"github.com/spf13/cobra"
)

const (
	HookStart = "# >>> checkpoint hooks >>>"
	HookEnd   = "# <<< checkpoint hooks <<<"

	stagedFilesCmd = "git diff --cached --name-only -z --relative --diff-filter=ACM"
)

func RunInstallHook(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	schemaFile, err := OptionalStringFlag(cmd, "schema-file")
	if err != nil {
		return err
	}

	repoRoot, gitDir, err := ResolveGitPaths(rootPath)
	if err != nil {
		return err
	}

	hookPath := filepath.Join(gitDir, "hooks", "pre-commit")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0755); err != nil {
		return fmt.Errorf("failed to create hook directory: %w", err)
	}

	existing := ""
	if data, err := os.ReadFile(hookPath); err == nil {
		existing = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing hook: %w", err)
	}

	updated := UpsertCheckpointHook(existing, repoRoot, projectDir(repoRoot, rootPath), schemaFile)
	if err := os.WriteFile(hookPath, []byte(updated), 0755); err != nil {
		return fmt.Errorf("failed to write hook: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed pre-commit hook at %s\n", hookPath)
	return nil
}

func ResolveGitPaths(workingDir string) (repoRoot string, gitDir string, err error) {
	repoRootOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", "", fmt.Errorf("not inside a git repository")
	}

	gitDirOut, err := exec.Command("git", "-C", workingDir, "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve git directory: %w", err)
	}

	repoRoot = strings.TrimSpace(string(repoRootOut))
	gitDir = strings.TrimSpace(string(gitDirOut))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(workingDir, gitDir)
	}
	return repoRoot, gitDir, nil
}

// projectDir is the dbt project directory the hook runs in, relative to the
// repository root ("." when they coincide).
func projectDir(repoRoot, workingDir string) string {
	rel, err := filepath.Rel(repoRoot, workingDir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "."
	}
	return filepath.ToSlash(rel)
}

func UpsertCheckpointHook(existingHook, repoRoot, project, schemaFile string) string {
	block := BuildCheckpointHookBlock(repoRoot, project, schemaFile)

	if existingHook == "" {
		return "#!/bin/sh\n\n" + block + "\n"
	}

	start := strings.Index(existingHook, HookStart)
	end := strings.Index(existingHook, HookEnd)
	if start >= 0 && end >= start {
		end += len(HookEnd)
		updated := existingHook[:start] + block + existingHook[end:]
		return fileutil.EnsureTrailingNewline(updated)
	}

	base := fileutil.EnsureTrailingNewline(existingHook)
	if !strings.HasPrefix(base, "#!") {
		base = "#!/bin/sh\n" + base
	}
	return base + "\n" + block + "\n"
}

// BuildCheckpointHookBlock renders the managed hook block. Staged paths are
// passed relative to the dbt project directory, NUL-separated so paths with
// spaces survive.
func BuildCheckpointHookBlock(repoRoot, project, schemaFile string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", HookStart)
	fmt.Fprintf(&b, "repo_root=%q\n", repoRoot)
	fmt.Fprintf(&b, "project_dir=\"$repo_root/%s\"\n", project)
	b.WriteString("if command -v checkpoint >/dev/null 2>&1; then\n")
	fmt.Fprintf(&b, "  (cd \"$project_dir\" && %s | xargs -0 checkpoint %s) || exit 1\n",
		stagedFilesCmd, hooks.CheckModelHasPropertiesFile)
	if schemaFile != "" {
		fmt.Fprintf(&b, "  (cd \"$project_dir\" && %s | xargs -0 checkpoint %s --schema-file %q && git add %q) || exit 1\n",
			stagedFilesCmd, hooks.GenerateMissingSources, schemaFile, schemaFile)
	}
	b.WriteString("fi\n")
	b.WriteString(HookEnd)
	return b.String()
}
