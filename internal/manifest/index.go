package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Lookup returns the node with the given unique id.
func (g *Graph) Lookup(uniqueID string) (*Node, bool) {
	node, ok := g.Nodes[uniqueID]
	return node, ok
}

// LookupByPath resolves a changed file path to its model node. The path may
// be project-relative, "./"-prefixed, absolute, or relative to the working
// directory when that differs from the project root.
func (g *Graph) LookupByPath(p string) (*Node, bool) {
	for _, candidate := range g.pathCandidates(p) {
		if id, ok := g.byPath[candidate]; ok {
			return g.Nodes[id], true
		}
	}
	if abs := g.absoluteForm(p); abs != "" {
		if id, ok := g.byAbsPath[abs]; ok {
			return g.Nodes[id], true
		}
	}
	return nil, false
}

func (g *Graph) pathCandidates(p string) []string {
	rel := normalizeRelPath(p)
	if rel == "" {
		return nil
	}

	candidates := make([]string, 0, 2)
	if !filepath.IsAbs(filepath.FromSlash(rel)) {
		candidates = append(candidates, rel)
	}
	if abs := g.absoluteForm(p); abs != "" && g.ProjectRoot != "" {
		if fromRoot, err := filepath.Rel(g.ProjectRoot, abs); err == nil && !strings.HasPrefix(fromRoot, "..") {
			candidates = append(candidates, normalizeRelPath(fromRoot))
		}
	}
	return candidates
}

func (g *Graph) absoluteForm(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	native := filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(wd, native)
}

// Models returns model nodes sorted by path.
func (g *Graph) Models() []*Node {
	models := make([]*Node, 0, len(g.byPath))
	for _, id := range g.byPath {
		models = append(models, g.Nodes[id])
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Path < models[j].Path
	})
	return models
}

// ModelsPatchedBy returns the models whose properties are declared in the
// given properties file.
func (g *Graph) ModelsPatchedBy(p string) []*Node {
	candidates := g.pathCandidates(p)
	if len(candidates) == 0 {
		return nil
	}

	out := make([]*Node, 0)
	for _, model := range g.Models() {
		patch := patchFilePath(model.PatchPath)
		if patch == "" {
			continue
		}
		for _, candidate := range candidates {
			if patch == candidate {
				out = append(out, model)
				break
			}
		}
	}
	return out
}

// patchFilePath strips the "<package>://" prefix from a patch path.
func patchFilePath(patchPath string) string {
	if patchPath == "" {
		return ""
	}
	if idx := strings.Index(patchPath, "://"); idx >= 0 {
		patchPath = patchPath[idx+len("://"):]
	}
	return normalizeRelPath(patchPath)
}
