package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
)

const (
	DefaultPath = "target/manifest.json"

	ResourceModel = "model"
)

// ReferencePair identifies one upstream source table a node reads from.
type ReferencePair struct {
	SourceName string `json:"source_name"`
	TableName  string `json:"table_name"`
}

func (p ReferencePair) String() string {
	return p.SourceName + "." + p.TableName
}

// Metadata mirrors the manifest metadata block.
type Metadata struct {
	DbtVersion  string `json:"dbt_version"`
	ProjectID   string `json:"project_id"`
	AdapterType string `json:"adapter_type"`
	GeneratedAt string `json:"generated_at"`
}

// Node is one transformation unit from the manifest.
type Node struct {
	UniqueID     string
	ResourceType string
	Name         string
	Package      string
	Path         string // project-relative, slash separated
	AbsPath      string
	PatchPath    string
	Sources      []ReferencePair
}

// HasProperties reports whether a properties file patches this node.
func (n *Node) HasProperties() bool {
	return n.PatchPath != ""
}

// Graph is the manifest loaded for one run. It is read-only once built.
type Graph struct {
	Metadata    Metadata
	ProjectRoot string
	Nodes       map[string]*Node

	byPath    map[string]string
	byAbsPath map[string]string
}

type rawManifest struct {
	Metadata Metadata           `json:"metadata"`
	Nodes    map[string]rawNode `json:"nodes"`
}

type rawNode struct {
	UniqueID         string     `json:"unique_id"`
	ResourceType     string     `json:"resource_type"`
	Name             string     `json:"name"`
	PackageName      string     `json:"package_name"`
	RootPath         string     `json:"root_path"`
	OriginalFilePath string     `json:"original_file_path"`
	PatchPath        *string    `json:"patch_path"`
	Sources          [][]string `json:"sources"`
}

// Load reads the manifest at manifestPath. Any read or decode failure is
// reported as a *fileutil.LoadError.
func Load(manifestPath string) (*Graph, error) {
	data, err := fileutil.ReadInput("manifest", manifestPath)
	if err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &fileutil.LoadError{What: "manifest", Path: manifestPath, Err: err}
	}
	if raw.Nodes == nil {
		return nil, &fileutil.LoadError{What: "manifest", Path: manifestPath, Err: fmt.Errorf("missing nodes")}
	}

	root := defaultProjectRoot(manifestPath)
	g, err := build(raw, root)
	if err != nil {
		return nil, &fileutil.LoadError{What: "manifest", Path: manifestPath, Err: err}
	}
	return g, nil
}

// FromJSON builds a graph from manifest bytes, resolving node paths against
// projectRoot.
func FromJSON(data []byte, projectRoot string) (*Graph, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return build(raw, projectRoot)
}

// defaultProjectRoot assumes the manifest sits in the project's target dir.
func defaultProjectRoot(manifestPath string) string {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return ""
	}
	return filepath.Dir(filepath.Dir(abs))
}

func build(raw rawManifest, projectRoot string) (*Graph, error) {
	g := &Graph{
		Metadata:    raw.Metadata,
		ProjectRoot: projectRoot,
		Nodes:       make(map[string]*Node, len(raw.Nodes)),
		byPath:      make(map[string]string),
		byAbsPath:   make(map[string]string),
	}

	ids := make([]string, 0, len(raw.Nodes))
	for id := range raw.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rn := raw.Nodes[id]
		uniqueID := rn.UniqueID
		if uniqueID == "" {
			uniqueID = id
		}

		node := &Node{
			UniqueID:     uniqueID,
			ResourceType: rn.ResourceType,
			Name:         rn.Name,
			Package:      rn.PackageName,
			Path:         normalizeRelPath(rn.OriginalFilePath),
			Sources:      make([]ReferencePair, 0, len(rn.Sources)),
		}
		if rn.PatchPath != nil {
			node.PatchPath = *rn.PatchPath
		}
		for _, pair := range rn.Sources {
			if len(pair) < 2 {
				continue
			}
			node.Sources = append(node.Sources, ReferencePair{SourceName: pair[0], TableName: pair[1]})
		}

		root := rn.RootPath
		if root == "" {
			root = projectRoot
		}
		if root != "" && node.Path != "" {
			node.AbsPath = filepath.Clean(filepath.Join(root, filepath.FromSlash(node.Path)))
		}

		g.Nodes[uniqueID] = node

		if node.ResourceType != ResourceModel || node.Path == "" {
			continue
		}
		if existing, ok := g.byPath[node.Path]; ok {
			return nil, fmt.Errorf("models %s and %s share path %s", existing, uniqueID, node.Path)
		}
		g.byPath[node.Path] = uniqueID
		if node.AbsPath != "" {
			g.byAbsPath[node.AbsPath] = uniqueID
		}
	}

	return g, nil
}

func normalizeRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(filepath.ToSlash(p), "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}
