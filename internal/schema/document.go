// Package schema edits the sources section of a dbt properties file.
//
// A Document keeps the parsed yaml.Node tree. The "sources" sequence is the
// only typed part; every other key is opaque and is written back exactly as
// it was parsed, including its position, comments and styles.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"gopkg.in/yaml.v3"
)

const (
	SourcesKey = "sources"
	NameKey    = "name"
	TablesKey  = "tables"
)

// SourceDeclaration is the typed view of one entry of the sources list.
type SourceDeclaration struct {
	Index  int // position in the sources sequence
	Name   string
	Tables []string
}

// HasTable reports whether the group declares table (exact match).
func (d SourceDeclaration) HasTable(table string) bool {
	for _, name := range d.Tables {
		if name == table {
			return true
		}
	}
	return false
}

// Document is a parsed schema file. A multi-document stream keeps every
// document; the sources list lives in the first one.
type Document struct {
	docs []*yaml.Node
}

// NewDocument returns an empty document with a top-level mapping.
func NewDocument() *Document {
	return &Document{docs: []*yaml.Node{{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{newMapping()},
	}}}
}

// Parse decodes YAML data. Empty input yields an empty document.
func Parse(data []byte) (*Document, error) {
	var docs []*yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		docs = append(docs, &node)
	}
	if len(docs) == 0 {
		return NewDocument(), nil
	}

	root := docs[0]
	if root.Kind != yaml.DocumentNode {
		return nil, fmt.Errorf("unexpected yaml node kind %d", root.Kind)
	}
	if len(root.Content) == 0 {
		root.Content = []*yaml.Node{newMapping()}
	}

	top := root.Content[0]
	if isNull(top) {
		mapping := newMapping()
		mapping.HeadComment = top.HeadComment
		mapping.LineComment = top.LineComment
		mapping.FootComment = top.FootComment
		root.Content[0] = mapping
		top = mapping
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}

	doc := &Document{docs: docs}
	if sources := doc.lookup(SourcesKey); sources != nil && !isList(sources) {
		return nil, fmt.Errorf("%q is not a list", SourcesKey)
	}
	if seq := doc.sources(); seq != nil {
		for i, item := range seq.Content {
			if tables := mappingValue(item, TablesKey); tables != nil && !isList(tables) {
				return nil, fmt.Errorf("%s[%d].%s is not a list", SourcesKey, i, TablesKey)
			}
		}
	}
	return doc, nil
}

// LoadFile reads the document at path. With createIfMissing an absent file is
// first created empty; the returned flag reports that. Failures are reported
// as *fileutil.LoadError.
func LoadFile(path string, createIfMissing bool) (*Document, bool, error) {
	created := false
	if createIfMissing {
		var err error
		created, err = fileutil.WriteIfMissing(path, nil, 0644)
		if err != nil {
			return nil, false, &fileutil.LoadError{What: "schema file", Path: path, Err: err}
		}
	}

	data, err := fileutil.ReadInput("schema file", path)
	if err != nil {
		return nil, created, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, created, &fileutil.LoadError{What: "schema file", Path: path, Err: err}
	}
	return doc, created, nil
}

// Encode serializes the document: key order as parsed, no sorting, block
// style with a two-space indent.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, node := range d.docs {
		if err := encoder.Encode(node); err != nil {
			return nil, err
		}
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the document to path and reports whether the file changed.
func (d *Document) Save(path string) (bool, error) {
	data, err := d.Encode()
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	written, err := fileutil.WriteIfChangedTracked(path, data)
	if err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return written, nil
}

// keys returns the top-level keys in document order.
func (d *Document) keys() []string {
	top := d.mapping()
	keys := make([]string, 0, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		keys = append(keys, top.Content[i].Value)
	}
	return keys
}

// Declarations returns the typed view of the sources list. Entries that are
// not mappings are skipped but keep their slot in Index numbering.
func (d *Document) Declarations() []SourceDeclaration {
	seq := d.sources()
	if seq == nil {
		return nil
	}

	out := make([]SourceDeclaration, 0, len(seq.Content))
	for i, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		decl := SourceDeclaration{Index: i}
		if name := mappingValue(item, NameKey); name != nil && name.Kind == yaml.ScalarNode {
			decl.Name = name.Value
		}
		if tables := mappingValue(item, TablesKey); tables != nil && tables.Kind == yaml.SequenceNode {
			for _, table := range tables.Content {
				if table.Kind != yaml.MappingNode {
					continue
				}
				if name := mappingValue(table, NameKey); name != nil && name.Kind == yaml.ScalarNode {
					decl.Tables = append(decl.Tables, name.Value)
				}
			}
		}
		out = append(out, decl)
	}
	return out
}

func (d *Document) mapping() *yaml.Node {
	return d.docs[0].Content[0]
}

func (d *Document) lookup(key string) *yaml.Node {
	return mappingValue(d.mapping(), key)
}

// sources returns the sources sequence, or nil when absent or null.
func (d *Document) sources() *yaml.Node {
	node := d.lookup(SourcesKey)
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	return node
}

// sourceCount is the number of slots in the sources sequence.
func (d *Document) sourceCount() int {
	if seq := d.sources(); seq != nil {
		return len(seq.Content)
	}
	return 0
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// ensureSequence returns the sequence stored under key, creating it when the
// key is absent or null. Any other value is left alone and reported.
func ensureSequence(mapping *yaml.Node, key string) (*yaml.Node, error) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		value := mapping.Content[i+1]
		if value.Kind == yaml.SequenceNode {
			return value, nil
		}
		if !isNull(value) {
			return nil, fmt.Errorf("%q is not a list", key)
		}
		seq := newSequence()
		seq.LineComment = value.LineComment
		mapping.Content[i+1] = seq
		return seq, nil
	}
	seq := newSequence()
	mapping.Content = append(mapping.Content, newScalar(key), seq)
	return seq, nil
}

// isList reports whether node may hold a list: a sequence or an explicit null.
func isList(node *yaml.Node) bool {
	return node.Kind == yaml.SequenceNode || isNull(node)
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

func newScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func newTable(name string) *yaml.Node {
	table := newMapping()
	table.Content = append(table.Content, newScalar(NameKey), newScalar(name))
	return table
}
