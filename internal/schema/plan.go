package schema

import (
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
)

type OpKind int

const (
	OpNewGroup OpKind = iota
	OpAppendTable
)

func (k OpKind) String() string {
	switch k {
	case OpNewGroup:
		return "new-group"
	case OpAppendTable:
		return "append-table"
	default:
		return "unknown"
	}
}

// Op is one planned addition. Group is the sources slot the op targets once
// all preceding ops are applied; a new group always lands at the end.
type Op struct {
	Kind   OpKind
	Group  int
	Source string
	Table  string
}

func (o Op) Pair() manifest.ReferencePair {
	return manifest.ReferencePair{SourceName: o.Source, TableName: o.Table}
}

// Plan is the minimal set of additions that makes a document declare every
// required pair.
type Plan struct {
	Ops     []Op
	Updated bool
}

type plannedGroup struct {
	index  int
	name   string
	tables map[string]bool
}

// ComputeAdditions diffs the required pairs against the document's source
// declarations. It never modifies doc.
//
// Group names and table names match case-sensitively. When several groups
// share a source name, the table is planned for every one of them that lacks
// it. A pair whose group was planned earlier in the same call extends that
// planned group.
func ComputeAdditions(doc *Document, required []manifest.ReferencePair) Plan {
	groups := make([]*plannedGroup, 0)
	for _, decl := range doc.Declarations() {
		group := &plannedGroup{index: decl.Index, name: decl.Name, tables: make(map[string]bool)}
		for _, table := range decl.Tables {
			group.tables[table] = true
		}
		groups = append(groups, group)
	}
	next := doc.sourceCount()

	plan := Plan{}
	for _, pair := range required {
		matched := false
		for _, group := range groups {
			if group.name != pair.SourceName {
				continue
			}
			matched = true
			if group.tables[pair.TableName] {
				continue
			}
			group.tables[pair.TableName] = true
			plan.Ops = append(plan.Ops, Op{
				Kind:   OpAppendTable,
				Group:  group.index,
				Source: pair.SourceName,
				Table:  pair.TableName,
			})
		}
		if matched {
			continue
		}

		groups = append(groups, &plannedGroup{
			index:  next,
			name:   pair.SourceName,
			tables: map[string]bool{pair.TableName: true},
		})
		plan.Ops = append(plan.Ops, Op{
			Kind:   OpNewGroup,
			Group:  next,
			Source: pair.SourceName,
			Table:  pair.TableName,
		})
		next++
	}

	plan.Updated = len(plan.Ops) > 0
	return plan
}
