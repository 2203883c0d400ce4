package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Apply performs plan on doc in place. The plan must have been computed
// against doc in its current state; a plan that does not fit is rejected
// before anything is changed. Existing entries are never reordered or removed
// and keys outside the sources list are not touched.
func Apply(doc *Document, plan Plan) (*Document, bool, error) {
	if len(plan.Ops) == 0 {
		return doc, false, nil
	}
	if err := checkPlan(doc, plan); err != nil {
		return doc, false, err
	}

	top := doc.mapping()
	top.Style &^= yaml.FlowStyle
	seq, err := ensureSequence(top, SourcesKey)
	if err != nil {
		return doc, false, err
	}
	seq.Style &^= yaml.FlowStyle

	for _, op := range plan.Ops {
		switch op.Kind {
		case OpNewGroup:
			group := newMapping()
			tables := newSequence()
			tables.Content = append(tables.Content, newTable(op.Table))
			group.Content = append(group.Content,
				newScalar(NameKey), newScalar(op.Source),
				newScalar(TablesKey), tables,
			)
			seq.Content = append(seq.Content, group)
		case OpAppendTable:
			group := seq.Content[op.Group]
			group.Style &^= yaml.FlowStyle
			tables, err := ensureSequence(group, TablesKey)
			if err != nil {
				return doc, true, fmt.Errorf("source %q: %w", op.Source, err)
			}
			tables.Style &^= yaml.FlowStyle
			tables.Content = append(tables.Content, newTable(op.Table))
		}
	}

	return doc, true, nil
}

// checkPlan verifies that every op lands on a slot that exists, or is created
// by an earlier op, and that appended tables go into a list.
func checkPlan(doc *Document, plan Plan) error {
	if sources := doc.lookup(SourcesKey); sources != nil && !isList(sources) {
		return fmt.Errorf("%q is not a list", SourcesKey)
	}

	existing := doc.sourceCount()
	slots := existing
	for _, op := range plan.Ops {
		switch op.Kind {
		case OpNewGroup:
			if op.Group != slots {
				return fmt.Errorf("new source %q planned at slot %d, list has %d entries", op.Source, op.Group, slots)
			}
			slots++
		case OpAppendTable:
			if op.Group < 0 || op.Group >= slots {
				return fmt.Errorf("source %q planned at slot %d, list has %d entries", op.Source, op.Group, slots)
			}
			if op.Group >= existing {
				continue
			}
			group := doc.sources().Content[op.Group]
			if group.Kind != yaml.MappingNode {
				return fmt.Errorf("source %q planned at slot %d is not a mapping", op.Source, op.Group)
			}
			if tables := mappingValue(group, TablesKey); tables != nil && !isList(tables) {
				return fmt.Errorf("source %q: %q is not a list", op.Source, TablesKey)
			}
		default:
			return fmt.Errorf("unknown op %v", op.Kind)
		}
	}
	return nil
}
