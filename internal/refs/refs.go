// Package refs maps changed file paths onto manifest models and collects the
// source tables those models read from.
package refs

import (
	"context"

	"github.com/checkpoint-dev/checkpoint/internal/ctxlog"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
)

// PairSet is an insertion-ordered set of reference pairs.
type PairSet struct {
	order []manifest.ReferencePair
	seen  map[manifest.ReferencePair]bool
}

func NewPairSet(pairs ...manifest.ReferencePair) *PairSet {
	s := &PairSet{seen: make(map[manifest.ReferencePair]bool)}
	for _, pair := range pairs {
		s.Add(pair)
	}
	return s
}

// Add inserts pair and reports whether it was new.
func (s *PairSet) Add(pair manifest.ReferencePair) bool {
	if s.seen[pair] {
		return false
	}
	s.seen[pair] = true
	s.order = append(s.order, pair)
	return true
}

func (s *PairSet) contains(pair manifest.ReferencePair) bool {
	return s.seen[pair]
}

func (s *PairSet) Len() int {
	return len(s.order)
}

// Pairs returns the pairs in first-seen order.
func (s *PairSet) Pairs() []manifest.ReferencePair {
	out := make([]manifest.ReferencePair, len(s.order))
	copy(out, s.order)
	return out
}

// Resolution is the outcome of mapping changed paths onto models.
type Resolution struct {
	Models    []*manifest.Node
	Unmatched []string
}

// ResolveModels maps each changed path to its model, in input order. A model
// reached through several paths is listed once.
func ResolveModels(ctx context.Context, g *manifest.Graph, changedPaths []string) Resolution {
	logger := ctxlog.FromContext(ctx)
	res := Resolution{}
	seen := make(map[string]bool)
	for _, p := range changedPaths {
		node, ok := g.LookupByPath(p)
		if !ok {
			logger.Info("changed path not in manifest", "path", p)
			res.Unmatched = append(res.Unmatched, p)
			continue
		}
		if seen[node.UniqueID] {
			continue
		}
		seen[node.UniqueID] = true
		res.Models = append(res.Models, node)
	}
	return res
}

// Extract returns the deduplicated source pairs declared by the models behind
// changedPaths. Paths outside the manifest contribute nothing.
func Extract(ctx context.Context, g *manifest.Graph, changedPaths []string) *PairSet {
	return PairsOf(ctx, ResolveModels(ctx, g, changedPaths).Models)
}

// PairsOf collects the source pairs of already resolved models.
func PairsOf(ctx context.Context, models []*manifest.Node) *PairSet {
	logger := ctxlog.FromContext(ctx)
	pairs := NewPairSet()
	for _, node := range models {
		if len(node.Sources) == 0 {
			logger.Info("model declares no sources", "model", node.UniqueID)
			continue
		}
		for _, pair := range node.Sources {
			pairs.Add(pair)
		}
	}
	return pairs
}
