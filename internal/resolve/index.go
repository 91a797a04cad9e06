package resolve

import (
	"sort"

	"github.com/akranz/factgate/internal/model"
)

// Index arranges a request's context facts for cheap period lookups:
// per (entity, metric), facts are held ordered by fiscal key descending,
// so "most recent" is the head of the slice.
type Index struct {
	byKey map[string][]model.GroundTruthFact
}

func indexKey(entityID, metricID string) string {
	return entityID + "\x00" + metricID
}

// NewIndex builds an index over the context. The context itself is never
// mutated; facts are copied out of it.
func NewIndex(mctx model.MetricContext) *Index {
	ix := &Index{byKey: make(map[string][]model.GroundTruthFact)}
	for _, entry := range mctx.Entries {
		fact := model.FactFromEntry(entry)
		key := indexKey(fact.EntityID, fact.MetricID)
		ix.byKey[key] = append(ix.byKey[key], fact)
	}
	for key := range ix.byKey {
		facts := ix.byKey[key]
		sort.SliceStable(facts, func(i, j int) bool {
			return facts[i].Period.SortKey() > facts[j].Period.SortKey()
		})
	}
	return ix
}

// Exact returns the fact for an exact (entity, metric, period) match.
func (ix *Index) Exact(entityID, metricID string, period model.Period) (*model.GroundTruthFact, bool) {
	for _, fact := range ix.byKey[indexKey(entityID, metricID)] {
		if fact.Period == period {
			f := fact
			return &f, true
		}
	}
	return nil, false
}

// MostRecent returns the latest-period fact for (entity, metric).
func (ix *Index) MostRecent(entityID, metricID string) (*model.GroundTruthFact, bool) {
	facts := ix.byKey[indexKey(entityID, metricID)]
	if len(facts) == 0 {
		return nil, false
	}
	f := facts[0]
	return &f, true
}
