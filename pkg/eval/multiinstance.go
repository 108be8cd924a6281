package eval

import (
	"github.com/OFFIS-RIT/relex/pkg/classifier"
	"github.com/OFFIS-RIT/relex/pkg/features"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/relation"
)

// Score is the evaluated outcome of one instance group: its reference
// label and the aggregated probability that the relation holds.
type Score struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// ReduceLabel returns the single label shared by all members of a group.
// ok is false when the labels disagree or the group is empty; such groups
// are excluded from evaluation.
func ReduceLabel(labels []int) (label int, ok bool) {
	if len(labels) == 0 {
		return 0, false
	}
	for _, l := range labels[1:] {
		if l != labels[0] {
			return 0, false
		}
	}
	return labels[0], true
}

// NoisyOr aggregates per-instance probabilities into 1 - ∏(1 - p). The
// product is accumulated as a running union so that a single probability
// is returned unchanged. An empty input yields 0.
func NoisyOr(probs []float64) float64 {
	acc := 0.0
	for _, p := range probs {
		acc = acc + p - acc*p
	}
	return acc
}

// EvaluateGroups scores every group of g with clf, in group order. Groups
// whose members carry mixed labels are skipped.
func EvaluateGroups(g *relation.Grouping, clf classifier.Classifier) []Score {
	scores := make([]Score, 0, g.Len())
	for _, gid := range g.Order {
		members := g.Members(gid)

		labels := make([]int, len(members))
		X := make([]features.Vector, len(members))
		for i, inst := range members {
			labels[i] = inst.Label
			X[i] = inst.Features
		}

		label, ok := ReduceLabel(labels)
		if !ok {
			logger.Debug("[Eval] Skipping group with mixed labels", "group", gid, "size", len(members))
			continue
		}

		scores = append(scores, Score{
			Label:       label,
			Probability: NoisyOr(clf.PredictProba(X)),
		})
	}
	return scores
}
