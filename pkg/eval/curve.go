package eval

import (
	"cmp"
	"slices"

	"github.com/OFFIS-RIT/relex/pkg/relation"
)

// Curve is a precision-recall curve. Points are ordered by increasing
// threshold; Thresholds[i] belongs to Precision[i] and Recall[i]. The final
// point (precision 1, recall 0) has no threshold.
type Curve struct {
	Precision  []float64 `json:"precision"`
	Recall     []float64 `json:"recall"`
	Thresholds []float64 `json:"thresholds"`
}

// Len returns the number of curve points.
func (c Curve) Len() int {
	return len(c.Precision)
}

func Precision(truePositives, testPositives int) float64 {
	if testPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(testPositives)
}

func Recall(truePositives, conditionPositives int) float64 {
	if conditionPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(conditionPositives)
}

// PrecisionRecallCurve computes precision and recall for every distinct
// probability used as a threshold (score >= threshold is positive).
// Thresholds below the first one reaching full recall are omitted.
func PrecisionRecallCurve(scores []Score) Curve {
	if len(scores) == 0 {
		return Curve{}
	}

	sorted := slices.Clone(scores)
	slices.SortStableFunc(sorted, func(a, b Score) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	positives := 0
	for _, s := range sorted {
		if s.Label == relation.Positive {
			positives++
		}
	}

	var precision, recall, thresholds []float64
	tp, fp := 0, 0
	for i, s := range sorted {
		if s.Label == relation.Positive {
			tp++
		} else {
			fp++
		}
		if i+1 < len(sorted) && sorted[i+1].Probability == s.Probability {
			continue
		}
		precision = append(precision, Precision(tp, tp+fp))
		recall = append(recall, Recall(tp, positives))
		thresholds = append(thresholds, s.Probability)
		if positives > 0 && tp == positives {
			break
		}
	}

	slices.Reverse(precision)
	slices.Reverse(recall)
	slices.Reverse(thresholds)

	return Curve{
		Precision:  append(precision, 1),
		Recall:     append(recall, 0),
		Thresholds: thresholds,
	}
}

// AveragePrecision is the step-wise area under the curve,
// Σ (R_n - R_{n-1}) · P_n.
func AveragePrecision(c Curve) float64 {
	ap := 0.0
	for i := 0; i+1 < c.Len(); i++ {
		ap += (c.Recall[i] - c.Recall[i+1]) * c.Precision[i]
	}
	return ap
}

// Baseline is the fraction of positive groups, the precision of a
// classifier that accepts everything.
func Baseline(scores []Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	positives := 0
	for _, s := range scores {
		if s.Label == relation.Positive {
			positives++
		}
	}
	return float64(positives) / float64(len(scores))
}
