package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/relex/pkg/common"
	"github.com/OFFIS-RIT/relex/pkg/eval"
)

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

// WriteReport writes one block per prediction:
//
//	Instance: 0
//	Label: 1
//	HUMAN: IL6	VIRAL: Tat
//	HUMAN_index: 1	VIRAL_index: 4
//	IL6 activates the Tat
//	Probability: 0.8731
func WriteReport(w io.Writer, entity1, entity2 string, predictions []common.Prediction) error {
	bw := bufio.NewWriter(w)
	for _, p := range predictions {
		fmt.Fprintf(bw, "Instance: %d\n", p.Index)
		fmt.Fprintf(bw, "Label: %d\n", p.Label)
		fmt.Fprintf(bw, "%s: %s\t%s: %s\n", entity1, p.Start.Text, entity2, p.End.Text)
		fmt.Fprintf(bw, "%s_index: %d\t%s_index: %d\n", entity1, p.Start.Token, entity2, p.End.Token)
		fmt.Fprintf(bw, "%s\n", p.Sentence)
		fmt.Fprintf(bw, "Probability: %.4f\n\n", p.Probability)
	}
	return bw.Flush()
}

// WriteCurve writes the precision-recall curve as TSV with a header row.
// The last point has no threshold.
func WriteCurve(w io.Writer, c eval.Curve) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "threshold\tprecision\trecall")
	for i := range c.Len() {
		threshold := "-"
		if i < len(c.Thresholds) {
			threshold = fmt.Sprintf("%.6f", c.Thresholds[i])
		}
		fmt.Fprintf(bw, "%s\t%.6f\t%.6f\n", threshold, c.Precision[i], c.Recall[i])
	}
	return bw.Flush()
}
