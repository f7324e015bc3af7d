package patterns

import (
	"github.com/aristath/cryptosignal/internal/indicators"
	"github.com/aristath/cryptosignal/internal/model"
)

// DetectAll runs every detector over s/snap/price and returns every
// non-nil candidate produced this cycle. Detectors are independent; more
// than one pattern may fire on the same tick.
func DetectAll(s indicators.Series, snap indicators.Snapshot, price float64) []model.Candidate {
	var out []model.Candidate
	for _, c := range []*model.Candidate{
		DetectDoubleBottom(s),
		DetectHeadAndShoulders(s),
		DetectTriangleBreakout(s),
		DetectIndicatorConfluence(snap, price),
	} {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
