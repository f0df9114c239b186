package conflict

// Analysis summarizes how a conflict batch would resolve. It feeds rule
// tuning, not resolution: running it has no effect on any conflict.
type Analysis struct {
	Total            int
	FieldFrequency   map[string]int
	StrategyUsage    map[Strategy]int
	ManualReviewRate float64
	MeanConfidence   float64
}

// Analyze resolves each conflict and aggregates the outcomes
func (r *Resolver) Analyze(conflicts []Conflict) Analysis {
	analysis := Analysis{
		Total:          len(conflicts),
		FieldFrequency: make(map[string]int),
		StrategyUsage:  make(map[Strategy]int),
	}
	if len(conflicts) == 0 {
		return analysis
	}

	var reviewCount int
	var confidenceSum float64
	for _, c := range conflicts {
		res := r.Resolve(c)
		analysis.FieldFrequency[c.Field]++
		analysis.StrategyUsage[res.Strategy]++
		confidenceSum += res.Confidence
		if res.RequiresManualReview {
			reviewCount++
		}
	}
	analysis.ManualReviewRate = float64(reviewCount) / float64(len(conflicts))
	analysis.MeanConfidence = confidenceSum / float64(len(conflicts))
	return analysis
}
