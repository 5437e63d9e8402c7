package domain

import (
	"sort"
)

// Scoring weights for vendor auto-assignment. Candidates have already passed
// the repository's hard availability filter; the emergency bonus stacks on top
// of that filter rather than replacing it.
const (
	scoreBase             = 50.0
	scorePreferredBonus   = 20.0
	scoreComplianceWeight = 0.1
	scoreRatingWeight     = 5.0
	scoreReopenPenalty    = 10.0
	scoreEmergencyBonus   = 30.0
)

// VendorScore pairs a candidate vendor with its computed assignment score.
type VendorScore struct {
	VendorID VendorID
	Code     string
	Score    float64
}

// ScoreVendor computes the auto-assignment score of one candidate. It is a
// pure function of the work order priority and the vendor record.
func ScoreVendor(priority Priority, v Vendor) float64 {
	score := scoreBase
	if v.Preferred {
		score += scorePreferredBonus
	}
	score += v.Metrics.SLAComplianceRate * scoreComplianceWeight
	score += v.Metrics.AverageRating * scoreRatingWeight
	score -= v.Metrics.ReopenRate * scoreReopenPenalty
	if priority == PriorityEmergency && v.EmergencyAvailable {
		score += scoreEmergencyBonus
	}
	return score
}

// RankVendors scores every candidate and returns them best-first. Ties are
// broken deterministically by lexical vendor code so reordering the input
// never changes the winner.
func RankVendors(priority Priority, candidates []Vendor) []VendorScore {
	scores := make([]VendorScore, 0, len(candidates))
	for _, v := range candidates {
		scores = append(scores, VendorScore{
			VendorID: v.ID,
			Code:     v.Code,
			Score:    ScoreVendor(priority, v),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Code < scores[j].Code
	})
	return scores
}
