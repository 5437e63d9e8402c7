package domain

import (
	"math"
	"testing"
)

func TestScoreVendorWeights(t *testing.T) {
	vendor := Vendor{
		ID:        "vnd_1",
		Code:      "VND-0001",
		Status:    VendorStatusActive,
		Preferred: true,
		Metrics: VendorMetrics{
			SLAComplianceRate: 90,
			AverageRating:     4.5,
			ReopenRate:        0.2,
		},
	}

	// 50 base + 20 preferred + 9 compliance + 22.5 rating - 2 reopen.
	want := 99.5
	if got := ScoreVendor(PriorityMedium, vendor); math.Abs(got-want) > 1e-9 {
		t.Errorf("ScoreVendor = %v, want %v", got, want)
	}
}

func TestScoreVendorEmergencyBonus(t *testing.T) {
	vendor := Vendor{ID: "vnd_1", Code: "VND-0001", EmergencyAvailable: true}

	base := ScoreVendor(PriorityHigh, vendor)
	emergency := ScoreVendor(PriorityEmergency, vendor)

	if emergency-base != scoreEmergencyBonus {
		t.Errorf("expected emergency bonus of %v, got %v", scoreEmergencyBonus, emergency-base)
	}

	// The bonus only applies to vendors flagged for emergency callouts.
	vendor.EmergencyAvailable = false
	if got := ScoreVendor(PriorityEmergency, vendor); got != base {
		t.Errorf("expected no bonus without emergency availability, got %v", got)
	}
}

func TestRankVendorsBestFirst(t *testing.T) {
	candidates := []Vendor{
		{ID: "vnd_low", Code: "VND-0003", Metrics: VendorMetrics{AverageRating: 2}},
		{ID: "vnd_high", Code: "VND-0001", Preferred: true, Metrics: VendorMetrics{AverageRating: 5}},
		{ID: "vnd_mid", Code: "VND-0002", Metrics: VendorMetrics{AverageRating: 4}},
	}

	ranked := RankVendors(PriorityMedium, candidates)

	if len(ranked) != 3 {
		t.Fatalf("expected three scores, got %d", len(ranked))
	}
	if ranked[0].VendorID != "vnd_high" {
		t.Errorf("expected vnd_high first, got %s", ranked[0].VendorID)
	}
	if ranked[2].VendorID != "vnd_low" {
		t.Errorf("expected vnd_low last, got %s", ranked[2].VendorID)
	}
}

func TestRankVendorsTieBreakByCode(t *testing.T) {
	candidates := []Vendor{
		{ID: "vnd_b", Code: "VND-0002"},
		{ID: "vnd_a", Code: "VND-0001"},
	}

	ranked := RankVendors(PriorityLow, candidates)

	if ranked[0].VendorID != "vnd_a" {
		t.Errorf("expected lexical code tie-break, got %s first", ranked[0].VendorID)
	}

	// Reordering the input must not change the winner.
	reversed := RankVendors(PriorityLow, []Vendor{candidates[1], candidates[0]})
	if reversed[0].VendorID != "vnd_a" {
		t.Errorf("expected stable winner regardless of input order, got %s", reversed[0].VendorID)
	}
}

func TestVendorAvailable(t *testing.T) {
	if !(Vendor{Status: VendorStatusActive}).Available() {
		t.Errorf("expected active vendor to be available")
	}
	for _, status := range []VendorStatus{VendorStatusInactive, VendorStatusProbation, VendorStatusSuspended, VendorStatusBlacklisted} {
		if (Vendor{Status: status}).Available() {
			t.Errorf("expected %s vendor to be unavailable", status)
		}
	}
}
