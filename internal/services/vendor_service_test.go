package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domain "github.com/propstack/maintenance/internal/domain"
)

type stubVendorService struct {
	recordCompletionFn func(context.Context, VendorCompletionRecord) (Vendor, error)
	recordRatingFn     func(context.Context, OperationContext, domain.VendorID, int) (Vendor, error)
	recordReopenFn     func(context.Context, OperationContext, domain.VendorID) (Vendor, error)
}

func (s *stubVendorService) CreateVendor(context.Context, CreateVendorCommand) (Vendor, error) {
	return Vendor{}, errors.New("not implemented")
}

func (s *stubVendorService) UpdateVendor(context.Context, UpdateVendorCommand) (Vendor, error) {
	return Vendor{}, errors.New("not implemented")
}

func (s *stubVendorService) GetVendor(context.Context, domain.TenantID, domain.VendorID) (Vendor, error) {
	return Vendor{}, errors.New("not implemented")
}

func (s *stubVendorService) GetVendorByCode(context.Context, domain.TenantID, string) (Vendor, error) {
	return Vendor{}, errors.New("not implemented")
}

func (s *stubVendorService) ListVendors(context.Context, domain.TenantID, VendorListFilter) (domain.CursorPage[Vendor], error) {
	return domain.CursorPage[Vendor]{}, errors.New("not implemented")
}

func (s *stubVendorService) RecordCompletion(ctx context.Context, rec VendorCompletionRecord) (Vendor, error) {
	if s.recordCompletionFn != nil {
		return s.recordCompletionFn(ctx, rec)
	}
	return Vendor{}, nil
}

func (s *stubVendorService) RecordRating(ctx context.Context, op OperationContext, id domain.VendorID, rating int) (Vendor, error) {
	if s.recordRatingFn != nil {
		return s.recordRatingFn(ctx, op, id, rating)
	}
	return Vendor{}, nil
}

func (s *stubVendorService) RecordReopen(ctx context.Context, op OperationContext, id domain.VendorID) (Vendor, error) {
	if s.recordReopenFn != nil {
		return s.recordReopenFn(ctx, op, id)
	}
	return Vendor{}, nil
}

func newTestVendorService(t *testing.T, deps VendorServiceDeps) VendorService {
	t.Helper()
	if deps.Vendors == nil {
		deps.Vendors = &stubVendorRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	}
	svc, err := NewVendorService(deps)
	if err != nil {
		t.Fatalf("NewVendorService returned error: %v", err)
	}
	return svc
}

func TestCreateVendorAssignsCode(t *testing.T) {
	var created domain.Vendor
	repo := &stubVendorRepo{
		createFn: func(_ context.Context, tenant domain.TenantID, vendor domain.Vendor) error {
			if tenant != "acme" {
				t.Errorf("expected tenant acme, got %s", tenant)
			}
			created = vendor
			return nil
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, _ int64) (int64, error) {
			if counterID != "vendors:acme" {
				t.Errorf("unexpected counter id %s", counterID)
			}
			return 7, nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo, Counters: counters})

	vendor, err := svc.CreateVendor(context.Background(), CreateVendorCommand{
		Op:              testOp,
		Name:            "Apex Plumbing",
		Specializations: []string{"Plumbing", " plumbing ", "HVAC"},
	})
	if err != nil {
		t.Fatalf("CreateVendor returned error: %v", err)
	}

	if vendor.Code != "VND-0007" {
		t.Errorf("unexpected vendor code %s", vendor.Code)
	}
	if vendor.Status != domain.VendorStatusActive {
		t.Errorf("expected active status, got %s", vendor.Status)
	}
	if len(vendor.Specializations) != 2 {
		t.Errorf("expected deduplicated lowercase specializations, got %v", vendor.Specializations)
	}
	if created.ID != vendor.ID {
		t.Errorf("expected persisted vendor to match returned one")
	}
}

func TestCreateVendorValidation(t *testing.T) {
	svc := newTestVendorService(t, VendorServiceDeps{})

	cases := []struct {
		name string
		cmd  CreateVendorCommand
	}{
		{"missing name", CreateVendorCommand{Op: testOp, Specializations: []string{"plumbing"}}},
		{"missing specializations", CreateVendorCommand{Op: testOp, Name: "Apex"}},
		{"blank specializations", CreateVendorCommand{Op: testOp, Name: "Apex", Specializations: []string{"  "}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateVendor(context.Background(), tc.cmd)
			if !errors.Is(err, ErrInvalidVendorData) {
				t.Fatalf("expected ErrInvalidVendorData, got %v", err)
			}
		})
	}
}

func TestUpdateVendorPartialFields(t *testing.T) {
	existing := domain.Vendor{
		ID:              "vnd_1",
		TenantID:        "acme",
		Code:            "VND-0001",
		Name:            "Apex Plumbing",
		Status:          domain.VendorStatusActive,
		Specializations: []string{"plumbing"},
	}
	var updated domain.Vendor
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return existing, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, vendor domain.Vendor) error {
			updated = vendor
			return nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	probation := domain.VendorStatusProbation
	preferred := true
	vendor, err := svc.UpdateVendor(context.Background(), UpdateVendorCommand{
		Op:        testOp,
		ID:        "vnd_1",
		Status:    &probation,
		Preferred: &preferred,
	})
	if err != nil {
		t.Fatalf("UpdateVendor returned error: %v", err)
	}

	if vendor.Status != domain.VendorStatusProbation {
		t.Errorf("expected probation status, got %s", vendor.Status)
	}
	if !vendor.Preferred {
		t.Errorf("expected preferred flag set")
	}
	if vendor.Name != "Apex Plumbing" {
		t.Errorf("expected untouched name, got %s", vendor.Name)
	}
	if updated.ID != "vnd_1" {
		t.Errorf("expected update persisted")
	}
}

func TestUpdateVendorRejectsUnknownStatus(t *testing.T) {
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return domain.Vendor{ID: "vnd_1", TenantID: "acme", Status: domain.VendorStatusActive}, nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	bogus := domain.VendorStatus("retired")
	_, err := svc.UpdateVendor(context.Background(), UpdateVendorCommand{Op: testOp, ID: "vnd_1", Status: &bogus})
	if !errors.Is(err, ErrInvalidVendorData) {
		t.Fatalf("expected ErrInvalidVendorData, got %v", err)
	}
}

func TestRecordCompletionAccumulatesMetrics(t *testing.T) {
	current := domain.Vendor{ID: "vnd_1", TenantID: "acme", Status: domain.VendorStatusActive}
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return current, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, vendor domain.Vendor) error {
			current = vendor
			return nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	vendor, err := svc.RecordCompletion(context.Background(), VendorCompletionRecord{
		Op:                testOp,
		VendorID:          "vnd_1",
		ResponseMinutes:   60,
		ResolutionMinutes: 180,
		WithinSLA:         true,
	})
	if err != nil {
		t.Fatalf("RecordCompletion returned error: %v", err)
	}
	if vendor.Metrics.CompletedJobs != 1 || vendor.Metrics.TotalJobs != 1 {
		t.Errorf("unexpected job counts: %+v", vendor.Metrics)
	}
	if vendor.Metrics.AvgResponseMinutes != 60 || vendor.Metrics.AvgResolutionMinutes != 180 {
		t.Errorf("unexpected averages: %+v", vendor.Metrics)
	}
	if vendor.Metrics.SLAComplianceRate != 100 {
		t.Errorf("expected 100%% compliance, got %v", vendor.Metrics.SLAComplianceRate)
	}

	vendor, err = svc.RecordCompletion(context.Background(), VendorCompletionRecord{
		Op:                testOp,
		VendorID:          "vnd_1",
		ResponseMinutes:   120,
		ResolutionMinutes: 300,
		WithinSLA:         false,
	})
	if err != nil {
		t.Fatalf("RecordCompletion returned error: %v", err)
	}
	if vendor.Metrics.CompletedJobs != 2 {
		t.Errorf("expected 2 completed jobs, got %d", vendor.Metrics.CompletedJobs)
	}
	if math.Abs(vendor.Metrics.AvgResponseMinutes-90) > 1e-9 {
		t.Errorf("expected folded mean 90, got %v", vendor.Metrics.AvgResponseMinutes)
	}
	if math.Abs(vendor.Metrics.AvgResolutionMinutes-240) > 1e-9 {
		t.Errorf("expected folded mean 240, got %v", vendor.Metrics.AvgResolutionMinutes)
	}
	if math.Abs(vendor.Metrics.SLAComplianceRate-50) > 1e-9 {
		t.Errorf("expected 50%% compliance, got %v", vendor.Metrics.SLAComplianceRate)
	}
}

func TestRecordRatingIncrementalMean(t *testing.T) {
	current := domain.Vendor{ID: "vnd_1", TenantID: "acme", Status: domain.VendorStatusActive}
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return current, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, vendor domain.Vendor) error {
			current = vendor
			return nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	for _, rating := range []int{5, 3, 4} {
		if _, err := svc.RecordRating(context.Background(), testOp, "vnd_1", rating); err != nil {
			t.Fatalf("RecordRating returned error: %v", err)
		}
	}

	if current.Metrics.RatedJobs != 3 {
		t.Errorf("expected 3 rated jobs, got %d", current.Metrics.RatedJobs)
	}
	if math.Abs(current.Metrics.AverageRating-4) > 1e-9 {
		t.Errorf("expected running mean 4, got %v", current.Metrics.AverageRating)
	}
}

func TestRecordRatingValidatesRange(t *testing.T) {
	svc := newTestVendorService(t, VendorServiceDeps{})

	for _, rating := range []int{0, 6} {
		_, err := svc.RecordRating(context.Background(), testOp, "vnd_1", rating)
		if !errors.Is(err, ErrInvalidVendorData) {
			t.Fatalf("expected ErrInvalidVendorData for rating %d, got %v", rating, err)
		}
	}
}

func TestRecordReopenUpdatesRate(t *testing.T) {
	current := domain.Vendor{
		ID:       "vnd_1",
		TenantID: "acme",
		Status:   domain.VendorStatusActive,
		Metrics:  domain.VendorMetrics{TotalJobs: 4, CompletedJobs: 4, CompletedWithinSLA: 4},
	}
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return current, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, vendor domain.Vendor) error {
			current = vendor
			return nil
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	vendor, err := svc.RecordReopen(context.Background(), testOp, "vnd_1")
	if err != nil {
		t.Fatalf("RecordReopen returned error: %v", err)
	}
	if vendor.Metrics.ReopenedJobs != 1 {
		t.Errorf("expected one reopened job, got %d", vendor.Metrics.ReopenedJobs)
	}
	if math.Abs(vendor.Metrics.ReopenRate-0.25) > 1e-9 {
		t.Errorf("expected reopen rate 0.25, got %v", vendor.Metrics.ReopenRate)
	}
}

func TestGetVendorMapsNotFound(t *testing.T) {
	repo := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return domain.Vendor{}, notFoundRepoError{}
		},
	}
	svc := newTestVendorService(t, VendorServiceDeps{Vendors: repo})

	_, err := svc.GetVendor(context.Background(), "acme", "vnd_missing")
	if !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}
	if ErrorCode(err) != CodeVendorNotFound {
		t.Errorf("expected canonical code, got %s", ErrorCode(err))
	}
}

func TestGetVendorByCodeRequiresCode(t *testing.T) {
	svc := newTestVendorService(t, VendorServiceDeps{})

	_, err := svc.GetVendorByCode(context.Background(), "acme", "  ")
	if !errors.Is(err, ErrInvalidVendorData) {
		t.Fatalf("expected ErrInvalidVendorData, got %v", err)
	}
}

func TestFoldMean(t *testing.T) {
	cases := []struct {
		mean   float64
		count  int
		sample float64
		want   float64
	}{
		{0, 1, 10, 10},
		{10, 2, 20, 15},
		{15, 3, 30, 20},
	}
	for _, tc := range cases {
		if got := foldMean(tc.mean, tc.count, tc.sample); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("foldMean(%v, %d, %v) = %v, want %v", tc.mean, tc.count, tc.sample, got, tc.want)
		}
	}
}
