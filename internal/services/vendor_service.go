package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/platform/textutil"
	"github.com/propstack/maintenance/internal/repositories"
)

const (
	vendorIDPrefix      = "vnd_"
	vendorCounterPrefix = "vendors"
)

// VendorServiceDeps bundles collaborators required to construct the service.
type VendorServiceDeps struct {
	Vendors     repositories.VendorRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Sanitize    func(string) string
}

type vendorService struct {
	vendors    repositories.VendorRepository
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	sanitize   func(string) string
}

// NewVendorService wires dependencies into a concrete VendorService.
func NewVendorService(deps VendorServiceDeps) (VendorService, error) {
	if deps.Vendors == nil {
		return nil, errors.New("vendor service: vendor repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("vendor service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	sanitize := deps.Sanitize
	if sanitize == nil {
		sanitize = textutil.PlainText
	}

	return &vendorService{
		vendors:    deps.Vendors,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		sanitize: sanitize,
	}, nil
}

func (s *vendorService) CreateVendor(ctx context.Context, cmd CreateVendorCommand) (Vendor, error) {
	tenant, err := requireTenant(cmd.Op)
	if err != nil {
		return Vendor{}, err
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Vendor{}, fmt.Errorf("%w: name is required", ErrInvalidVendorData)
	}
	specializations := normalizeList(cmd.Specializations)
	if len(specializations) == 0 {
		return Vendor{}, fmt.Errorf("%w: at least one specialization is required", ErrInvalidVendorData)
	}

	now := s.clock()

	vendor := Vendor{
		ID:                 domain.VendorID(vendorIDPrefix + s.newID()),
		TenantID:           tenant,
		Name:               name,
		Status:             domain.VendorStatusActive,
		Specializations:    specializations,
		ServiceAreas:       normalizeList(cmd.ServiceAreas),
		EmergencyAvailable: cmd.EmergencyAvailable,
		Preferred:          cmd.Preferred,
		Contacts:           cloneContacts(cmd.Contacts),
		RateCards:          cloneRateCards(cmd.RateCards),
		LicenseNumber:      strings.TrimSpace(cmd.LicenseNumber),
		InsurancePolicy:    strings.TrimSpace(cmd.InsurancePolicy),
		InsuranceExpiry:    strings.TrimSpace(cmd.InsuranceExpiry),
		Notes:              s.sanitize(cmd.Notes),
		Audit: domain.Audit{
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: cmd.Op.ActorID,
			UpdatedBy: cmd.Op.ActorID,
		},
	}

	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s:%s", vendorCounterPrefix, tenant), 1)
	if err != nil {
		return Vendor{}, err
	}
	vendor.Code = fmt.Sprintf("VND-%04d", seq)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.vendors.Create(txCtx, tenant, vendor); err != nil {
			return s.mapRepoError(err)
		}
		return nil
	})
	if err != nil {
		return Vendor{}, err
	}

	return vendor, nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, cmd UpdateVendorCommand) (Vendor, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(vendor *Vendor) error {
		if cmd.Name != nil {
			name := strings.TrimSpace(*cmd.Name)
			if name == "" {
				return fmt.Errorf("%w: name cannot be blank", ErrInvalidVendorData)
			}
			vendor.Name = name
		}
		if cmd.Status != nil {
			if !domain.ValidVendorStatus(*cmd.Status) {
				return fmt.Errorf("%w: unknown vendor status %q", ErrInvalidVendorData, *cmd.Status)
			}
			vendor.Status = *cmd.Status
		}
		if cmd.Specializations != nil {
			specializations := normalizeList(cmd.Specializations)
			if len(specializations) == 0 {
				return fmt.Errorf("%w: at least one specialization is required", ErrInvalidVendorData)
			}
			vendor.Specializations = specializations
		}
		if cmd.ServiceAreas != nil {
			vendor.ServiceAreas = normalizeList(cmd.ServiceAreas)
		}
		if cmd.EmergencyAvailable != nil {
			vendor.EmergencyAvailable = *cmd.EmergencyAvailable
		}
		if cmd.Preferred != nil {
			vendor.Preferred = *cmd.Preferred
		}
		if cmd.Contacts != nil {
			vendor.Contacts = cloneContacts(cmd.Contacts)
		}
		if cmd.RateCards != nil {
			vendor.RateCards = cloneRateCards(cmd.RateCards)
		}
		if cmd.Notes != nil {
			vendor.Notes = s.sanitize(*cmd.Notes)
		}
		return nil
	})
}

func (s *vendorService) GetVendor(ctx context.Context, tenant domain.TenantID, id domain.VendorID) (Vendor, error) {
	vendor, err := s.vendors.FindByID(ctx, tenant, id)
	if err != nil {
		return Vendor{}, s.mapRepoError(err)
	}
	return vendor, nil
}

func (s *vendorService) GetVendorByCode(ctx context.Context, tenant domain.TenantID, code string) (Vendor, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Vendor{}, fmt.Errorf("%w: vendor code is required", ErrInvalidVendorData)
	}
	vendor, err := s.vendors.FindByCode(ctx, tenant, code)
	if err != nil {
		return Vendor{}, s.mapRepoError(err)
	}
	return vendor, nil
}

func (s *vendorService) ListVendors(ctx context.Context, tenant domain.TenantID, filter VendorListFilter) (domain.CursorPage[Vendor], error) {
	page, err := s.vendors.List(ctx, tenant, filter)
	if err != nil {
		return domain.CursorPage[Vendor]{}, s.mapRepoError(err)
	}
	return page, nil
}

func (s *vendorService) RecordCompletion(ctx context.Context, rec VendorCompletionRecord) (Vendor, error) {
	return s.mutate(ctx, rec.Op, rec.VendorID, func(vendor *Vendor) error {
		m := &vendor.Metrics
		m.TotalJobs++
		m.CompletedJobs++
		if rec.WithinSLA {
			m.CompletedWithinSLA++
		}
		m.AvgResponseMinutes = foldMean(m.AvgResponseMinutes, m.CompletedJobs, rec.ResponseMinutes)
		m.AvgResolutionMinutes = foldMean(m.AvgResolutionMinutes, m.CompletedJobs, rec.ResolutionMinutes)
		m.SLAComplianceRate = float64(m.CompletedWithinSLA) / float64(m.CompletedJobs) * 100
		m.ReopenRate = reopenRate(m)
		return nil
	})
}

func (s *vendorService) RecordRating(ctx context.Context, op OperationContext, id domain.VendorID, rating int) (Vendor, error) {
	if rating < 1 || rating > 5 {
		return Vendor{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidVendorData)
	}
	return s.mutate(ctx, op, id, func(vendor *Vendor) error {
		m := &vendor.Metrics
		m.RatedJobs++
		m.AverageRating = foldMean(m.AverageRating, m.RatedJobs, float64(rating))
		return nil
	})
}

func (s *vendorService) RecordReopen(ctx context.Context, op OperationContext, id domain.VendorID) (Vendor, error) {
	return s.mutate(ctx, op, id, func(vendor *Vendor) error {
		m := &vendor.Metrics
		m.ReopenedJobs++
		m.ReopenRate = reopenRate(m)
		return nil
	})
}

func (s *vendorService) mutate(
	ctx context.Context,
	op OperationContext,
	id domain.VendorID,
	apply func(vendor *Vendor) error,
) (Vendor, error) {
	tenant, err := requireTenant(op)
	if err != nil {
		return Vendor{}, err
	}

	vendor, err := s.vendors.FindByID(ctx, tenant, id)
	if err != nil {
		return Vendor{}, s.mapRepoError(err)
	}

	if err := apply(&vendor); err != nil {
		return Vendor{}, err
	}

	vendor.Audit.UpdatedAt = s.clock()
	vendor.Audit.UpdatedBy = op.ActorID

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.vendors.Update(txCtx, tenant, vendor); err != nil {
			return s.mapRepoError(err)
		}
		return nil
	})
	if err != nil {
		return Vendor{}, err
	}

	return vendor, nil
}

func (s *vendorService) mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrVendorNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrVendorCodeExists, err)
		}
	}
	return err
}

func (s *vendorService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

// foldMean folds one new sample into a running mean where count already
// includes the new sample.
func foldMean(mean float64, count int, sample float64) float64 {
	if count <= 1 {
		return sample
	}
	return mean + (sample-mean)/float64(count)
}

func reopenRate(m *domain.VendorMetrics) float64 {
	if m.CompletedJobs == 0 {
		return 0
	}
	return float64(m.ReopenedJobs) / float64(m.CompletedJobs)
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func cloneContacts(contacts []domain.VendorContact) []domain.VendorContact {
	if len(contacts) == 0 {
		return nil
	}
	cloned := make([]domain.VendorContact, len(contacts))
	copy(cloned, contacts)
	return cloned
}

func cloneRateCards(cards []domain.RateCard) []domain.RateCard {
	if len(cards) == 0 {
		return nil
	}
	cloned := make([]domain.RateCard, len(cards))
	copy(cloned, cards)
	return cloned
}
