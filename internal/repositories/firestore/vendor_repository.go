package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/propstack/maintenance/internal/domain"
	pfirestore "github.com/propstack/maintenance/internal/platform/firestore"
	"github.com/propstack/maintenance/internal/repositories"
)

const vendorsCollection = "vendors"

// VendorRepository persists vendor records under per-tenant subcollections
// (tenants/{tenant}/vendors).
type VendorRepository struct {
	provider *pfirestore.Provider
}

// NewVendorRepository constructs a Firestore-backed vendor repository.
func NewVendorRepository(provider *pfirestore.Provider) (*VendorRepository, error) {
	if provider == nil {
		return nil, errors.New("vendor repository: firestore provider is required")
	}
	return &VendorRepository{provider: provider}, nil
}

func (r *VendorRepository) base(tenant domain.TenantID) (*pfirestore.BaseRepository[vendorDocument], error) {
	path, err := tenantCollectionPath(tenant, vendorsCollection)
	if err != nil {
		return nil, err
	}
	return pfirestore.NewBaseRepository[vendorDocument](r.provider, path, nil, nil), nil
}

// Create stores a new vendor record. The ID must be unique within the tenant.
func (r *VendorRepository) Create(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error {
	if r == nil || r.provider == nil {
		return errors.New("vendor repository not initialised")
	}
	id := strings.TrimSpace(string(vendor.ID))
	if id == "" {
		return errors.New("vendor repository: vendor id is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return err
	}
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, encodeVendorDocument(vendor)); err != nil {
		return pfirestore.WrapError("vendors.create", err)
	}
	return nil
}

// Update replaces the persisted vendor state with the provided snapshot.
func (r *VendorRepository) Update(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error {
	if r == nil || r.provider == nil {
		return errors.New("vendor repository not initialised")
	}
	id := strings.TrimSpace(string(vendor.ID))
	if id == "" {
		return errors.New("vendor repository: vendor id is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return err
	}
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, encodeVendorDocument(vendor)); err != nil {
		return pfirestore.WrapError("vendors.update", err)
	}
	return nil
}

// Delete removes the vendor document.
func (r *VendorRepository) Delete(ctx context.Context, tenant domain.TenantID, id domain.VendorID) error {
	if r == nil || r.provider == nil {
		return errors.New("vendor repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return err
	}
	ref, err := base.DocumentRef(ctx, strings.TrimSpace(string(id)))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("vendors.delete", err)
	}
	return nil
}

// FindByID fetches a single vendor in tenant scope.
func (r *VendorRepository) FindByID(ctx context.Context, tenant domain.TenantID, id domain.VendorID) (domain.Vendor, error) {
	if r == nil || r.provider == nil {
		return domain.Vendor{}, errors.New("vendor repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.Vendor{}, err
	}
	doc, err := base.Get(ctx, strings.TrimSpace(string(id)))
	if err != nil {
		return domain.Vendor{}, err
	}
	return decodeVendorDocument(doc.ID, tenant, doc.Data), nil
}

// FindByCode fetches a vendor by its human-readable code.
func (r *VendorRepository) FindByCode(ctx context.Context, tenant domain.TenantID, code string) (domain.Vendor, error) {
	if r == nil || r.provider == nil {
		return domain.Vendor{}, errors.New("vendor repository not initialised")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Vendor{}, errors.New("vendor repository: code is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.Vendor{}, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Vendor{}, err
	}
	if len(docs) == 0 {
		return domain.Vendor{}, pfirestore.NotFoundError("vendors.find_by_code", fmt.Errorf("vendor %s not found", code))
	}
	return decodeVendorDocument(docs[0].ID, tenant, docs[0].Data), nil
}

// List returns a filtered page of vendors ordered by code.
func (r *VendorRepository) List(ctx context.Context, tenant domain.TenantID, filter repositories.VendorListFilter) (domain.CursorPage[domain.Vendor], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Vendor]{}, errors.New("vendor repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.CursorPage[domain.Vendor]{}, err
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	startAfter := strings.TrimSpace(filter.Pagination.PageToken)

	statusFilters := vendorStatusStrings(filter.Status)

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = applyInFilter(q, "status", statusFilters)
		if specialization := strings.ToLower(strings.TrimSpace(filter.Specialization)); specialization != "" {
			q = q.Where("specializations", "array-contains", specialization)
		}
		if filter.Preferred != nil {
			q = q.Where("preferred", "==", *filter.Preferred)
		}
		q = q.OrderBy("code", firestore.Asc)
		if startAfter != "" {
			q = q.StartAfter(startAfter)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Vendor]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		nextToken = valueDocs[len(valueDocs)-1].Data.Code
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Vendor, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeVendorDocument(doc.ID, tenant, doc.Data))
	}

	return domain.CursorPage[domain.Vendor]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ListAvailable returns active vendors matching the hard assignment filters.
func (r *VendorRepository) ListAvailable(ctx context.Context, tenant domain.TenantID, query repositories.VendorAvailabilityQuery) ([]domain.Vendor, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("vendor repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("status", "==", string(domain.VendorStatusActive))
		if specialization := strings.ToLower(strings.TrimSpace(query.Specialization)); specialization != "" {
			q = q.Where("specializations", "array-contains", specialization)
		}
		if query.EmergencyRequired {
			q = q.Where("emergencyAvailable", "==", true)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	vendors := make([]domain.Vendor, 0, len(docs))
	for _, doc := range docs {
		vendors = append(vendors, decodeVendorDocument(doc.ID, tenant, doc.Data))
	}
	return vendors, nil
}

// ListPreferred returns active preferred vendors ordered by code.
func (r *VendorRepository) ListPreferred(ctx context.Context, tenant domain.TenantID) ([]domain.Vendor, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("vendor repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(domain.VendorStatusActive)).
			Where("preferred", "==", true).
			OrderBy("code", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	vendors := make([]domain.Vendor, 0, len(docs))
	for _, doc := range docs {
		vendors = append(vendors, decodeVendorDocument(doc.ID, tenant, doc.Data))
	}
	return vendors, nil
}

type vendorDocument struct {
	Code   string `firestore:"code"`
	Name   string `firestore:"name"`
	Status string `firestore:"status"`

	Specializations    []string `firestore:"specializations"`
	ServiceAreas       []string `firestore:"serviceAreas,omitempty"`
	EmergencyAvailable bool     `firestore:"emergencyAvailable"`
	Preferred          bool     `firestore:"preferred"`

	Contacts  []vendorContactDocument `firestore:"contacts,omitempty"`
	RateCards []rateCardDocument      `firestore:"rateCards,omitempty"`
	Metrics   vendorMetricsDocument   `firestore:"metrics"`

	LicenseNumber   string `firestore:"licenseNumber,omitempty"`
	InsurancePolicy string `firestore:"insurancePolicy,omitempty"`
	InsuranceExpiry string `firestore:"insuranceExpiry,omitempty"`
	Notes           string `firestore:"notes,omitempty"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
	CreatedBy string    `firestore:"createdBy,omitempty"`
	UpdatedBy string    `firestore:"updatedBy,omitempty"`
}

type vendorContactDocument struct {
	Name             string `firestore:"name"`
	Phone            string `firestore:"phone,omitempty"`
	Email            string `firestore:"email,omitempty"`
	EmergencyContact bool   `firestore:"emergencyContact"`
}

type rateCardDocument struct {
	Category            string        `firestore:"category"`
	HourlyRate          moneyDocument `firestore:"hourlyRate"`
	MinimumCharge       moneyDocument `firestore:"minimumCharge"`
	EmergencyMultiplier float64       `firestore:"emergencyMultiplier"`
}

type vendorMetricsDocument struct {
	TotalJobs            int     `firestore:"totalJobs"`
	CompletedJobs        int     `firestore:"completedJobs"`
	RatedJobs            int     `firestore:"ratedJobs"`
	ReopenedJobs         int     `firestore:"reopenedJobs"`
	CompletedWithinSLA   int     `firestore:"completedWithinSla"`
	AvgResponseMinutes   float64 `firestore:"avgResponseMinutes"`
	AvgResolutionMinutes float64 `firestore:"avgResolutionMinutes"`
	ReopenRate           float64 `firestore:"reopenRate"`
	AverageRating        float64 `firestore:"averageRating"`
	SLAComplianceRate    float64 `firestore:"slaComplianceRate"`
}

func encodeVendorDocument(vendor domain.Vendor) vendorDocument {
	doc := vendorDocument{
		Code:               strings.TrimSpace(vendor.Code),
		Name:               strings.TrimSpace(vendor.Name),
		Status:             string(vendor.Status),
		Specializations:    vendor.Specializations,
		ServiceAreas:       vendor.ServiceAreas,
		EmergencyAvailable: vendor.EmergencyAvailable,
		Preferred:          vendor.Preferred,
		LicenseNumber:      strings.TrimSpace(vendor.LicenseNumber),
		InsurancePolicy:    strings.TrimSpace(vendor.InsurancePolicy),
		InsuranceExpiry:    strings.TrimSpace(vendor.InsuranceExpiry),
		Notes:              vendor.Notes,
		CreatedAt:          vendor.Audit.CreatedAt.UTC(),
		UpdatedAt:          vendor.Audit.UpdatedAt.UTC(),
		CreatedBy:          strings.TrimSpace(string(vendor.Audit.CreatedBy)),
		UpdatedBy:          strings.TrimSpace(string(vendor.Audit.UpdatedBy)),
		Metrics: vendorMetricsDocument{
			TotalJobs:            vendor.Metrics.TotalJobs,
			CompletedJobs:        vendor.Metrics.CompletedJobs,
			RatedJobs:            vendor.Metrics.RatedJobs,
			ReopenedJobs:         vendor.Metrics.ReopenedJobs,
			CompletedWithinSLA:   vendor.Metrics.CompletedWithinSLA,
			AvgResponseMinutes:   vendor.Metrics.AvgResponseMinutes,
			AvgResolutionMinutes: vendor.Metrics.AvgResolutionMinutes,
			ReopenRate:           vendor.Metrics.ReopenRate,
			AverageRating:        vendor.Metrics.AverageRating,
			SLAComplianceRate:    vendor.Metrics.SLAComplianceRate,
		},
	}
	for _, contact := range vendor.Contacts {
		doc.Contacts = append(doc.Contacts, vendorContactDocument{
			Name:             strings.TrimSpace(contact.Name),
			Phone:            strings.TrimSpace(contact.Phone),
			Email:            strings.TrimSpace(contact.Email),
			EmergencyContact: contact.EmergencyContact,
		})
	}
	for _, card := range vendor.RateCards {
		doc.RateCards = append(doc.RateCards, rateCardDocument{
			Category:            strings.TrimSpace(card.Category),
			HourlyRate:          moneyDocument{Amount: card.HourlyRate.Amount, Currency: card.HourlyRate.Currency},
			MinimumCharge:       moneyDocument{Amount: card.MinimumCharge.Amount, Currency: card.MinimumCharge.Currency},
			EmergencyMultiplier: card.EmergencyMultiplier,
		})
	}
	return doc
}

func decodeVendorDocument(id string, tenant domain.TenantID, doc vendorDocument) domain.Vendor {
	vendor := domain.Vendor{
		ID:                 domain.VendorID(strings.TrimSpace(id)),
		TenantID:           tenant,
		Code:               doc.Code,
		Name:               doc.Name,
		Status:             domain.VendorStatus(doc.Status),
		Specializations:    doc.Specializations,
		ServiceAreas:       doc.ServiceAreas,
		EmergencyAvailable: doc.EmergencyAvailable,
		Preferred:          doc.Preferred,
		LicenseNumber:      doc.LicenseNumber,
		InsurancePolicy:    doc.InsurancePolicy,
		InsuranceExpiry:    doc.InsuranceExpiry,
		Notes:              doc.Notes,
		Metrics: domain.VendorMetrics{
			TotalJobs:            doc.Metrics.TotalJobs,
			CompletedJobs:        doc.Metrics.CompletedJobs,
			RatedJobs:            doc.Metrics.RatedJobs,
			ReopenedJobs:         doc.Metrics.ReopenedJobs,
			CompletedWithinSLA:   doc.Metrics.CompletedWithinSLA,
			AvgResponseMinutes:   doc.Metrics.AvgResponseMinutes,
			AvgResolutionMinutes: doc.Metrics.AvgResolutionMinutes,
			ReopenRate:           doc.Metrics.ReopenRate,
			AverageRating:        doc.Metrics.AverageRating,
			SLAComplianceRate:    doc.Metrics.SLAComplianceRate,
		},
		Audit: domain.Audit{
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
			CreatedBy: domain.UserID(doc.CreatedBy),
			UpdatedBy: domain.UserID(doc.UpdatedBy),
		},
	}
	for _, contact := range doc.Contacts {
		vendor.Contacts = append(vendor.Contacts, domain.VendorContact{
			Name:             contact.Name,
			Phone:            contact.Phone,
			Email:            contact.Email,
			EmergencyContact: contact.EmergencyContact,
		})
	}
	for _, card := range doc.RateCards {
		vendor.RateCards = append(vendor.RateCards, domain.RateCard{
			Category:            card.Category,
			HourlyRate:          domain.Money{Amount: card.HourlyRate.Amount, Currency: card.HourlyRate.Currency},
			MinimumCharge:       domain.Money{Amount: card.MinimumCharge.Amount, Currency: card.MinimumCharge.Currency},
			EmergencyMultiplier: card.EmergencyMultiplier,
		})
	}
	return vendor
}

func vendorStatusStrings(statuses []domain.VendorStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
