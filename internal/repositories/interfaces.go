package repositories

import (
	"context"
	"time"

	domain "github.com/propstack/maintenance/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WorkOrderListFilter narrows work order list queries. All fields are optional;
// zero values mean "no filter".
type WorkOrderListFilter struct {
	Status     []domain.WorkOrderStatus
	Priority   []domain.Priority
	Category   string
	Property   domain.PropertyID
	Unit       domain.UnitID
	Customer   domain.UserID
	Vendor     domain.VendorID
	Pagination domain.Pagination
}

// WorkOrderRepository persists work order aggregates, tenant-scoped on every call.
type WorkOrderRepository interface {
	Create(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error
	Update(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error
	Delete(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) error
	FindByID(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) (domain.WorkOrder, error)
	FindByNumber(ctx context.Context, tenant domain.TenantID, number string) (domain.WorkOrder, error)
	List(ctx context.Context, tenant domain.TenantID, filter WorkOrderListFilter) (domain.CursorPage[domain.WorkOrder], error)
	// ListOpen returns every work order not in a terminal status; the SLA
	// breach sweep is its only caller and it does not paginate.
	ListOpen(ctx context.Context, tenant domain.TenantID) ([]domain.WorkOrder, error)
	ListSLABreached(ctx context.Context, tenant domain.TenantID) ([]domain.WorkOrder, error)
	ListScheduledForDate(ctx context.Context, tenant domain.TenantID, day time.Time) ([]domain.WorkOrder, error)
	CountByStatus(ctx context.Context, tenant domain.TenantID) (map[domain.WorkOrderStatus]int, error)
}

// VendorAvailabilityQuery is the hard filter applied before scoring: active
// status, matching specialization, and emergency availability when required.
type VendorAvailabilityQuery struct {
	Specialization    string
	EmergencyRequired bool
}

// VendorListFilter narrows vendor list queries.
type VendorListFilter struct {
	Status         []domain.VendorStatus
	Specialization string
	Preferred      *bool
	Pagination     domain.Pagination
}

// VendorRepository persists vendor records, tenant-scoped on every call.
type VendorRepository interface {
	Create(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error
	Update(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error
	Delete(ctx context.Context, tenant domain.TenantID, id domain.VendorID) error
	FindByID(ctx context.Context, tenant domain.TenantID, id domain.VendorID) (domain.Vendor, error)
	FindByCode(ctx context.Context, tenant domain.TenantID, code string) (domain.Vendor, error)
	List(ctx context.Context, tenant domain.TenantID, filter VendorListFilter) (domain.CursorPage[domain.Vendor], error)
	ListAvailable(ctx context.Context, tenant domain.TenantID, query VendorAvailabilityQuery) ([]domain.Vendor, error)
	ListPreferred(ctx context.Context, tenant domain.TenantID) ([]domain.Vendor, error)
}

// CounterConfig bounds a sequence counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// CounterRepository issues monotonically increasing sequence numbers, used for
// work order numbers and vendor codes. Implementations must be atomic.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}
