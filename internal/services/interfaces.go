package services

import (
	"context"
	"time"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing
// dependency direction.
type (
	Pagination      = domain.Pagination
	WorkOrder       = domain.WorkOrder
	WorkOrderStatus = domain.WorkOrderStatus
	Priority        = domain.Priority
	TimelineEntry   = domain.TimelineEntry
	Attachment      = domain.Attachment
	Money           = domain.Money
	Vendor          = domain.Vendor
	VendorStatus    = domain.VendorStatus
	VendorMetrics   = domain.VendorMetrics
	VendorContact   = domain.VendorContact
	RateCard        = domain.RateCard
	VendorScore     = domain.VendorScore
)

// Maintenance domain event types.
const (
	EventWorkOrderCreated       = "maintenance.work_order.created"
	EventWorkOrderAssigned      = "maintenance.work_order.assigned"
	EventWorkOrderCompleted     = "maintenance.work_order.completed"
	EventWorkOrderStatusChanged = "maintenance.work_order.status_changed"
	EventWorkOrderEscalated     = "maintenance.work_order.escalated"
	EventSLABreached            = "maintenance.sla.breached"
)

// SLA breach types carried on EventSLABreached envelopes.
const (
	BreachTypeResponse   = "response"
	BreachTypeResolution = "resolution"
)

// MaintenanceEvent is the envelope published for every maintenance domain event.
type MaintenanceEvent struct {
	Type            string
	TenantID        domain.TenantID
	WorkOrderID     domain.WorkOrderID
	WorkOrderNumber string
	PreviousStatus  domain.WorkOrderStatus
	CurrentStatus   domain.WorkOrderStatus
	BreachType      string
	VendorID        domain.VendorID
	ActorID         domain.UserID
	CorrelationID   string
	OccurredAt      time.Time
	Metadata        map[string]any
}

// MaintenanceEventPublisher publishes maintenance domain events for downstream
// consumers (notifications, analytics). Publish failures after persistence are
// logged, never returned to the caller.
type MaintenanceEventPublisher interface {
	PublishMaintenanceEvent(ctx context.Context, event MaintenanceEvent) error
}

// OperationContext carries the caller identity shared by every write command.
type OperationContext struct {
	Tenant        domain.TenantID
	ActorID       domain.UserID
	CorrelationID string
}

// CreateWorkOrderCommand carries intake data for a new work order.
type CreateWorkOrderCommand struct {
	Op                OperationContext
	Title             string
	Description       string
	Category          string
	Location          string
	Priority          domain.Priority
	Source            domain.WorkOrderSource
	Property          domain.PropertyID
	Unit              *domain.UnitID
	Customer          *domain.UserID
	Attachments       []domain.Attachment
	EntryRequired     bool
	EntryInstructions string
	EntryPermitted    bool
}

// TriageWorkOrderCommand optionally reclassifies a submitted work order.
type TriageWorkOrderCommand struct {
	Op       OperationContext
	ID       domain.WorkOrderID
	Priority *domain.Priority
	Category string
	Notes    string
}

// AssignWorkOrderCommand routes a work order to a vendor and/or staff member.
type AssignWorkOrderCommand struct {
	Op         OperationContext
	ID         domain.WorkOrderID
	VendorID   *domain.VendorID
	AssignedTo *domain.UserID
	Notes      string
}

// ScheduleWorkOrderCommand books a visit date and time slot.
type ScheduleWorkOrderCommand struct {
	Op   OperationContext
	ID   domain.WorkOrderID
	Date time.Time
	Slot string
}

// StartWorkCommand marks work underway on site.
type StartWorkCommand struct {
	Op OperationContext
	ID domain.WorkOrderID
}

// HoldForPartsCommand moves an in-progress job to pending_parts.
type HoldForPartsCommand struct {
	Op    OperationContext
	ID    domain.WorkOrderID
	Notes string
}

// ResumeWorkCommand moves a pending_parts job back to in_progress.
type ResumeWorkCommand struct {
	Op OperationContext
	ID domain.WorkOrderID
}

// CompleteWorkOrderCommand records the vendor's completion report.
type CompleteWorkOrderCommand struct {
	Op           OperationContext
	ID           domain.WorkOrderID
	Notes        string
	ActualCost   *domain.Money
	CostApproved bool
}

// VerifyWorkOrderCommand records the customer's confirmation and rating.
type VerifyWorkOrderCommand struct {
	Op       OperationContext
	ID       domain.WorkOrderID
	Rating   int
	Feedback string
}

// CancelWorkOrderCommand cancels a non-terminal work order.
type CancelWorkOrderCommand struct {
	Op     OperationContext
	ID     domain.WorkOrderID
	Reason string
}

// EscalateWorkOrderCommand flags a work order for escalation without changing
// its lifecycle status.
type EscalateWorkOrderCommand struct {
	Op     OperationContext
	ID     domain.WorkOrderID
	Reason string
}

// PauseSLACommand freezes the deadline clock.
type PauseSLACommand struct {
	Op     OperationContext
	ID     domain.WorkOrderID
	Reason string
}

// ResumeSLACommand unfreezes the deadline clock.
type ResumeSLACommand struct {
	Op OperationContext
	ID domain.WorkOrderID
}

// SweepResult summarises one SLA breach sweep run.
type SweepResult struct {
	Scanned            int
	ResponseBreaches   int
	ResolutionBreaches int
}

// WorkOrderListFilter narrows work order list reads.
type WorkOrderListFilter = repositories.WorkOrderListFilter

// MaintenanceService is the public operation surface of the work order
// lifecycle engine. Every write validates before any mutation; on failure no
// repository write and no event publish occurs.
type MaintenanceService interface {
	CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (WorkOrder, error)
	TriageWorkOrder(ctx context.Context, cmd TriageWorkOrderCommand) (WorkOrder, error)
	AssignWorkOrder(ctx context.Context, cmd AssignWorkOrderCommand) (WorkOrder, error)
	AutoAssignWorkOrder(ctx context.Context, op OperationContext, id domain.WorkOrderID) (WorkOrder, error)
	ScheduleWorkOrder(ctx context.Context, cmd ScheduleWorkOrderCommand) (WorkOrder, error)
	StartWork(ctx context.Context, cmd StartWorkCommand) (WorkOrder, error)
	HoldForParts(ctx context.Context, cmd HoldForPartsCommand) (WorkOrder, error)
	ResumeWork(ctx context.Context, cmd ResumeWorkCommand) (WorkOrder, error)
	CompleteWorkOrder(ctx context.Context, cmd CompleteWorkOrderCommand) (WorkOrder, error)
	VerifyWorkOrder(ctx context.Context, cmd VerifyWorkOrderCommand) (WorkOrder, error)
	CancelWorkOrder(ctx context.Context, cmd CancelWorkOrderCommand) (WorkOrder, error)
	EscalateWorkOrder(ctx context.Context, cmd EscalateWorkOrderCommand) (WorkOrder, error)
	PauseSLA(ctx context.Context, cmd PauseSLACommand) (WorkOrder, error)
	ResumeSLA(ctx context.Context, cmd ResumeSLACommand) (WorkOrder, error)
	CheckSLABreaches(ctx context.Context, tenant domain.TenantID) (SweepResult, error)

	GetWorkOrder(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) (WorkOrder, error)
	GetWorkOrderByNumber(ctx context.Context, tenant domain.TenantID, number string) (WorkOrder, error)
	ListWorkOrders(ctx context.Context, tenant domain.TenantID, filter WorkOrderListFilter) (domain.CursorPage[WorkOrder], error)
	ListScheduledForDate(ctx context.Context, tenant domain.TenantID, day time.Time) ([]WorkOrder, error)
	CountByStatus(ctx context.Context, tenant domain.TenantID) (map[WorkOrderStatus]int, error)
}

// CreateVendorCommand carries intake data for a new vendor record.
type CreateVendorCommand struct {
	Op                 OperationContext
	Name               string
	Specializations    []string
	ServiceAreas       []string
	EmergencyAvailable bool
	Preferred          bool
	Contacts           []domain.VendorContact
	RateCards          []domain.RateCard
	LicenseNumber      string
	InsurancePolicy    string
	InsuranceExpiry    string
	Notes              string
}

// UpdateVendorCommand mutates vendor capability and contact data.
type UpdateVendorCommand struct {
	Op                 OperationContext
	ID                 domain.VendorID
	Name               *string
	Status             *domain.VendorStatus
	Specializations    []string
	ServiceAreas       []string
	EmergencyAvailable *bool
	Preferred          *bool
	Contacts           []domain.VendorContact
	RateCards          []domain.RateCard
	Notes              *string
}

// VendorCompletionRecord carries the performance inputs from one completed job.
type VendorCompletionRecord struct {
	Op                OperationContext
	VendorID          domain.VendorID
	ResponseMinutes   float64
	ResolutionMinutes float64
	WithinSLA         bool
}

// VendorListFilter narrows vendor list reads.
type VendorListFilter = repositories.VendorListFilter

// VendorService owns vendor records and their accumulated performance metrics.
type VendorService interface {
	CreateVendor(ctx context.Context, cmd CreateVendorCommand) (Vendor, error)
	UpdateVendor(ctx context.Context, cmd UpdateVendorCommand) (Vendor, error)
	GetVendor(ctx context.Context, tenant domain.TenantID, id domain.VendorID) (Vendor, error)
	GetVendorByCode(ctx context.Context, tenant domain.TenantID, code string) (Vendor, error)
	ListVendors(ctx context.Context, tenant domain.TenantID, filter VendorListFilter) (domain.CursorPage[Vendor], error)
	// RecordCompletion is invoked once per work order completion for the
	// assigned vendor. RecordRating folds the customer rating in at
	// verification time using the incremental-mean formula. RecordReopen is
	// invoked by reopen flows owned elsewhere.
	RecordCompletion(ctx context.Context, rec VendorCompletionRecord) (Vendor, error)
	RecordRating(ctx context.Context, op OperationContext, id domain.VendorID, rating int) (Vendor, error)
	RecordReopen(ctx context.Context, op OperationContext, id domain.VendorID) (Vendor, error)
}
