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
	workOrderIDPrefix = "wo_"

	workOrderCounterPrefix = "workorders"
)

// Timeline action labels; the timeline is the audit trail, so labels stay stable.
const (
	actionCreated      = "Work order created"
	actionTriaged      = "Triage completed"
	actionAssigned     = "Assigned"
	actionScheduled    = "Visit scheduled"
	actionWorkStarted  = "Work started"
	actionPendingParts = "Waiting on parts"
	actionWorkResumed  = "Work resumed"
	actionCompleted    = "Work completed"
	actionVerified     = "Completion verified"
	actionCancelled    = "Cancelled"
	actionEscalated    = "Escalated"
	actionSLAPaused    = "SLA clock paused"
	actionSLAResumed   = "SLA clock resumed"
	actionSLABreached  = "SLA deadline breached"
)

// MaintenanceServiceDeps bundles collaborators required to construct the service.
type MaintenanceServiceDeps struct {
	WorkOrders repositories.WorkOrderRepository
	Vendors    repositories.VendorRepository
	Counters   repositories.CounterRepository
	VendorPerf VendorService
	UnitOfWork repositories.UnitOfWork
	SLA        domain.SLAConfig
	// CostApprovalThreshold gates Complete when the reported cost (in minor
	// units) exceeds it; zero disables the gate.
	CostApprovalThreshold int64
	Clock                 func() time.Time
	IDGenerator           func() string
	Sanitize              func(string) string
	Events                MaintenanceEventPublisher
	Logger                func(ctx context.Context, event string, fields map[string]any)
}

type maintenanceService struct {
	workOrders repositories.WorkOrderRepository
	vendors    repositories.VendorRepository
	counters   repositories.CounterRepository
	vendorPerf VendorService
	unitOfWork repositories.UnitOfWork
	sla        domain.SLAConfig
	costGate   int64
	clock      func() time.Time
	newID      func() string
	sanitize   func(string) string
	events     MaintenanceEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewMaintenanceService wires dependencies into a concrete MaintenanceService.
func NewMaintenanceService(deps MaintenanceServiceDeps) (MaintenanceService, error) {
	if deps.WorkOrders == nil {
		return nil, errors.New("maintenance service: work order repository is required")
	}
	if deps.Vendors == nil {
		return nil, errors.New("maintenance service: vendor repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("maintenance service: counter repository is required")
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

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	sla := deps.SLA
	if (sla == domain.SLAConfig{}) {
		sla = domain.DefaultSLAConfig()
	}

	return &maintenanceService{
		workOrders: deps.WorkOrders,
		vendors:    deps.Vendors,
		counters:   deps.Counters,
		vendorPerf: deps.VendorPerf,
		unitOfWork: unit,
		sla:        sla,
		costGate:   deps.CostApprovalThreshold,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		sanitize: sanitize,
		events:   deps.Events,
		logger:   logger,
	}, nil
}

func (s *maintenanceService) CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (WorkOrder, error) {
	tenant, err := requireTenant(cmd.Op)
	if err != nil {
		return WorkOrder{}, err
	}

	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return WorkOrder{}, fmt.Errorf("%w: title is required", ErrInvalidWorkOrderData)
	}
	if strings.TrimSpace(string(cmd.Property)) == "" {
		return WorkOrder{}, fmt.Errorf("%w: property id is required", ErrInvalidWorkOrderData)
	}
	category := strings.TrimSpace(cmd.Category)
	if category == "" {
		return WorkOrder{}, fmt.Errorf("%w: category is required", ErrInvalidWorkOrderData)
	}

	priority := cmd.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return WorkOrder{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidWorkOrderData, cmd.Priority)
	}

	source := cmd.Source
	if source == "" {
		source = domain.SourceStaffCreated
	}

	now := s.now()

	order := WorkOrder{
		ID:          domain.WorkOrderID(workOrderIDPrefix + s.newID()),
		TenantID:    tenant,
		Priority:    priority,
		Category:    category,
		Source:      source,
		Status:      domain.WorkOrderStatusSubmitted,
		Title:       title,
		Description: s.sanitize(cmd.Description),
		Location:    strings.TrimSpace(cmd.Location),
		Attachments: cloneAttachments(cmd.Attachments),
		PropertyRef: domain.WorkOrderPropertyRef{
			Property: cmd.Property,
			Unit:     cloneIDPtr(cmd.Unit),
			Customer: cloneIDPtr(cmd.Customer),
		},
		EntryRequired:     cmd.EntryRequired,
		EntryInstructions: s.sanitize(cmd.EntryInstructions),
		EntryPermitted:    cmd.EntryPermitted,
		SLA:               domain.NewSLARecord(now, s.sla.Window(priority)),
		Audit: domain.Audit{
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: cmd.Op.ActorID,
			UpdatedBy: cmd.Op.ActorID,
		},
	}

	number, err := s.nextWorkOrderNumber(ctx, tenant, now)
	if err != nil {
		return WorkOrder{}, err
	}
	order.Number = number

	order.AppendTimeline(actionCreated, cmd.Op.ActorID, now, "")

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.workOrders.Create(txCtx, tenant, order); err != nil {
			return s.mapWorkOrderRepoError(err)
		}
		return nil
	})
	if err != nil {
		return WorkOrder{}, err
	}

	s.publish(ctx, MaintenanceEvent{
		Type:            EventWorkOrderCreated,
		TenantID:        tenant,
		WorkOrderID:     order.ID,
		WorkOrderNumber: order.Number,
		CurrentStatus:   order.Status,
		ActorID:         cmd.Op.ActorID,
		CorrelationID:   cmd.Op.CorrelationID,
		OccurredAt:      now,
		Metadata: map[string]any{
			"priority": string(order.Priority),
			"category": order.Category,
		},
	})

	return order, nil
}

func (s *maintenanceService) TriageWorkOrder(ctx context.Context, cmd TriageWorkOrderCommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		if cmd.Priority != nil {
			if !domain.ValidPriority(*cmd.Priority) {
				return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidWorkOrderData, *cmd.Priority)
			}
		}
		prev := order.Status
		if err := order.Transition(domain.WorkOrderStatusTriaged, actionTriaged, cmd.Op.ActorID, now, strings.TrimSpace(cmd.Notes)); err != nil {
			return nil, err
		}
		if cmd.Priority != nil && *cmd.Priority != order.Priority {
			order.Priority = *cmd.Priority
			order.SLA.Rebase(s.sla.Window(order.Priority))
		}
		if category := strings.TrimSpace(cmd.Category); category != "" {
			order.Category = category
		}
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) AssignWorkOrder(ctx context.Context, cmd AssignWorkOrderCommand) (WorkOrder, error) {
	tenant, err := requireTenant(cmd.Op)
	if err != nil {
		return WorkOrder{}, err
	}
	if cmd.VendorID == nil && cmd.AssignedTo == nil {
		return WorkOrder{}, fmt.Errorf("%w: a vendor or an assignee is required", ErrInvalidWorkOrderData)
	}

	var vendor Vendor
	if cmd.VendorID != nil {
		vendor, err = s.vendors.FindByID(ctx, tenant, *cmd.VendorID)
		if err != nil {
			return WorkOrder{}, s.mapVendorRepoError(err)
		}
		if !vendor.Available() {
			return WorkOrder{}, fmt.Errorf("%w: vendor %s is %s", ErrVendorNotAvailable, vendor.Code, vendor.Status)
		}
	}

	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		prev := order.Status
		notes := strings.TrimSpace(cmd.Notes)
		if cmd.VendorID != nil && notes == "" {
			notes = "Assigned to vendor " + vendor.Code
		}
		if err := order.Transition(domain.WorkOrderStatusAssigned, actionAssigned, cmd.Op.ActorID, now, notes); err != nil {
			return nil, err
		}
		if cmd.VendorID != nil {
			id := *cmd.VendorID
			order.VendorID = &id
		}
		if cmd.AssignedTo != nil {
			id := *cmd.AssignedTo
			order.AssignedTo = &id
		}

		event := s.statusChangedEvent(order, prev, cmd.Op, now)
		event.Type = EventWorkOrderAssigned
		if order.VendorID != nil {
			event.VendorID = *order.VendorID
		}
		return event, nil
	})
}

func (s *maintenanceService) AutoAssignWorkOrder(ctx context.Context, op OperationContext, id domain.WorkOrderID) (WorkOrder, error) {
	tenant, err := requireTenant(op)
	if err != nil {
		return WorkOrder{}, err
	}

	order, err := s.workOrders.FindByID(ctx, tenant, id)
	if err != nil {
		return WorkOrder{}, s.mapWorkOrderRepoError(err)
	}

	candidates, err := s.vendors.ListAvailable(ctx, tenant, repositories.VendorAvailabilityQuery{
		Specialization:    order.Category,
		EmergencyRequired: order.Priority == domain.PriorityEmergency,
	})
	if err != nil {
		return WorkOrder{}, err
	}
	if len(candidates) == 0 {
		return WorkOrder{}, fmt.Errorf("%w: no active vendor for category %q", ErrNoAvailableVendor, order.Category)
	}

	ranked := domain.RankVendors(order.Priority, candidates)
	best := ranked[0]

	return s.AssignWorkOrder(ctx, AssignWorkOrderCommand{
		Op:       op,
		ID:       id,
		VendorID: &best.VendorID,
		Notes:    fmt.Sprintf("Auto-assigned vendor %s (score %.1f)", best.Code, best.Score),
	})
}

func (s *maintenanceService) ScheduleWorkOrder(ctx context.Context, cmd ScheduleWorkOrderCommand) (WorkOrder, error) {
	if cmd.Date.IsZero() {
		return WorkOrder{}, fmt.Errorf("%w: scheduled date is required", ErrInvalidWorkOrderData)
	}
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		prev := order.Status
		notes := cmd.Date.UTC().Format("2006-01-02")
		if slot := strings.TrimSpace(cmd.Slot); slot != "" {
			notes += " " + slot
		}
		if err := order.Transition(domain.WorkOrderStatusScheduled, actionScheduled, cmd.Op.ActorID, now, notes); err != nil {
			return nil, err
		}
		date := cmd.Date.UTC()
		order.ScheduledDate = &date
		order.ScheduledSlot = strings.TrimSpace(cmd.Slot)
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) StartWork(ctx context.Context, cmd StartWorkCommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		prev := order.Status
		if err := order.Transition(domain.WorkOrderStatusInProgress, actionWorkStarted, cmd.Op.ActorID, now, ""); err != nil {
			return nil, err
		}
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) HoldForParts(ctx context.Context, cmd HoldForPartsCommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		if order.Status != domain.WorkOrderStatusInProgress {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, domain.WorkOrderStatusPendingParts)
		}
		prev := order.Status
		if err := order.Transition(domain.WorkOrderStatusPendingParts, actionPendingParts, cmd.Op.ActorID, now, strings.TrimSpace(cmd.Notes)); err != nil {
			return nil, err
		}
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) ResumeWork(ctx context.Context, cmd ResumeWorkCommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		if order.Status != domain.WorkOrderStatusPendingParts {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, domain.WorkOrderStatusInProgress)
		}
		prev := order.Status
		if err := order.Transition(domain.WorkOrderStatusInProgress, actionWorkResumed, cmd.Op.ActorID, now, ""); err != nil {
			return nil, err
		}
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) CompleteWorkOrder(ctx context.Context, cmd CompleteWorkOrderCommand) (WorkOrder, error) {
	tenant, err := requireTenant(cmd.Op)
	if err != nil {
		return WorkOrder{}, err
	}

	order, err := s.workOrders.FindByID(ctx, tenant, cmd.ID)
	if err != nil {
		return WorkOrder{}, s.mapWorkOrderRepoError(err)
	}

	if !domain.CanTransition(order.Status, domain.WorkOrderStatusCompleted) {
		return WorkOrder{}, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, domain.WorkOrderStatusCompleted)
	}
	if s.costGate > 0 && cmd.ActualCost != nil && cmd.ActualCost.Amount > s.costGate && !cmd.CostApproved {
		return WorkOrder{}, fmt.Errorf("%w: cost %d exceeds threshold %d", ErrCostApprovalRequired, cmd.ActualCost.Amount, s.costGate)
	}

	now := s.now()
	prev := order.Status

	if err := order.Transition(domain.WorkOrderStatusCompleted, actionCompleted, cmd.Op.ActorID, now, strings.TrimSpace(cmd.Notes)); err != nil {
		return WorkOrder{}, err
	}
	order.CompletionNotes = s.sanitize(cmd.Notes)
	if cmd.ActualCost != nil {
		cost := *cmd.ActualCost
		order.ActualCost = &cost
	}
	order.SLA.MarkResolved(now)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.workOrders.Update(txCtx, tenant, order); err != nil {
			return s.mapWorkOrderRepoError(err)
		}
		return nil
	})
	if err != nil {
		return WorkOrder{}, err
	}

	// The vendor metrics write is a second, independent aggregate; it is
	// persisted after the work order, not inside the same transaction.
	if order.VendorID != nil && s.vendorPerf != nil {
		rec := VendorCompletionRecord{
			Op:                cmd.Op,
			VendorID:          *order.VendorID,
			ResponseMinutes:   responseMinutes(order),
			ResolutionMinutes: resolutionMinutes(order, now),
			WithinSLA:         !order.SLA.ResolutionBreached,
		}
		if _, err := s.vendorPerf.RecordCompletion(ctx, rec); err != nil {
			s.logger(ctx, "maintenance.vendor_metrics.update_failed", map[string]any{
				"workOrder": string(order.ID),
				"vendor":    string(*order.VendorID),
				"error":     err.Error(),
			})
		}
	}

	event := s.statusChangedEvent(&order, prev, cmd.Op, now)
	event.Type = EventWorkOrderCompleted
	if order.VendorID != nil {
		event.VendorID = *order.VendorID
	}
	s.publish(ctx, *event)

	return order, nil
}

func (s *maintenanceService) VerifyWorkOrder(ctx context.Context, cmd VerifyWorkOrderCommand) (WorkOrder, error) {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return WorkOrder{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidWorkOrderData)
	}

	order, err := s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		prev := order.Status
		if err := order.Transition(domain.WorkOrderStatusVerified, actionVerified, cmd.Op.ActorID, now, ""); err != nil {
			return nil, err
		}
		rating := cmd.Rating
		order.Rating = &rating
		order.Feedback = s.sanitize(cmd.Feedback)
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
	if err != nil {
		return WorkOrder{}, err
	}

	if order.VendorID != nil && s.vendorPerf != nil {
		if _, err := s.vendorPerf.RecordRating(ctx, cmd.Op, *order.VendorID, cmd.Rating); err != nil {
			s.logger(ctx, "maintenance.vendor_rating.update_failed", map[string]any{
				"workOrder": string(order.ID),
				"vendor":    string(*order.VendorID),
				"error":     err.Error(),
			})
		}
	}

	return order, nil
}

func (s *maintenanceService) CancelWorkOrder(ctx context.Context, cmd CancelWorkOrderCommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		prev := order.Status
		reason := strings.TrimSpace(cmd.Reason)
		if err := order.Transition(domain.WorkOrderStatusCancelled, actionCancelled, cmd.Op.ActorID, now, reason); err != nil {
			return nil, err
		}
		order.CompletionNotes = s.sanitize(reason)
		return s.statusChangedEvent(order, prev, cmd.Op, now), nil
	})
}

func (s *maintenanceService) EscalateWorkOrder(ctx context.Context, cmd EscalateWorkOrderCommand) (WorkOrder, error) {
	// Escalation is an overlay: it flags the work order and notifies, but the
	// lifecycle status stays put.
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		order.Escalated = true
		order.AppendTimeline(actionEscalated, cmd.Op.ActorID, now, strings.TrimSpace(cmd.Reason))
		event := s.statusChangedEvent(order, order.Status, cmd.Op, now)
		event.Type = EventWorkOrderEscalated
		event.Metadata = map[string]any{"reason": strings.TrimSpace(cmd.Reason)}
		return event, nil
	})
}

func (s *maintenanceService) PauseSLA(ctx context.Context, cmd PauseSLACommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		if err := order.SLA.Pause(now); err != nil {
			return nil, err
		}
		order.AppendTimeline(actionSLAPaused, cmd.Op.ActorID, now, strings.TrimSpace(cmd.Reason))
		return nil, nil
	})
}

func (s *maintenanceService) ResumeSLA(ctx context.Context, cmd ResumeSLACommand) (WorkOrder, error) {
	return s.mutate(ctx, cmd.Op, cmd.ID, func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error) {
		elapsed, err := order.SLA.Resume(now)
		if err != nil {
			return nil, err
		}
		order.AppendTimeline(actionSLAResumed, cmd.Op.ActorID, now, fmt.Sprintf("paused for %s", elapsed.Round(time.Second)))
		return nil, nil
	})
}

// CheckSLABreaches scans every open work order in the tenant and flips newly
// crossed breach flags, emitting one SLABreached event per flip. Re-running
// the sweep on an already breached entity writes and emits nothing.
func (s *maintenanceService) CheckSLABreaches(ctx context.Context, tenant domain.TenantID) (SweepResult, error) {
	if strings.TrimSpace(string(tenant)) == "" {
		return SweepResult{}, fmt.Errorf("%w: tenant id is required", ErrInvalidWorkOrderData)
	}

	open, err := s.workOrders.ListOpen(ctx, tenant)
	if err != nil {
		return SweepResult{}, err
	}

	now := s.now()
	result := SweepResult{Scanned: len(open)}

	for _, order := range open {
		var breaches []string
		if !order.SLA.ResponseBreached && order.SLA.ResponseOverdue(now) {
			order.SLA.ResponseBreached = true
			breaches = append(breaches, BreachTypeResponse)
		}
		if !order.SLA.ResolutionBreached && order.SLA.ResolutionOverdue(now) {
			order.SLA.ResolutionBreached = true
			breaches = append(breaches, BreachTypeResolution)
		}
		if len(breaches) == 0 {
			continue
		}

		for _, breach := range breaches {
			order.AppendTimeline(actionSLABreached, "", now, breach)
		}
		if err := s.workOrders.Update(ctx, tenant, order); err != nil {
			return result, s.mapWorkOrderRepoError(err)
		}

		for _, breach := range breaches {
			if breach == BreachTypeResponse {
				result.ResponseBreaches++
			} else {
				result.ResolutionBreaches++
			}
			s.publish(ctx, MaintenanceEvent{
				Type:            EventSLABreached,
				TenantID:        tenant,
				WorkOrderID:     order.ID,
				WorkOrderNumber: order.Number,
				CurrentStatus:   order.Status,
				BreachType:      breach,
				OccurredAt:      now,
				Metadata: map[string]any{
					"priority": string(order.Priority),
				},
			})
		}
	}

	return result, nil
}

func (s *maintenanceService) GetWorkOrder(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) (WorkOrder, error) {
	order, err := s.workOrders.FindByID(ctx, tenant, id)
	if err != nil {
		return WorkOrder{}, s.mapWorkOrderRepoError(err)
	}
	return order, nil
}

func (s *maintenanceService) GetWorkOrderByNumber(ctx context.Context, tenant domain.TenantID, number string) (WorkOrder, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return WorkOrder{}, fmt.Errorf("%w: work order number is required", ErrInvalidWorkOrderData)
	}
	order, err := s.workOrders.FindByNumber(ctx, tenant, number)
	if err != nil {
		return WorkOrder{}, s.mapWorkOrderRepoError(err)
	}
	return order, nil
}

func (s *maintenanceService) ListWorkOrders(ctx context.Context, tenant domain.TenantID, filter WorkOrderListFilter) (domain.CursorPage[WorkOrder], error) {
	page, err := s.workOrders.List(ctx, tenant, filter)
	if err != nil {
		return domain.CursorPage[WorkOrder]{}, s.mapWorkOrderRepoError(err)
	}
	return page, nil
}

func (s *maintenanceService) ListScheduledForDate(ctx context.Context, tenant domain.TenantID, day time.Time) ([]WorkOrder, error) {
	orders, err := s.workOrders.ListScheduledForDate(ctx, tenant, day)
	if err != nil {
		return nil, s.mapWorkOrderRepoError(err)
	}
	return orders, nil
}

func (s *maintenanceService) CountByStatus(ctx context.Context, tenant domain.TenantID) (map[WorkOrderStatus]int, error) {
	counts, err := s.workOrders.CountByStatus(ctx, tenant)
	if err != nil {
		return nil, s.mapWorkOrderRepoError(err)
	}
	return counts, nil
}

// mutate is the shared load → validate/transition → persist → publish pipeline
// used by every single-entity write. The apply callback mutates the loaded
// aggregate and returns the event to publish (nil for silent writes); when it
// fails, nothing is persisted and nothing is published.
func (s *maintenanceService) mutate(
	ctx context.Context,
	op OperationContext,
	id domain.WorkOrderID,
	apply func(order *WorkOrder, now time.Time) (*MaintenanceEvent, error),
) (WorkOrder, error) {
	tenant, err := requireTenant(op)
	if err != nil {
		return WorkOrder{}, err
	}

	order, err := s.workOrders.FindByID(ctx, tenant, id)
	if err != nil {
		return WorkOrder{}, s.mapWorkOrderRepoError(err)
	}

	now := s.now()
	event, err := apply(&order, now)
	if err != nil {
		return WorkOrder{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.workOrders.Update(txCtx, tenant, order); err != nil {
			return s.mapWorkOrderRepoError(err)
		}
		return nil
	})
	if err != nil {
		return WorkOrder{}, err
	}

	if event != nil {
		s.publish(ctx, *event)
	}

	return order, nil
}

func (s *maintenanceService) statusChangedEvent(order *WorkOrder, previous domain.WorkOrderStatus, op OperationContext, now time.Time) *MaintenanceEvent {
	return &MaintenanceEvent{
		Type:            EventWorkOrderStatusChanged,
		TenantID:        order.TenantID,
		WorkOrderID:     order.ID,
		WorkOrderNumber: order.Number,
		PreviousStatus:  previous,
		CurrentStatus:   order.Status,
		ActorID:         op.ActorID,
		CorrelationID:   op.CorrelationID,
		OccurredAt:      now,
	}
}

func (s *maintenanceService) mapWorkOrderRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrWorkOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrWorkOrderNumberExists, err)
		}
	}
	return err
}

func (s *maintenanceService) mapVendorRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrVendorNotFound, err)
	}
	return err
}

func (s *maintenanceService) nextWorkOrderNumber(ctx context.Context, tenant domain.TenantID, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s:%s", workOrderCounterPrefix, tenant), 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("WO-%04d-%06d", now.Year(), seq), nil
}

func (s *maintenanceService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *maintenanceService) now() time.Time {
	return s.clock()
}

func (s *maintenanceService) publish(ctx context.Context, event MaintenanceEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMaintenanceEvent(ctx, event); err != nil {
		s.logger(ctx, "maintenance.event.publish_failed", map[string]any{
			"type":      event.Type,
			"workOrder": string(event.WorkOrderID),
			"error":     err.Error(),
		})
	}
}

// responseMinutes measures submission to first assignment from the timeline;
// zero when the order skipped straight to work.
func responseMinutes(order WorkOrder) float64 {
	for _, entry := range order.Timeline {
		if entry.Action == actionAssigned {
			return entry.At.Sub(order.SLA.SubmittedAt).Minutes()
		}
	}
	return 0
}

// resolutionMinutes measures submission to completion net of paused time.
func resolutionMinutes(order WorkOrder, now time.Time) float64 {
	resolved := now
	if order.SLA.ResolvedAt != nil {
		resolved = *order.SLA.ResolvedAt
	}
	elapsed := resolved.Sub(order.SLA.SubmittedAt) - order.SLA.PausedTotal
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed.Minutes()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func cloneAttachments(attachments []Attachment) []Attachment {
	if len(attachments) == 0 {
		return nil
	}
	cloned := make([]Attachment, len(attachments))
	copy(cloned, attachments)
	return cloned
}

func cloneIDPtr[T ~string](id *T) *T {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}

func requireTenant(op OperationContext) (domain.TenantID, error) {
	if strings.TrimSpace(string(op.Tenant)) == "" {
		return "", fmt.Errorf("%w: tenant id is required", ErrInvalidWorkOrderData)
	}
	return op.Tenant, nil
}
