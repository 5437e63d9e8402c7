package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/repositories"
)

type stubWorkOrderRepo struct {
	createFn        func(context.Context, domain.TenantID, domain.WorkOrder) error
	updateFn        func(context.Context, domain.TenantID, domain.WorkOrder) error
	findFn          func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error)
	findByNumberFn  func(context.Context, domain.TenantID, string) (domain.WorkOrder, error)
	listFn          func(context.Context, domain.TenantID, repositories.WorkOrderListFilter) (domain.CursorPage[domain.WorkOrder], error)
	listOpenFn      func(context.Context, domain.TenantID) ([]domain.WorkOrder, error)
	listScheduledFn func(context.Context, domain.TenantID, time.Time) ([]domain.WorkOrder, error)
	countFn         func(context.Context, domain.TenantID) (map[domain.WorkOrderStatus]int, error)
}

func (s *stubWorkOrderRepo) Create(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error {
	if s.createFn != nil {
		return s.createFn(ctx, tenant, order)
	}
	return nil
}

func (s *stubWorkOrderRepo) Update(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, tenant, order)
	}
	return nil
}

func (s *stubWorkOrderRepo) Delete(context.Context, domain.TenantID, domain.WorkOrderID) error {
	return nil
}

func (s *stubWorkOrderRepo) FindByID(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) (domain.WorkOrder, error) {
	if s.findFn != nil {
		return s.findFn(ctx, tenant, id)
	}
	return domain.WorkOrder{}, errors.New("not implemented")
}

func (s *stubWorkOrderRepo) FindByNumber(ctx context.Context, tenant domain.TenantID, number string) (domain.WorkOrder, error) {
	if s.findByNumberFn != nil {
		return s.findByNumberFn(ctx, tenant, number)
	}
	return domain.WorkOrder{}, errors.New("not implemented")
}

func (s *stubWorkOrderRepo) List(ctx context.Context, tenant domain.TenantID, filter repositories.WorkOrderListFilter) (domain.CursorPage[domain.WorkOrder], error) {
	if s.listFn != nil {
		return s.listFn(ctx, tenant, filter)
	}
	return domain.CursorPage[domain.WorkOrder]{}, nil
}

func (s *stubWorkOrderRepo) ListOpen(ctx context.Context, tenant domain.TenantID) ([]domain.WorkOrder, error) {
	if s.listOpenFn != nil {
		return s.listOpenFn(ctx, tenant)
	}
	return nil, nil
}

func (s *stubWorkOrderRepo) ListSLABreached(context.Context, domain.TenantID) ([]domain.WorkOrder, error) {
	return nil, nil
}

func (s *stubWorkOrderRepo) ListScheduledForDate(ctx context.Context, tenant domain.TenantID, day time.Time) ([]domain.WorkOrder, error) {
	if s.listScheduledFn != nil {
		return s.listScheduledFn(ctx, tenant, day)
	}
	return nil, nil
}

func (s *stubWorkOrderRepo) CountByStatus(ctx context.Context, tenant domain.TenantID) (map[domain.WorkOrderStatus]int, error) {
	if s.countFn != nil {
		return s.countFn(ctx, tenant)
	}
	return nil, nil
}

type stubVendorRepo struct {
	createFn        func(context.Context, domain.TenantID, domain.Vendor) error
	updateFn        func(context.Context, domain.TenantID, domain.Vendor) error
	findFn          func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error)
	findByCodeFn    func(context.Context, domain.TenantID, string) (domain.Vendor, error)
	listFn          func(context.Context, domain.TenantID, repositories.VendorListFilter) (domain.CursorPage[domain.Vendor], error)
	listAvailableFn func(context.Context, domain.TenantID, repositories.VendorAvailabilityQuery) ([]domain.Vendor, error)
}

func (s *stubVendorRepo) Create(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error {
	if s.createFn != nil {
		return s.createFn(ctx, tenant, vendor)
	}
	return nil
}

func (s *stubVendorRepo) Update(ctx context.Context, tenant domain.TenantID, vendor domain.Vendor) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, tenant, vendor)
	}
	return nil
}

func (s *stubVendorRepo) Delete(context.Context, domain.TenantID, domain.VendorID) error {
	return nil
}

func (s *stubVendorRepo) FindByID(ctx context.Context, tenant domain.TenantID, id domain.VendorID) (domain.Vendor, error) {
	if s.findFn != nil {
		return s.findFn(ctx, tenant, id)
	}
	return domain.Vendor{}, errors.New("not implemented")
}

func (s *stubVendorRepo) FindByCode(ctx context.Context, tenant domain.TenantID, code string) (domain.Vendor, error) {
	if s.findByCodeFn != nil {
		return s.findByCodeFn(ctx, tenant, code)
	}
	return domain.Vendor{}, errors.New("not implemented")
}

func (s *stubVendorRepo) List(ctx context.Context, tenant domain.TenantID, filter repositories.VendorListFilter) (domain.CursorPage[domain.Vendor], error) {
	if s.listFn != nil {
		return s.listFn(ctx, tenant, filter)
	}
	return domain.CursorPage[domain.Vendor]{}, nil
}

func (s *stubVendorRepo) ListAvailable(ctx context.Context, tenant domain.TenantID, query repositories.VendorAvailabilityQuery) ([]domain.Vendor, error) {
	if s.listAvailableFn != nil {
		return s.listAvailableFn(ctx, tenant, query)
	}
	return nil, nil
}

func (s *stubVendorRepo) ListPreferred(context.Context, domain.TenantID) ([]domain.Vendor, error) {
	return nil, nil
}

type stubCounterRepo struct {
	nextFn func(context.Context, string, int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

func (s *stubCounterRepo) Configure(context.Context, string, repositories.CounterConfig) error {
	return nil
}

type captureMaintenanceEvents struct {
	events []MaintenanceEvent
}

func (c *captureMaintenanceEvents) PublishMaintenanceEvent(_ context.Context, event MaintenanceEvent) error {
	c.events = append(c.events, event)
	return nil
}

type notFoundRepoError struct{}

func (notFoundRepoError) Error() string       { return "document missing" }
func (notFoundRepoError) IsNotFound() bool    { return true }
func (notFoundRepoError) IsConflict() bool    { return false }
func (notFoundRepoError) IsUnavailable() bool { return false }

var testOp = OperationContext{Tenant: "acme", ActorID: "usr_mgr", CorrelationID: "corr-1"}

func newTestMaintenanceService(t *testing.T, deps MaintenanceServiceDeps) MaintenanceService {
	t.Helper()
	if deps.WorkOrders == nil {
		deps.WorkOrders = &stubWorkOrderRepo{}
	}
	if deps.Vendors == nil {
		deps.Vendors = &stubVendorRepo{}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	}
	svc, err := NewMaintenanceService(deps)
	if err != nil {
		t.Fatalf("NewMaintenanceService returned error: %v", err)
	}
	return svc
}

func TestCreateWorkOrderAssignsNumberAndSLA(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var created domain.WorkOrder
	repo := &stubWorkOrderRepo{
		createFn: func(_ context.Context, tenant domain.TenantID, order domain.WorkOrder) error {
			if tenant != "acme" {
				t.Errorf("expected tenant acme, got %s", tenant)
			}
			created = order
			return nil
		},
	}
	counters := &stubCounterRepo{
		nextFn: func(_ context.Context, counterID string, _ int64) (int64, error) {
			if counterID != "workorders:acme" {
				t.Errorf("unexpected counter id %s", counterID)
			}
			return 42, nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Counters:   counters,
		Events:     publisher,
		Clock:      func() time.Time { return now },
	})

	order, err := svc.CreateWorkOrder(context.Background(), CreateWorkOrderCommand{
		Op:       testOp,
		Title:    "Leaking faucet",
		Category: "plumbing",
		Priority: domain.PriorityHigh,
		Property: "prop_1",
	})
	if err != nil {
		t.Fatalf("CreateWorkOrder returned error: %v", err)
	}

	if order.Number != "WO-2026-000042" {
		t.Errorf("unexpected work order number %s", order.Number)
	}
	if order.Status != domain.WorkOrderStatusSubmitted {
		t.Errorf("expected submitted status, got %s", order.Status)
	}
	if !order.SLA.ResponseDueAt.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("expected high-priority response window, got %s", order.SLA.ResponseDueAt)
	}
	if !order.SLA.ResolutionDueAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expected high-priority resolution window, got %s", order.SLA.ResolutionDueAt)
	}
	if len(order.Timeline) != 1 {
		t.Errorf("expected one timeline entry, got %d", len(order.Timeline))
	}
	if created.ID != order.ID {
		t.Errorf("expected persisted order to match returned one")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != EventWorkOrderCreated {
		t.Fatalf("expected one created event, got %+v", publisher.events)
	}
}

func TestCreateWorkOrderValidation(t *testing.T) {
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{})

	cases := []struct {
		name string
		cmd  CreateWorkOrderCommand
	}{
		{"missing title", CreateWorkOrderCommand{Op: testOp, Category: "plumbing", Property: "prop_1"}},
		{"missing property", CreateWorkOrderCommand{Op: testOp, Title: "t", Category: "plumbing"}},
		{"missing category", CreateWorkOrderCommand{Op: testOp, Title: "t", Property: "prop_1"}},
		{"unknown priority", CreateWorkOrderCommand{Op: testOp, Title: "t", Category: "plumbing", Property: "prop_1", Priority: "urgent"}},
		{"missing tenant", CreateWorkOrderCommand{Title: "t", Category: "plumbing", Property: "prop_1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateWorkOrder(context.Background(), tc.cmd)
			if !errors.Is(err, ErrInvalidWorkOrderData) {
				t.Fatalf("expected ErrInvalidWorkOrderData, got %v", err)
			}
		})
	}
}

func TestCreateWorkOrderDefaultsPriorityToMedium(t *testing.T) {
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{})

	order, err := svc.CreateWorkOrder(context.Background(), CreateWorkOrderCommand{
		Op:       testOp,
		Title:    "Scuffed wall",
		Category: "painting",
		Property: "prop_1",
	})
	if err != nil {
		t.Fatalf("CreateWorkOrder returned error: %v", err)
	}
	if order.Priority != domain.PriorityMedium {
		t.Errorf("expected medium default, got %s", order.Priority)
	}
}

func TestTriageReclassifiesAndRebasesSLA(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	submitted := now.Add(-time.Hour)
	existing := domain.WorkOrder{
		ID:       "wo_1",
		TenantID: "acme",
		Number:   "WO-2026-000001",
		Status:   domain.WorkOrderStatusSubmitted,
		Priority: domain.PriorityMedium,
		Category: "general",
		SLA:      domain.NewSLARecord(submitted, domain.DefaultSLAConfig().Window(domain.PriorityMedium)),
	}
	var updated domain.WorkOrder
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return existing, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, order domain.WorkOrder) error {
			updated = order
			return nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Events:     publisher,
		Clock:      func() time.Time { return now },
	})

	emergency := domain.PriorityEmergency
	order, err := svc.TriageWorkOrder(context.Background(), TriageWorkOrderCommand{
		Op:       testOp,
		ID:       "wo_1",
		Priority: &emergency,
		Category: "plumbing",
	})
	if err != nil {
		t.Fatalf("TriageWorkOrder returned error: %v", err)
	}

	if order.Status != domain.WorkOrderStatusTriaged {
		t.Errorf("expected triaged, got %s", order.Status)
	}
	if order.Priority != domain.PriorityEmergency {
		t.Errorf("expected emergency priority, got %s", order.Priority)
	}
	if order.Category != "plumbing" {
		t.Errorf("expected reclassified category, got %s", order.Category)
	}
	if !order.SLA.ResponseDueAt.Equal(submitted.Add(30 * time.Minute)) {
		t.Errorf("expected rebased response due, got %s", order.SLA.ResponseDueAt)
	}
	if updated.ID != "wo_1" {
		t.Errorf("expected update to be persisted")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != EventWorkOrderStatusChanged {
		t.Fatalf("expected status changed event, got %+v", publisher.events)
	}
	if publisher.events[0].PreviousStatus != domain.WorkOrderStatusSubmitted {
		t.Errorf("expected previous status submitted, got %s", publisher.events[0].PreviousStatus)
	}
}

func TestInvalidTransitionPersistsNothing(t *testing.T) {
	updates := 0
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusVerified}, nil
		},
		updateFn: func(context.Context, domain.TenantID, domain.WorkOrder) error {
			updates++
			return nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo, Events: publisher})

	_, err := svc.StartWork(context.Background(), StartWorkCommand{Op: testOp, ID: "wo_1"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if updates != 0 {
		t.Errorf("expected no repository write on invalid transition")
	}
	if len(publisher.events) != 0 {
		t.Errorf("expected no events on invalid transition")
	}
}

func TestAssignWorkOrderRejectsUnavailableVendor(t *testing.T) {
	vendors := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return domain.Vendor{ID: "vnd_1", Code: "VND-0001", Status: domain.VendorStatusSuspended}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{Vendors: vendors})

	vendorID := domain.VendorID("vnd_1")
	_, err := svc.AssignWorkOrder(context.Background(), AssignWorkOrderCommand{Op: testOp, ID: "wo_1", VendorID: &vendorID})
	if !errors.Is(err, ErrVendorNotAvailable) {
		t.Fatalf("expected ErrVendorNotAvailable, got %v", err)
	}
}

func TestAssignWorkOrderRequiresAssignee(t *testing.T) {
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{})

	_, err := svc.AssignWorkOrder(context.Background(), AssignWorkOrderCommand{Op: testOp, ID: "wo_1"})
	if !errors.Is(err, ErrInvalidWorkOrderData) {
		t.Fatalf("expected ErrInvalidWorkOrderData, got %v", err)
	}
}

func TestAssignWorkOrderEmitsAssignedEvent(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Number: "WO-2026-000001", Status: domain.WorkOrderStatusTriaged}, nil
		},
	}
	vendors := &stubVendorRepo{
		findFn: func(context.Context, domain.TenantID, domain.VendorID) (domain.Vendor, error) {
			return domain.Vendor{ID: "vnd_1", Code: "VND-0001", Status: domain.VendorStatusActive}, nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo, Vendors: vendors, Events: publisher})

	vendorID := domain.VendorID("vnd_1")
	order, err := svc.AssignWorkOrder(context.Background(), AssignWorkOrderCommand{Op: testOp, ID: "wo_1", VendorID: &vendorID})
	if err != nil {
		t.Fatalf("AssignWorkOrder returned error: %v", err)
	}

	if order.VendorID == nil || *order.VendorID != "vnd_1" {
		t.Errorf("expected vendor recorded on order")
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != EventWorkOrderAssigned {
		t.Errorf("expected assigned event, got %s", event.Type)
	}
	if event.VendorID != "vnd_1" {
		t.Errorf("expected vendor on event, got %s", event.VendorID)
	}
}

func TestAutoAssignPicksHighestScore(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{
				ID:       "wo_1",
				TenantID: "acme",
				Status:   domain.WorkOrderStatusTriaged,
				Priority: domain.PriorityEmergency,
				Category: "plumbing",
			}, nil
		},
	}
	var query repositories.VendorAvailabilityQuery
	vendors := &stubVendorRepo{
		listAvailableFn: func(_ context.Context, _ domain.TenantID, q repositories.VendorAvailabilityQuery) ([]domain.Vendor, error) {
			query = q
			return []domain.Vendor{
				{ID: "vnd_plain", Code: "VND-0002", Status: domain.VendorStatusActive},
				{ID: "vnd_best", Code: "VND-0001", Status: domain.VendorStatusActive, Preferred: true, EmergencyAvailable: true},
			}, nil
		},
		findFn: func(_ context.Context, _ domain.TenantID, id domain.VendorID) (domain.Vendor, error) {
			if id == "vnd_best" {
				return domain.Vendor{ID: "vnd_best", Code: "VND-0001", Status: domain.VendorStatusActive}, nil
			}
			return domain.Vendor{ID: id, Status: domain.VendorStatusActive}, nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo, Vendors: vendors, Events: publisher})

	order, err := svc.AutoAssignWorkOrder(context.Background(), testOp, "wo_1")
	if err != nil {
		t.Fatalf("AutoAssignWorkOrder returned error: %v", err)
	}

	if query.Specialization != "plumbing" || !query.EmergencyRequired {
		t.Errorf("expected hard filter on category and emergency, got %+v", query)
	}
	if order.VendorID == nil || *order.VendorID != "vnd_best" {
		t.Fatalf("expected vnd_best assigned, got %v", order.VendorID)
	}
}

func TestAutoAssignNoCandidates(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusTriaged, Category: "electrical"}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo})

	_, err := svc.AutoAssignWorkOrder(context.Background(), testOp, "wo_1")
	if !errors.Is(err, ErrNoAvailableVendor) {
		t.Fatalf("expected ErrNoAvailableVendor, got %v", err)
	}
}

func TestCompleteWorkOrderCostApprovalGate(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusInProgress}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders:            repo,
		CostApprovalThreshold: 50000,
	})

	cost := domain.Money{Amount: 75000, Currency: "USD"}
	_, err := svc.CompleteWorkOrder(context.Background(), CompleteWorkOrderCommand{Op: testOp, ID: "wo_1", ActualCost: &cost})
	if !errors.Is(err, ErrCostApprovalRequired) {
		t.Fatalf("expected ErrCostApprovalRequired, got %v", err)
	}

	// The same cost passes once approved.
	order, err := svc.CompleteWorkOrder(context.Background(), CompleteWorkOrderCommand{Op: testOp, ID: "wo_1", ActualCost: &cost, CostApproved: true})
	if err != nil {
		t.Fatalf("CompleteWorkOrder returned error: %v", err)
	}
	if order.Status != domain.WorkOrderStatusCompleted {
		t.Errorf("expected completed, got %s", order.Status)
	}
	if order.ActualCost == nil || order.ActualCost.Amount != 75000 {
		t.Errorf("expected actual cost recorded")
	}
}

func TestCompleteWorkOrderRecordsVendorMetrics(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	vendorID := domain.VendorID("vnd_1")
	order := domain.WorkOrder{
		ID:       "wo_1",
		TenantID: "acme",
		Status:   domain.WorkOrderStatusInProgress,
		VendorID: &vendorID,
		SLA:      domain.NewSLARecord(now.Add(-3*time.Hour), domain.SLAWindow{Response: time.Hour, Resolution: 24 * time.Hour}),
	}
	order.Timeline = []domain.TimelineEntry{{At: now.Add(-2 * time.Hour), Action: "Assigned", Status: domain.WorkOrderStatusAssigned}}

	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return order, nil
		},
	}
	var recorded VendorCompletionRecord
	perf := &stubVendorService{
		recordCompletionFn: func(_ context.Context, rec VendorCompletionRecord) (Vendor, error) {
			recorded = rec
			return Vendor{}, nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		VendorPerf: perf,
		Events:     publisher,
		Clock:      func() time.Time { return now },
	})

	_, err := svc.CompleteWorkOrder(context.Background(), CompleteWorkOrderCommand{Op: testOp, ID: "wo_1", Notes: "replaced washer"})
	if err != nil {
		t.Fatalf("CompleteWorkOrder returned error: %v", err)
	}

	if recorded.VendorID != "vnd_1" {
		t.Fatalf("expected completion recorded for vnd_1, got %s", recorded.VendorID)
	}
	if recorded.ResponseMinutes != 60 {
		t.Errorf("expected 60 response minutes, got %v", recorded.ResponseMinutes)
	}
	if recorded.ResolutionMinutes != 180 {
		t.Errorf("expected 180 resolution minutes, got %v", recorded.ResolutionMinutes)
	}
	if !recorded.WithinSLA {
		t.Errorf("expected within-SLA completion")
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != EventWorkOrderCompleted {
		t.Fatalf("expected completed event, got %+v", publisher.events)
	}
}

func TestVerifyWorkOrderValidatesRating(t *testing.T) {
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{})

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.VerifyWorkOrder(context.Background(), VerifyWorkOrderCommand{Op: testOp, ID: "wo_1", Rating: rating})
		if !errors.Is(err, ErrInvalidWorkOrderData) {
			t.Fatalf("expected ErrInvalidWorkOrderData for rating %d, got %v", rating, err)
		}
	}
}

func TestVerifyWorkOrderForwardsRatingToVendor(t *testing.T) {
	vendorID := domain.VendorID("vnd_1")
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusCompleted, VendorID: &vendorID}, nil
		},
	}
	var ratedVendor domain.VendorID
	var rated int
	perf := &stubVendorService{
		recordRatingFn: func(_ context.Context, _ OperationContext, id domain.VendorID, rating int) (Vendor, error) {
			ratedVendor = id
			rated = rating
			return Vendor{}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo, VendorPerf: perf})

	order, err := svc.VerifyWorkOrder(context.Background(), VerifyWorkOrderCommand{Op: testOp, ID: "wo_1", Rating: 4, Feedback: "good"})
	if err != nil {
		t.Fatalf("VerifyWorkOrder returned error: %v", err)
	}

	if order.Rating == nil || *order.Rating != 4 {
		t.Errorf("expected rating recorded on order")
	}
	if ratedVendor != "vnd_1" || rated != 4 {
		t.Errorf("expected rating forwarded to vendor service, got %s %d", ratedVendor, rated)
	}
}

func TestCancelFromTerminalFails(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusCancelled}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo})

	_, err := svc.CancelWorkOrder(context.Background(), CancelWorkOrderCommand{Op: testOp, ID: "wo_1", Reason: "duplicate"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEscalateKeepsStatus(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusInProgress}, nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo, Events: publisher})

	order, err := svc.EscalateWorkOrder(context.Background(), EscalateWorkOrderCommand{Op: testOp, ID: "wo_1", Reason: "no response in 48h"})
	if err != nil {
		t.Fatalf("EscalateWorkOrder returned error: %v", err)
	}

	if !order.Escalated {
		t.Errorf("expected escalated flag set")
	}
	if order.Status != domain.WorkOrderStatusInProgress {
		t.Errorf("expected status unchanged, got %s", order.Status)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != EventWorkOrderEscalated {
		t.Fatalf("expected escalated event, got %+v", publisher.events)
	}
}

func TestPauseResumeSLA(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	current := domain.WorkOrder{
		ID:       "wo_1",
		TenantID: "acme",
		Status:   domain.WorkOrderStatusInProgress,
		SLA:      domain.NewSLARecord(now.Add(-time.Hour), domain.SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour}),
	}
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return current, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, order domain.WorkOrder) error {
			current = order
			return nil
		},
	}
	clockNow := now
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Clock:      func() time.Time { return clockNow },
	})

	order, err := svc.PauseSLA(context.Background(), PauseSLACommand{Op: testOp, ID: "wo_1", Reason: "tenant travelling"})
	if err != nil {
		t.Fatalf("PauseSLA returned error: %v", err)
	}
	if !order.SLA.Paused() {
		t.Fatalf("expected paused clock")
	}

	// Pausing again is rejected.
	_, err = svc.PauseSLA(context.Background(), PauseSLACommand{Op: testOp, ID: "wo_1"})
	if !errors.Is(err, domain.ErrSLAAlreadyPaused) {
		t.Fatalf("expected ErrSLAAlreadyPaused, got %v", err)
	}

	clockNow = now.Add(2 * time.Hour)
	order, err = svc.ResumeSLA(context.Background(), ResumeSLACommand{Op: testOp, ID: "wo_1"})
	if err != nil {
		t.Fatalf("ResumeSLA returned error: %v", err)
	}
	if order.SLA.Paused() {
		t.Errorf("expected running clock after resume")
	}
	if order.SLA.PausedTotal != 2*time.Hour {
		t.Errorf("expected 2h accumulated pause, got %s", order.SLA.PausedTotal)
	}

	_, err = svc.ResumeSLA(context.Background(), ResumeSLACommand{Op: testOp, ID: "wo_1"})
	if !errors.Is(err, domain.ErrSLANotPaused) {
		t.Fatalf("expected ErrSLANotPaused, got %v", err)
	}
}

func TestCheckSLABreachesFlagsAndEmits(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	overdue := domain.WorkOrder{
		ID:       "wo_overdue",
		TenantID: "acme",
		Number:   "WO-2026-000001",
		Status:   domain.WorkOrderStatusAssigned,
		Priority: domain.PriorityHigh,
		SLA:      domain.NewSLARecord(now.Add(-48*time.Hour), domain.SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour}),
	}
	fresh := domain.WorkOrder{
		ID:       "wo_fresh",
		TenantID: "acme",
		Status:   domain.WorkOrderStatusSubmitted,
		SLA:      domain.NewSLARecord(now.Add(-time.Minute), domain.SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour}),
	}

	var updates []domain.WorkOrder
	repo := &stubWorkOrderRepo{
		listOpenFn: func(context.Context, domain.TenantID) ([]domain.WorkOrder, error) {
			return []domain.WorkOrder{overdue, fresh}, nil
		},
		updateFn: func(_ context.Context, _ domain.TenantID, order domain.WorkOrder) error {
			updates = append(updates, order)
			return nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Events:     publisher,
		Clock:      func() time.Time { return now },
	})

	result, err := svc.CheckSLABreaches(context.Background(), "acme")
	if err != nil {
		t.Fatalf("CheckSLABreaches returned error: %v", err)
	}

	if result.Scanned != 2 {
		t.Errorf("expected 2 scanned, got %d", result.Scanned)
	}
	if result.ResponseBreaches != 1 || result.ResolutionBreaches != 1 {
		t.Errorf("expected one breach of each type, got %+v", result)
	}
	if len(updates) != 1 || updates[0].ID != "wo_overdue" {
		t.Fatalf("expected exactly the overdue order updated, got %+v", updates)
	}
	if !updates[0].SLA.ResponseBreached || !updates[0].SLA.ResolutionBreached {
		t.Errorf("expected both flags set on persisted order")
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected two breach events, got %d", len(publisher.events))
	}
	for _, event := range publisher.events {
		if event.Type != EventSLABreached {
			t.Errorf("expected breach event, got %s", event.Type)
		}
	}
}

func TestCheckSLABreachesIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	breached := domain.WorkOrder{
		ID:       "wo_1",
		TenantID: "acme",
		Status:   domain.WorkOrderStatusAssigned,
		SLA: domain.SLARecord{
			SubmittedAt:        now.Add(-48 * time.Hour),
			ResponseDueAt:      now.Add(-46 * time.Hour),
			ResolutionDueAt:    now.Add(-24 * time.Hour),
			ResponseBreached:   true,
			ResolutionBreached: true,
		},
	}
	updates := 0
	repo := &stubWorkOrderRepo{
		listOpenFn: func(context.Context, domain.TenantID) ([]domain.WorkOrder, error) {
			return []domain.WorkOrder{breached}, nil
		},
		updateFn: func(context.Context, domain.TenantID, domain.WorkOrder) error {
			updates++
			return nil
		},
	}
	publisher := &captureMaintenanceEvents{}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Events:     publisher,
		Clock:      func() time.Time { return now },
	})

	result, err := svc.CheckSLABreaches(context.Background(), "acme")
	if err != nil {
		t.Fatalf("CheckSLABreaches returned error: %v", err)
	}

	if result.ResponseBreaches != 0 || result.ResolutionBreaches != 0 {
		t.Errorf("expected no new breaches, got %+v", result)
	}
	if updates != 0 {
		t.Errorf("expected no writes for already breached orders")
	}
	if len(publisher.events) != 0 {
		t.Errorf("expected no events for already breached orders")
	}
}

func TestCheckSLABreachesSkipsPausedClocks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	pausedAt := now.Add(-10 * time.Hour)
	paused := domain.WorkOrder{
		ID:       "wo_1",
		TenantID: "acme",
		Status:   domain.WorkOrderStatusPendingParts,
		SLA: domain.SLARecord{
			SubmittedAt:     now.Add(-20 * time.Hour),
			ResponseDueAt:   now.Add(-18 * time.Hour),
			ResolutionDueAt: now.Add(-4 * time.Hour),
			PausedAt:        &pausedAt,
		},
	}
	updates := 0
	repo := &stubWorkOrderRepo{
		listOpenFn: func(context.Context, domain.TenantID) ([]domain.WorkOrder, error) {
			return []domain.WorkOrder{paused}, nil
		},
		updateFn: func(context.Context, domain.TenantID, domain.WorkOrder) error {
			updates++
			return nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{
		WorkOrders: repo,
		Clock:      func() time.Time { return now },
	})

	result, err := svc.CheckSLABreaches(context.Background(), "acme")
	if err != nil {
		t.Fatalf("CheckSLABreaches returned error: %v", err)
	}
	if result.ResponseBreaches != 0 || result.ResolutionBreaches != 0 {
		t.Errorf("paused clocks must not breach, got %+v", result)
	}
	if updates != 0 {
		t.Errorf("expected no writes for paused clocks")
	}
}

func TestGetWorkOrderMapsNotFound(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{}, notFoundRepoError{}
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo})

	_, err := svc.GetWorkOrder(context.Background(), "acme", "wo_missing")
	if !errors.Is(err, ErrWorkOrderNotFound) {
		t.Fatalf("expected ErrWorkOrderNotFound, got %v", err)
	}
	if ErrorCode(err) != CodeWorkOrderNotFound {
		t.Errorf("expected canonical code, got %s", ErrorCode(err))
	}
}

func TestHoldForPartsOnlyFromInProgress(t *testing.T) {
	repo := &stubWorkOrderRepo{
		findFn: func(context.Context, domain.TenantID, domain.WorkOrderID) (domain.WorkOrder, error) {
			return domain.WorkOrder{ID: "wo_1", TenantID: "acme", Status: domain.WorkOrderStatusAssigned}, nil
		},
	}
	svc := newTestMaintenanceService(t, MaintenanceServiceDeps{WorkOrders: repo})

	_, err := svc.HoldForParts(context.Background(), HoldForPartsCommand{Op: testOp, ID: "wo_1", Notes: "valve on order"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
