package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/platform/httpx"
	"github.com/propstack/maintenance/internal/services"
)

const (
	workOrderMaxBodyBytes   = 64 * 1024
	workOrderDefaultPage    = 20
	workOrderMaxPage        = 100
	scheduleDateQueryLayout = "2006-01-02"
)

// WorkOrderHandlers exposes the work order lifecycle over HTTP. Intake is
// rate limited per tenant so a runaway integration cannot flood the queue.
type WorkOrderHandlers struct {
	service services.MaintenanceService
	limiter rateLimiter
}

// NewWorkOrderHandlers constructs handlers backed by the given service.
func NewWorkOrderHandlers(service services.MaintenanceService) *WorkOrderHandlers {
	return &WorkOrderHandlers{
		service: service,
		limiter: newSimpleRateLimiter(120, time.Minute, nil),
	}
}

// Routes registers the work order endpoints on the router group.
func (h *WorkOrderHandlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats", h.stats)
	r.Get("/schedule", h.schedule)
	r.Get("/by-number/{workOrderNumber}", h.getByNumber)
	r.Get("/{workOrderID}", h.get)
	r.Post("/{workOrderID}:triage", h.triage)
	r.Post("/{workOrderID}:assign", h.assign)
	r.Post("/{workOrderID}:auto-assign", h.autoAssign)
	r.Post("/{workOrderID}:schedule", h.scheduleVisit)
	r.Post("/{workOrderID}:start", h.start)
	r.Post("/{workOrderID}:hold-parts", h.holdForParts)
	r.Post("/{workOrderID}:resume-work", h.resumeWork)
	r.Post("/{workOrderID}:complete", h.complete)
	r.Post("/{workOrderID}:verify", h.verify)
	r.Post("/{workOrderID}:cancel", h.cancel)
	r.Post("/{workOrderID}:escalate", h.escalate)
	r.Post("/{workOrderID}:pause-sla", h.pauseSLA)
	r.Post("/{workOrderID}:resume-sla", h.resumeSLA)
}

type attachmentPayload struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type createWorkOrderPayload struct {
	Title             string              `json:"title"`
	Description       string              `json:"description,omitempty"`
	Category          string              `json:"category"`
	Location          string              `json:"location,omitempty"`
	Priority          string              `json:"priority,omitempty"`
	Source            string              `json:"source,omitempty"`
	PropertyID        string              `json:"property_id"`
	UnitID            string              `json:"unit_id,omitempty"`
	CustomerID        string              `json:"customer_id,omitempty"`
	Attachments       []attachmentPayload `json:"attachments,omitempty"`
	EntryRequired     bool                `json:"entry_required,omitempty"`
	EntryInstructions string              `json:"entry_instructions,omitempty"`
	EntryPermitted    bool                `json:"entry_permitted,omitempty"`
}

type triageWorkOrderPayload struct {
	Priority string `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type assignWorkOrderPayload struct {
	VendorID   string `json:"vendor_id,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type scheduleWorkOrderPayload struct {
	Date string `json:"date"`
	Slot string `json:"slot,omitempty"`
}

type notesPayload struct {
	Notes string `json:"notes,omitempty"`
}

type completeWorkOrderPayload struct {
	Notes        string        `json:"notes,omitempty"`
	ActualCost   *moneyPayload `json:"actual_cost,omitempty"`
	CostApproved bool          `json:"cost_approved,omitempty"`
}

type moneyPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type verifyWorkOrderPayload struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

type reasonPayload struct {
	Reason string `json:"reason,omitempty"`
}

type timelineEntryResponse struct {
	At      string `json:"at"`
	Action  string `json:"action"`
	Status  string `json:"status"`
	ActorID string `json:"actor_id,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type slaResponse struct {
	SubmittedAt        string `json:"submitted_at"`
	ResponseDueAt      string `json:"response_due_at"`
	ResolutionDueAt    string `json:"resolution_due_at"`
	ResponseBreached   bool   `json:"response_breached"`
	ResolutionBreached bool   `json:"resolution_breached"`
	Paused             bool   `json:"paused"`
	PausedAt           string `json:"paused_at,omitempty"`
	PausedTotalSeconds int64  `json:"paused_total_seconds"`
	ResolvedAt         string `json:"resolved_at,omitempty"`
}

type workOrderResponse struct {
	ID                string                  `json:"id"`
	Number            string                  `json:"number"`
	Status            string                  `json:"status"`
	Priority          string                  `json:"priority"`
	Category          string                  `json:"category"`
	Source            string                  `json:"source"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description,omitempty"`
	Location          string                  `json:"location,omitempty"`
	PropertyID        string                  `json:"property_id"`
	UnitID            string                  `json:"unit_id,omitempty"`
	CustomerID        string                  `json:"customer_id,omitempty"`
	VendorID          string                  `json:"vendor_id,omitempty"`
	AssignedTo        string                  `json:"assigned_to,omitempty"`
	EntryRequired     bool                    `json:"entry_required"`
	EntryInstructions string                  `json:"entry_instructions,omitempty"`
	EntryPermitted    bool                    `json:"entry_permitted"`
	ScheduledDate     string                  `json:"scheduled_date,omitempty"`
	ScheduledSlot     string                  `json:"scheduled_slot,omitempty"`
	SLA               slaResponse             `json:"sla"`
	Escalated         bool                    `json:"escalated"`
	CompletionNotes   string                  `json:"completion_notes,omitempty"`
	ActualCost        *moneyPayload           `json:"actual_cost,omitempty"`
	Rating            *int                    `json:"rating,omitempty"`
	Feedback          string                  `json:"feedback,omitempty"`
	Attachments       []attachmentPayload     `json:"attachments,omitempty"`
	Timeline          []timelineEntryResponse `json:"timeline"`
	CreatedAt         string                  `json:"created_at"`
	UpdatedAt         string                  `json:"updated_at"`
}

type workOrderListResponse struct {
	Items         []workOrderResponse `json:"items"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

type workOrderStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

type sweepResponse struct {
	Scanned            int `json:"scanned"`
	ResponseBreaches   int `json:"response_breaches"`
	ResolutionBreaches int `json:"resolution_breaches"`
}

func (h *WorkOrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	if h.limiter != nil && !h.limiter.Allow(op.Tenant.String()) {
		httpx.WriteError(ctx, w, httpx.NewError("RATE_LIMITED", "too many work order submissions, retry later", http.StatusTooManyRequests))
		return
	}
	var payload createWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.CreateWorkOrderCommand{
		Op:                op,
		Title:             payload.Title,
		Description:       payload.Description,
		Category:          payload.Category,
		Location:          payload.Location,
		Priority:          domain.Priority(payload.Priority),
		Source:            domain.WorkOrderSource(payload.Source),
		Property:          domain.PropertyID(payload.PropertyID),
		EntryRequired:     payload.EntryRequired,
		EntryInstructions: payload.EntryInstructions,
		EntryPermitted:    payload.EntryPermitted,
	}
	if unit := strings.TrimSpace(payload.UnitID); unit != "" {
		unitID := domain.UnitID(unit)
		cmd.Unit = &unitID
	}
	if customer := strings.TrimSpace(payload.CustomerID); customer != "" {
		customerID := domain.UserID(customer)
		cmd.Customer = &customerID
	}
	for _, att := range payload.Attachments {
		cmd.Attachments = append(cmd.Attachments, domain.Attachment{
			Type:        att.Type,
			URL:         att.URL,
			Description: att.Description,
		})
	}
	order, err := h.service.CreateWorkOrder(ctx, cmd)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, toWorkOrderResponse(order))
}

func (h *WorkOrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	id := domain.WorkOrderID(chi.URLParam(r, "workOrderID"))
	order, err := h.service.GetWorkOrder(ctx, op.Tenant, id)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toWorkOrderResponse(order))
}

func (h *WorkOrderHandlers) getByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	number := chi.URLParam(r, "workOrderNumber")
	order, err := h.service.GetWorkOrderByNumber(ctx, op.Tenant, number)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toWorkOrderResponse(order))
}

func (h *WorkOrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	query := r.URL.Query()
	filter := services.WorkOrderListFilter{
		Category:   strings.TrimSpace(query.Get("category")),
		Property:   domain.PropertyID(strings.TrimSpace(query.Get("property_id"))),
		Unit:       domain.UnitID(strings.TrimSpace(query.Get("unit_id"))),
		Customer:   domain.UserID(strings.TrimSpace(query.Get("customer_id"))),
		Vendor:     domain.VendorID(strings.TrimSpace(query.Get("vendor_id"))),
		Pagination: parsePagination(r, workOrderDefaultPage, workOrderMaxPage),
	}
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.WorkOrderStatus(raw)
		if !domain.ValidWorkOrderStatus(status) {
			httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "unknown status filter: "+raw, http.StatusBadRequest))
			return
		}
		filter.Status = append(filter.Status, status)
	}
	for _, raw := range parseFilterValues(query["priority"]) {
		priority := domain.Priority(raw)
		if !domain.ValidPriority(priority) {
			httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "unknown priority filter: "+raw, http.StatusBadRequest))
			return
		}
		filter.Priority = append(filter.Priority, priority)
	}
	page, err := h.service.ListWorkOrders(ctx, op.Tenant, filter)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toWorkOrderListResponse(page))
}

func (h *WorkOrderHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	counts, err := h.service.CountByStatus(ctx, op.Tenant)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	out := workOrderStatsResponse{Counts: make(map[string]int, len(counts))}
	for status, count := range counts {
		out.Counts[string(status)] = count
	}
	writeJSONResponse(w, http.StatusOK, out)
}

func (h *WorkOrderHandlers) schedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "date query parameter is required", http.StatusBadRequest))
		return
	}
	day, err := time.ParseInLocation(scheduleDateQueryLayout, raw, time.UTC)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "date must be formatted YYYY-MM-DD", http.StatusBadRequest))
		return
	}
	orders, err := h.service.ListScheduledForDate(ctx, op.Tenant, day)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	items := make([]workOrderResponse, 0, len(orders))
	for _, order := range orders {
		items = append(items, toWorkOrderResponse(order))
	}
	writeJSONResponse(w, http.StatusOK, workOrderListResponse{Items: items})
}

func (h *WorkOrderHandlers) triage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload triageWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.TriageWorkOrderCommand{
		Op:       op,
		ID:       domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Category: payload.Category,
		Notes:    payload.Notes,
	}
	if raw := strings.TrimSpace(payload.Priority); raw != "" {
		priority := domain.Priority(raw)
		cmd.Priority = &priority
	}
	order, err := h.service.TriageWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload assignWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.AssignWorkOrderCommand{
		Op:    op,
		ID:    domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Notes: payload.Notes,
	}
	if raw := strings.TrimSpace(payload.VendorID); raw != "" {
		vendorID := domain.VendorID(raw)
		cmd.VendorID = &vendorID
	}
	if raw := strings.TrimSpace(payload.AssignedTo); raw != "" {
		userID := domain.UserID(raw)
		cmd.AssignedTo = &userID
	}
	order, err := h.service.AssignWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) autoAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	id := domain.WorkOrderID(chi.URLParam(r, "workOrderID"))
	order, err := h.service.AutoAssignWorkOrder(ctx, op, id)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) scheduleVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload scheduleWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	date, err := time.ParseInLocation(scheduleDateQueryLayout, strings.TrimSpace(payload.Date), time.UTC)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "date must be formatted YYYY-MM-DD", http.StatusBadRequest))
		return
	}
	cmd := services.ScheduleWorkOrderCommand{
		Op:   op,
		ID:   domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Date: date,
		Slot: payload.Slot,
	}
	order, err := h.service.ScheduleWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	cmd := services.StartWorkCommand{
		Op: op,
		ID: domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
	}
	order, err := h.service.StartWork(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) holdForParts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload notesPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.HoldForPartsCommand{
		Op:    op,
		ID:    domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Notes: payload.Notes,
	}
	order, err := h.service.HoldForParts(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) resumeWork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	cmd := services.ResumeWorkCommand{
		Op: op,
		ID: domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
	}
	order, err := h.service.ResumeWork(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload completeWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.CompleteWorkOrderCommand{
		Op:           op,
		ID:           domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Notes:        payload.Notes,
		CostApproved: payload.CostApproved,
	}
	if payload.ActualCost != nil {
		cmd.ActualCost = &domain.Money{
			Amount:   payload.ActualCost.Amount,
			Currency: payload.ActualCost.Currency,
		}
	}
	order, err := h.service.CompleteWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload verifyWorkOrderPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.VerifyWorkOrderCommand{
		Op:       op,
		ID:       domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Rating:   payload.Rating,
		Feedback: payload.Feedback,
	}
	order, err := h.service.VerifyWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload reasonPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.CancelWorkOrderCommand{
		Op:     op,
		ID:     domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Reason: payload.Reason,
	}
	order, err := h.service.CancelWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) escalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload reasonPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.EscalateWorkOrderCommand{
		Op:     op,
		ID:     domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Reason: payload.Reason,
	}
	order, err := h.service.EscalateWorkOrder(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) pauseSLA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload reasonPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.PauseSLACommand{
		Op:     op,
		ID:     domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
		Reason: payload.Reason,
	}
	order, err := h.service.PauseSLA(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) resumeSLA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	cmd := services.ResumeSLACommand{
		Op: op,
		ID: domain.WorkOrderID(chi.URLParam(r, "workOrderID")),
	}
	order, err := h.service.ResumeSLA(ctx, cmd)
	h.respondMutation(w, r, order, err)
}

func (h *WorkOrderHandlers) respondMutation(w http.ResponseWriter, r *http.Request, order services.WorkOrder, err error) {
	ctx := r.Context()
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toWorkOrderResponse(order))
}

func parsePagination(r *http.Request, defaultSize, maxSize int) domain.Pagination {
	query := r.URL.Query()
	size := defaultSize
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			size = parsed
		}
	}
	if size > maxSize {
		size = maxSize
	}
	return domain.Pagination{
		PageSize:  size,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}
}

func toWorkOrderResponse(order services.WorkOrder) workOrderResponse {
	out := workOrderResponse{
		ID:                order.ID.String(),
		Number:            order.Number,
		Status:            string(order.Status),
		Priority:          string(order.Priority),
		Category:          order.Category,
		Source:            string(order.Source),
		Title:             order.Title,
		Description:       order.Description,
		Location:          order.Location,
		PropertyID:        order.PropertyRef.Property.String(),
		EntryRequired:     order.EntryRequired,
		EntryInstructions: order.EntryInstructions,
		EntryPermitted:    order.EntryPermitted,
		ScheduledSlot:     order.ScheduledSlot,
		SLA:               toSLAResponse(order.SLA),
		Escalated:         order.Escalated,
		CompletionNotes:   order.CompletionNotes,
		Rating:            order.Rating,
		Feedback:          order.Feedback,
		CreatedAt:         formatTime(order.Audit.CreatedAt),
		UpdatedAt:         formatTime(order.Audit.UpdatedAt),
	}
	if order.PropertyRef.Unit != nil {
		out.UnitID = order.PropertyRef.Unit.String()
	}
	if order.PropertyRef.Customer != nil {
		out.CustomerID = order.PropertyRef.Customer.String()
	}
	if order.VendorID != nil {
		out.VendorID = order.VendorID.String()
	}
	if order.AssignedTo != nil {
		out.AssignedTo = order.AssignedTo.String()
	}
	if order.ScheduledDate != nil {
		out.ScheduledDate = order.ScheduledDate.UTC().Format(scheduleDateQueryLayout)
	}
	if order.ActualCost != nil {
		out.ActualCost = &moneyPayload{Amount: order.ActualCost.Amount, Currency: order.ActualCost.Currency}
	}
	for _, att := range order.Attachments {
		out.Attachments = append(out.Attachments, attachmentPayload{
			Type:        att.Type,
			URL:         att.URL,
			Description: att.Description,
		})
	}
	out.Timeline = make([]timelineEntryResponse, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		out.Timeline = append(out.Timeline, timelineEntryResponse{
			At:      formatTime(entry.At),
			Action:  entry.Action,
			Status:  string(entry.Status),
			ActorID: entry.ActorID.String(),
			Notes:   entry.Notes,
		})
	}
	return out
}

func toSLAResponse(sla domain.SLARecord) slaResponse {
	return slaResponse{
		SubmittedAt:        formatTime(sla.SubmittedAt),
		ResponseDueAt:      formatTime(sla.ResponseDueAt),
		ResolutionDueAt:    formatTime(sla.ResolutionDueAt),
		ResponseBreached:   sla.ResponseBreached,
		ResolutionBreached: sla.ResolutionBreached,
		Paused:             sla.PausedAt != nil,
		PausedAt:           formatTimePointer(sla.PausedAt),
		PausedTotalSeconds: int64(sla.PausedTotal.Seconds()),
		ResolvedAt:         formatTimePointer(sla.ResolvedAt),
	}
}

func toWorkOrderListResponse(page domain.CursorPage[services.WorkOrder]) workOrderListResponse {
	items := make([]workOrderResponse, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, toWorkOrderResponse(order))
	}
	return workOrderListResponse{Items: items, NextPageToken: page.NextPageToken}
}
