package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/propstack/maintenance/internal/domain"
	pfirestore "github.com/propstack/maintenance/internal/platform/firestore"
	"github.com/propstack/maintenance/internal/repositories"
)

const workOrdersCollection = "workOrders"

// WorkOrderRepository persists work order aggregates under per-tenant
// subcollections (tenants/{tenant}/workOrders). Tenant scope is part of every
// document path, so cross-tenant reads are structurally impossible.
type WorkOrderRepository struct {
	provider *pfirestore.Provider
}

// NewWorkOrderRepository constructs a Firestore-backed work order repository.
func NewWorkOrderRepository(provider *pfirestore.Provider) (*WorkOrderRepository, error) {
	if provider == nil {
		return nil, errors.New("work order repository: firestore provider is required")
	}
	return &WorkOrderRepository{provider: provider}, nil
}

func (r *WorkOrderRepository) base(tenant domain.TenantID) (*pfirestore.BaseRepository[workOrderDocument], error) {
	path, err := tenantCollectionPath(tenant, workOrdersCollection)
	if err != nil {
		return nil, err
	}
	return pfirestore.NewBaseRepository[workOrderDocument](r.provider, path, nil, nil), nil
}

// Create stores a new work order. The ID must be unique within the tenant.
func (r *WorkOrderRepository) Create(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error {
	if r == nil || r.provider == nil {
		return errors.New("work order repository not initialised")
	}
	id := strings.TrimSpace(string(order.ID))
	if id == "" {
		return errors.New("work order repository: work order id is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return err
	}
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, encodeWorkOrderDocument(order)); err != nil {
		return pfirestore.WrapError("work_orders.create", err)
	}
	return nil
}

// Update replaces the persisted state with the provided snapshot. The document
// must already exist.
func (r *WorkOrderRepository) Update(ctx context.Context, tenant domain.TenantID, order domain.WorkOrder) error {
	if r == nil || r.provider == nil {
		return errors.New("work order repository not initialised")
	}
	id := strings.TrimSpace(string(order.ID))
	if id == "" {
		return errors.New("work order repository: work order id is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return err
	}
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, encodeWorkOrderDocument(order)); err != nil {
		return pfirestore.WrapError("work_orders.update", err)
	}
	return nil
}

// Delete removes the work order document.
func (r *WorkOrderRepository) Delete(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) error {
	if r == nil || r.provider == nil {
		return errors.New("work order repository not initialised")
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
		return pfirestore.WrapError("work_orders.delete", err)
	}
	return nil
}

// FindByID fetches a single work order in tenant scope.
func (r *WorkOrderRepository) FindByID(ctx context.Context, tenant domain.TenantID, id domain.WorkOrderID) (domain.WorkOrder, error) {
	if r == nil || r.provider == nil {
		return domain.WorkOrder{}, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	doc, err := base.Get(ctx, strings.TrimSpace(string(id)))
	if err != nil {
		return domain.WorkOrder{}, err
	}
	return decodeWorkOrderDocument(doc.ID, tenant, doc.Data), nil
}

// FindByNumber fetches a work order by its human-readable number.
func (r *WorkOrderRepository) FindByNumber(ctx context.Context, tenant domain.TenantID, number string) (domain.WorkOrder, error) {
	if r == nil || r.provider == nil {
		return domain.WorkOrder{}, errors.New("work order repository not initialised")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.WorkOrder{}, errors.New("work order repository: number is required")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("number", "==", number).Limit(1)
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if len(docs) == 0 {
		return domain.WorkOrder{}, pfirestore.NotFoundError("work_orders.find_by_number", fmt.Errorf("work order %s not found", number))
	}
	return decodeWorkOrderDocument(docs[0].ID, tenant, docs[0].Data), nil
}

// List returns a filtered page of work orders ordered by most recent creation.
func (r *WorkOrderRepository) List(ctx context.Context, tenant domain.TenantID, filter repositories.WorkOrderListFilter) (domain.CursorPage[domain.WorkOrder], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.WorkOrder]{}, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return domain.CursorPage[domain.WorkOrder]{}, err
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.WorkOrder]{}, fmt.Errorf("work order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := statusStrings(filter.Status)
	priorityFilters := priorityStrings(filter.Priority)

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = applyInFilter(q, "status", statusFilters)
		q = applyInFilter(q, "priority", priorityFilters)
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", category)
		}
		if property := strings.TrimSpace(string(filter.Property)); property != "" {
			q = q.Where("property.propertyId", "==", property)
		}
		if unit := strings.TrimSpace(string(filter.Unit)); unit != "" {
			q = q.Where("property.unitId", "==", unit)
		}
		if customer := strings.TrimSpace(string(filter.Customer)); customer != "" {
			q = q.Where("property.customerId", "==", customer)
		}
		if vendor := strings.TrimSpace(string(filter.Vendor)); vendor != "" {
			q = q.Where("vendorId", "==", vendor)
		}

		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.WorkOrder]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		nextToken = encodeListToken(last.Data.CreatedAt, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.WorkOrder, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeWorkOrderDocument(doc.ID, tenant, doc.Data))
	}

	return domain.CursorPage[domain.WorkOrder]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ListOpen returns every work order in a non-terminal status.
func (r *WorkOrderRepository) ListOpen(ctx context.Context, tenant domain.TenantID) ([]domain.WorkOrder, error) {
	return r.listByStatuses(ctx, tenant, statusStrings(domain.OpenStatuses()))
}

// ListSLABreached returns work orders carrying a breach flag, newest first.
func (r *WorkOrderRepository) ListSLABreached(ctx context.Context, tenant domain.TenantID) ([]domain.WorkOrder, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}

	// Firestore has no OR across fields; run the two flag queries and merge.
	seen := map[string]struct{}{}
	var orders []domain.WorkOrder
	for _, field := range []string{"sla.responseBreached", "sla.resolutionBreached"} {
		docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where(field, "==", true)
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if _, ok := seen[doc.ID]; ok {
				continue
			}
			seen[doc.ID] = struct{}{}
			orders = append(orders, decodeWorkOrderDocument(doc.ID, tenant, doc.Data))
		}
	}
	slices.SortFunc(orders, func(a, b domain.WorkOrder) int {
		return b.Audit.CreatedAt.Compare(a.Audit.CreatedAt)
	})
	return orders, nil
}

// ListScheduledForDate returns work orders booked on the given calendar day (UTC).
func (r *WorkOrderRepository) ListScheduledForDate(ctx context.Context, tenant domain.TenantID, day time.Time) ([]domain.WorkOrder, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("scheduledDate", ">=", dayStart).
			Where("scheduledDate", "<", dayEnd).
			OrderBy("scheduledDate", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.WorkOrder, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeWorkOrderDocument(doc.ID, tenant, doc.Data))
	}
	return orders, nil
}

// CountByStatus returns the number of work orders per lifecycle status.
func (r *WorkOrderRepository) CountByStatus(ctx context.Context, tenant domain.TenantID) (map[domain.WorkOrderStatus]int, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}
	docs, err := base.Query(ctx, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.WorkOrderStatus]int)
	for _, doc := range docs {
		counts[domain.WorkOrderStatus(doc.Data.Status)]++
	}
	return counts, nil
}

func (r *WorkOrderRepository) listByStatuses(ctx context.Context, tenant domain.TenantID, statuses []string) ([]domain.WorkOrder, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("work order repository not initialised")
	}
	base, err := r.base(tenant)
	if err != nil {
		return nil, err
	}
	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		return applyInFilter(q, "status", statuses)
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.WorkOrder, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeWorkOrderDocument(doc.ID, tenant, doc.Data))
	}
	return orders, nil
}

type workOrderDocument struct {
	Number   string `firestore:"number"`
	Priority string `firestore:"priority"`
	Category string `firestore:"category"`
	Source   string `firestore:"source"`
	Status   string `firestore:"status"`

	Title       string               `firestore:"title"`
	Description string               `firestore:"description"`
	Location    string               `firestore:"location,omitempty"`
	Attachments []attachmentDocument `firestore:"attachments,omitempty"`

	Property   propertyRefDocument `firestore:"property"`
	VendorID   string              `firestore:"vendorId,omitempty"`
	AssignedTo string              `firestore:"assignedTo,omitempty"`

	EntryRequired     bool   `firestore:"entryRequired"`
	EntryInstructions string `firestore:"entryInstructions,omitempty"`
	EntryPermitted    bool   `firestore:"entryPermitted"`

	ScheduledDate *time.Time `firestore:"scheduledDate,omitempty"`
	ScheduledSlot string     `firestore:"scheduledSlot,omitempty"`

	SLA       slaDocument `firestore:"sla"`
	Escalated bool        `firestore:"escalated"`

	CompletionNotes string         `firestore:"completionNotes,omitempty"`
	ActualCost      *moneyDocument `firestore:"actualCost,omitempty"`
	Rating          *int           `firestore:"rating,omitempty"`
	Feedback        string         `firestore:"feedback,omitempty"`

	Timeline []timelineEntryDocument `firestore:"timeline"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
	CreatedBy string    `firestore:"createdBy,omitempty"`
	UpdatedBy string    `firestore:"updatedBy,omitempty"`
}

type propertyRefDocument struct {
	PropertyID string `firestore:"propertyId"`
	UnitID     string `firestore:"unitId,omitempty"`
	CustomerID string `firestore:"customerId,omitempty"`
}

type attachmentDocument struct {
	Type        string `firestore:"type"`
	URL         string `firestore:"url"`
	Description string `firestore:"description,omitempty"`
}

type slaDocument struct {
	SubmittedAt        time.Time  `firestore:"submittedAt"`
	ResponseDueAt      time.Time  `firestore:"responseDueAt"`
	ResolutionDueAt    time.Time  `firestore:"resolutionDueAt"`
	ResponseBreached   bool       `firestore:"responseBreached"`
	ResolutionBreached bool       `firestore:"resolutionBreached"`
	PausedAt           *time.Time `firestore:"pausedAt,omitempty"`
	PausedTotalSeconds int64      `firestore:"pausedTotalSeconds"`
	ResolvedAt         *time.Time `firestore:"resolvedAt,omitempty"`
}

type moneyDocument struct {
	Amount   int64  `firestore:"amount"`
	Currency string `firestore:"currency"`
}

type timelineEntryDocument struct {
	At      time.Time `firestore:"at"`
	Action  string    `firestore:"action"`
	Status  string    `firestore:"status"`
	ActorID string    `firestore:"actorId,omitempty"`
	Notes   string    `firestore:"notes,omitempty"`
}

func encodeWorkOrderDocument(order domain.WorkOrder) workOrderDocument {
	doc := workOrderDocument{
		Number:            strings.TrimSpace(order.Number),
		Priority:          string(order.Priority),
		Category:          strings.TrimSpace(order.Category),
		Source:            string(order.Source),
		Status:            string(order.Status),
		Title:             strings.TrimSpace(order.Title),
		Description:       order.Description,
		Location:          strings.TrimSpace(order.Location),
		EntryRequired:     order.EntryRequired,
		EntryInstructions: order.EntryInstructions,
		EntryPermitted:    order.EntryPermitted,
		ScheduledDate:     normalizeTimePointer(order.ScheduledDate),
		ScheduledSlot:     strings.TrimSpace(order.ScheduledSlot),
		Escalated:         order.Escalated,
		CompletionNotes:   order.CompletionNotes,
		Feedback:          order.Feedback,
		CreatedAt:         order.Audit.CreatedAt.UTC(),
		UpdatedAt:         order.Audit.UpdatedAt.UTC(),
		CreatedBy:         strings.TrimSpace(string(order.Audit.CreatedBy)),
		UpdatedBy:         strings.TrimSpace(string(order.Audit.UpdatedBy)),
		Property: propertyRefDocument{
			PropertyID: strings.TrimSpace(string(order.PropertyRef.Property)),
		},
		SLA: slaDocument{
			SubmittedAt:        order.SLA.SubmittedAt.UTC(),
			ResponseDueAt:      order.SLA.ResponseDueAt.UTC(),
			ResolutionDueAt:    order.SLA.ResolutionDueAt.UTC(),
			ResponseBreached:   order.SLA.ResponseBreached,
			ResolutionBreached: order.SLA.ResolutionBreached,
			PausedAt:           normalizeTimePointer(order.SLA.PausedAt),
			PausedTotalSeconds: int64(order.SLA.PausedTotal / time.Second),
			ResolvedAt:         normalizeTimePointer(order.SLA.ResolvedAt),
		},
	}
	if order.PropertyRef.Unit != nil {
		doc.Property.UnitID = strings.TrimSpace(string(*order.PropertyRef.Unit))
	}
	if order.PropertyRef.Customer != nil {
		doc.Property.CustomerID = strings.TrimSpace(string(*order.PropertyRef.Customer))
	}
	if order.VendorID != nil {
		doc.VendorID = strings.TrimSpace(string(*order.VendorID))
	}
	if order.AssignedTo != nil {
		doc.AssignedTo = strings.TrimSpace(string(*order.AssignedTo))
	}
	if order.ActualCost != nil {
		doc.ActualCost = &moneyDocument{Amount: order.ActualCost.Amount, Currency: order.ActualCost.Currency}
	}
	if order.Rating != nil {
		rating := *order.Rating
		doc.Rating = &rating
	}
	for _, attachment := range order.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDocument{
			Type:        attachment.Type,
			URL:         attachment.URL,
			Description: attachment.Description,
		})
	}
	for _, entry := range order.Timeline {
		doc.Timeline = append(doc.Timeline, timelineEntryDocument{
			At:      entry.At.UTC(),
			Action:  entry.Action,
			Status:  string(entry.Status),
			ActorID: strings.TrimSpace(string(entry.ActorID)),
			Notes:   entry.Notes,
		})
	}
	return doc
}

func decodeWorkOrderDocument(id string, tenant domain.TenantID, doc workOrderDocument) domain.WorkOrder {
	order := domain.WorkOrder{
		ID:                domain.WorkOrderID(strings.TrimSpace(id)),
		TenantID:          tenant,
		Number:            doc.Number,
		Priority:          domain.Priority(doc.Priority),
		Category:          doc.Category,
		Source:            domain.WorkOrderSource(doc.Source),
		Status:            domain.WorkOrderStatus(doc.Status),
		Title:             doc.Title,
		Description:       doc.Description,
		Location:          doc.Location,
		EntryRequired:     doc.EntryRequired,
		EntryInstructions: doc.EntryInstructions,
		EntryPermitted:    doc.EntryPermitted,
		ScheduledDate:     normalizeTimePointer(doc.ScheduledDate),
		ScheduledSlot:     doc.ScheduledSlot,
		Escalated:         doc.Escalated,
		CompletionNotes:   doc.CompletionNotes,
		Feedback:          doc.Feedback,
		PropertyRef: domain.WorkOrderPropertyRef{
			Property: domain.PropertyID(doc.Property.PropertyID),
		},
		SLA: domain.SLARecord{
			SubmittedAt:        doc.SLA.SubmittedAt,
			ResponseDueAt:      doc.SLA.ResponseDueAt,
			ResolutionDueAt:    doc.SLA.ResolutionDueAt,
			ResponseBreached:   doc.SLA.ResponseBreached,
			ResolutionBreached: doc.SLA.ResolutionBreached,
			PausedAt:           normalizeTimePointer(doc.SLA.PausedAt),
			PausedTotal:        time.Duration(doc.SLA.PausedTotalSeconds) * time.Second,
			ResolvedAt:         normalizeTimePointer(doc.SLA.ResolvedAt),
		},
		Audit: domain.Audit{
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
			CreatedBy: domain.UserID(doc.CreatedBy),
			UpdatedBy: domain.UserID(doc.UpdatedBy),
		},
	}
	if doc.Property.UnitID != "" {
		unit := domain.UnitID(doc.Property.UnitID)
		order.PropertyRef.Unit = &unit
	}
	if doc.Property.CustomerID != "" {
		customer := domain.UserID(doc.Property.CustomerID)
		order.PropertyRef.Customer = &customer
	}
	if doc.VendorID != "" {
		vendor := domain.VendorID(doc.VendorID)
		order.VendorID = &vendor
	}
	if doc.AssignedTo != "" {
		assignee := domain.UserID(doc.AssignedTo)
		order.AssignedTo = &assignee
	}
	if doc.ActualCost != nil {
		order.ActualCost = &domain.Money{Amount: doc.ActualCost.Amount, Currency: doc.ActualCost.Currency}
	}
	if doc.Rating != nil {
		rating := *doc.Rating
		order.Rating = &rating
	}
	for _, entry := range doc.Timeline {
		order.Timeline = append(order.Timeline, domain.TimelineEntry{
			At:      entry.At,
			Action:  entry.Action,
			Status:  domain.WorkOrderStatus(entry.Status),
			ActorID: domain.UserID(entry.ActorID),
			Notes:   entry.Notes,
		})
	}
	for _, attachment := range doc.Attachments {
		order.Attachments = append(order.Attachments, domain.Attachment{
			Type:        attachment.Type,
			URL:         attachment.URL,
			Description: attachment.Description,
		})
	}
	return order
}

func tenantCollectionPath(tenant domain.TenantID, collection string) (string, error) {
	id := strings.TrimSpace(string(tenant))
	if id == "" {
		return "", errors.New("repository: tenant id is required")
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("repository: invalid tenant id %q", id)
	}
	return fmt.Sprintf("tenants/%s/%s", id, collection), nil
}

func statusStrings(statuses []domain.WorkOrderStatus) []string {
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

func priorityStrings(priorities []domain.Priority) []string {
	if len(priorities) == 0 {
		return nil
	}
	values := make([]string, 0, len(priorities))
	for _, priority := range priorities {
		if trimmed := strings.TrimSpace(string(priority)); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func applyInFilter(q firestore.Query, field string, values []string) firestore.Query {
	switch len(values) {
	case 0:
		return q
	case 1:
		return q.Where(field, "==", values[0])
	default:
		// Firestore in clause supports up to 10 values.
		if len(values) > 10 {
			values = values[:10]
		}
		return q.Where(field, "in", values)
	}
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	ts := value.UTC()
	return &ts
}

func encodeListToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}
