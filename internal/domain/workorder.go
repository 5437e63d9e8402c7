package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// WorkOrderStatus enumerates the lifecycle states of a work order.
type WorkOrderStatus string

const (
	// WorkOrderStatusSubmitted is the initial state after intake.
	WorkOrderStatusSubmitted WorkOrderStatus = "submitted"
	// WorkOrderStatusTriaged indicates the request has been reviewed and classified.
	WorkOrderStatusTriaged WorkOrderStatus = "triaged"
	// WorkOrderStatusAssigned indicates a vendor and/or staff member owns the job.
	WorkOrderStatusAssigned WorkOrderStatus = "assigned"
	// WorkOrderStatusScheduled indicates a visit date and time slot are booked.
	WorkOrderStatusScheduled WorkOrderStatus = "scheduled"
	// WorkOrderStatusInProgress indicates work is underway on site.
	WorkOrderStatusInProgress WorkOrderStatus = "in_progress"
	// WorkOrderStatusPendingParts indicates work is blocked on materials.
	WorkOrderStatusPendingParts WorkOrderStatus = "pending_parts"
	// WorkOrderStatusCompleted indicates the vendor reported the job done.
	WorkOrderStatusCompleted WorkOrderStatus = "completed"
	// WorkOrderStatusVerified indicates the customer confirmed completion.
	WorkOrderStatusVerified WorkOrderStatus = "verified"
	// WorkOrderStatusCancelled is a terminal state reachable from any non-terminal one.
	WorkOrderStatusCancelled WorkOrderStatus = "cancelled"
)

// Priority classifies how quickly a work order must be handled.
type Priority string

const (
	// PriorityEmergency covers immediate-hazard requests (flood, gas, lockout).
	PriorityEmergency Priority = "emergency"
	// PriorityHigh covers urgent but non-hazardous requests.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority for routine repairs.
	PriorityMedium Priority = "medium"
	// PriorityLow covers cosmetic or deferrable requests.
	PriorityLow Priority = "low"
)

// WorkOrderSource records how a work order was raised.
type WorkOrderSource string

const (
	// SourceTenantReported marks requests submitted by the resident.
	SourceTenantReported WorkOrderSource = "tenant_reported"
	// SourceStaffCreated marks requests entered by property staff.
	SourceStaffCreated WorkOrderSource = "staff_created"
	// SourceInspection marks requests generated from inspection findings.
	SourceInspection WorkOrderSource = "inspection"
	// SourcePreventive marks requests generated from preventive maintenance plans.
	SourcePreventive WorkOrderSource = "preventive"
)

// ErrInvalidTransition is returned when a lifecycle operation is attempted from
// a status that does not permit it. The aggregate is left untouched.
var ErrInvalidTransition = errors.New("work order: invalid status transition")

// workOrderTransitions is the single source of truth for the lifecycle graph.
// Cancellation is handled separately because it is legal from every
// non-terminal state.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusSubmitted:    {WorkOrderStatusTriaged, WorkOrderStatusAssigned},
	WorkOrderStatusTriaged:      {WorkOrderStatusAssigned},
	WorkOrderStatusAssigned:     {WorkOrderStatusScheduled, WorkOrderStatusInProgress},
	WorkOrderStatusScheduled:    {WorkOrderStatusInProgress},
	WorkOrderStatusInProgress:   {WorkOrderStatusPendingParts, WorkOrderStatusCompleted},
	WorkOrderStatusPendingParts: {WorkOrderStatusInProgress, WorkOrderStatusCompleted},
	WorkOrderStatusCompleted:    {WorkOrderStatusVerified},
}

var terminalStatuses = []WorkOrderStatus{
	WorkOrderStatusCompleted,
	WorkOrderStatusVerified,
	WorkOrderStatusCancelled,
}

// openStatuses lists every state the SLA breach sweep scans.
var openStatuses = []WorkOrderStatus{
	WorkOrderStatusSubmitted,
	WorkOrderStatusTriaged,
	WorkOrderStatusAssigned,
	WorkOrderStatusScheduled,
	WorkOrderStatusInProgress,
	WorkOrderStatusPendingParts,
}

// ValidWorkOrderStatus reports whether the value is a defined lifecycle state.
func ValidWorkOrderStatus(status WorkOrderStatus) bool {
	switch status {
	case WorkOrderStatusSubmitted, WorkOrderStatusTriaged, WorkOrderStatusAssigned,
		WorkOrderStatusScheduled, WorkOrderStatusInProgress, WorkOrderStatusPendingParts,
		WorkOrderStatusCompleted, WorkOrderStatusVerified, WorkOrderStatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether the value is a defined priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle graph permits moving from one
// status to another.
func CanTransition(from, to WorkOrderStatus) bool {
	if to == WorkOrderStatusCancelled {
		return !IsTerminalStatus(from)
	}
	return slices.Contains(workOrderTransitions[from], to)
}

// IsTerminalStatus reports whether no further transitions are legal from status.
func IsTerminalStatus(status WorkOrderStatus) bool {
	return slices.Contains(terminalStatuses, status)
}

// OpenStatuses returns the non-terminal states, i.e. the sweep scan set.
func OpenStatuses() []WorkOrderStatus {
	return slices.Clone(openStatuses)
}

// TimelineEntry is one record of the append-only audit trail on a work order.
// Entries are never mutated or reordered.
type TimelineEntry struct {
	At      time.Time
	Action  string
	Status  WorkOrderStatus
	ActorID UserID
	Notes   string
}

// WorkOrder is the aggregate root of the maintenance domain.
type WorkOrder struct {
	ID       WorkOrderID
	TenantID TenantID
	// Number is the human-readable sequential identifier (WO-<year>-<seq>),
	// assigned once at creation and immutable thereafter.
	Number string

	Priority Priority
	Category string
	Source   WorkOrderSource
	Status   WorkOrderStatus

	Title       string
	Description string
	Location    string
	Attachments []Attachment

	PropertyRef WorkOrderPropertyRef
	VendorID    *VendorID
	AssignedTo  *UserID

	EntryRequired     bool
	EntryInstructions string
	EntryPermitted    bool

	ScheduledDate *time.Time
	ScheduledSlot string

	SLA       SLARecord
	Escalated bool

	CompletionNotes string
	ActualCost      *Money
	Rating          *int
	Feedback        string

	Timeline []TimelineEntry
	Audit    Audit
}

// WorkOrderPropertyRef groups the location associations of a work order.
// Property is required; unit and customer are optional refinements.
type WorkOrderPropertyRef struct {
	Property PropertyID
	Unit     *UnitID
	Customer *UserID
}

// Transition moves the work order to the target status, appending exactly one
// timeline entry and stamping the audit fields. It fails without mutation when
// the lifecycle graph forbids the move.
func (w *WorkOrder) Transition(to WorkOrderStatus, action string, actor UserID, now time.Time, notes string) error {
	if !CanTransition(w.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, w.Status, to)
	}
	w.Status = to
	w.AppendTimeline(action, actor, now, notes)
	return nil
}

// AppendTimeline records an audit-trail entry and updates the audit stamps.
// Used directly by overlay operations (escalation, SLA pause/resume) that do
// not change status.
func (w *WorkOrder) AppendTimeline(action string, actor UserID, now time.Time, notes string) {
	w.Timeline = append(w.Timeline, TimelineEntry{
		At:      now,
		Action:  action,
		Status:  w.Status,
		ActorID: actor,
		Notes:   notes,
	})
	w.Audit.UpdatedAt = now
	if actor != "" {
		w.Audit.UpdatedBy = actor
	}
}
