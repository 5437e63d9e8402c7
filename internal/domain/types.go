package domain

import (
	"strings"
	"time"
)

// TenantID scopes every entity to a single tenant. No cross-tenant read or
// write is ever legal; repositories enforce the scope filter.
type TenantID string

// WorkOrderID identifies a work order within its tenant.
type WorkOrderID string

// VendorID identifies a service-provider record within its tenant.
type VendorID string

// PropertyID references a property managed by the platform.
type PropertyID string

// UnitID references a unit inside a property.
type UnitID string

// UserID references a platform user (staff, customer, or system actor).
type UserID string

func (id TenantID) String() string    { return string(id) }
func (id WorkOrderID) String() string { return string(id) }
func (id VendorID) String() string    { return string(id) }
func (id PropertyID) String() string  { return string(id) }
func (id UnitID) String() string      { return string(id) }
func (id UserID) String() string      { return string(id) }

// Money represents a monetary amount in minor units of the given currency.
// All arithmetic stays in integers; there is no float currency math anywhere.
type Money struct {
	Amount   int64
	Currency string
}

// IsZero reports whether the amount is unset.
func (m Money) IsZero() bool {
	return m.Amount == 0 && strings.TrimSpace(m.Currency) == ""
}

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage wraps a page of results together with the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// Attachment links a stored file (photo, invoice, quote) to a work order.
type Attachment struct {
	Type        string
	URL         string
	Description string
}

// Audit captures creation and last-modification metadata shared by aggregates.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy UserID
	UpdatedBy UserID
}
