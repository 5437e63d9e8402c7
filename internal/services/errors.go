package services

import (
	"errors"

	domain "github.com/propstack/maintenance/internal/domain"
)

// Business-rule failures are a closed set. Every operation returns one of
// these sentinels (wrapped with context via %w) instead of panicking or
// leaking infrastructure errors; ErrorCode maps them to the canonical string
// codes exposed to callers.
var (
	// ErrWorkOrderNotFound indicates the work order does not exist in tenant scope.
	ErrWorkOrderNotFound = errors.New("maintenance: work order not found")
	// ErrVendorNotFound indicates the vendor does not exist in tenant scope.
	ErrVendorNotFound = errors.New("maintenance: vendor not found")
	// ErrVendorNotAvailable indicates the vendor exists but is not active.
	ErrVendorNotAvailable = errors.New("maintenance: vendor not available")
	// ErrNoAvailableVendor indicates auto-assignment found no eligible candidate.
	ErrNoAvailableVendor = errors.New("maintenance: no available vendor")
	// ErrInvalidWorkOrderData indicates required work order fields are missing or invalid.
	ErrInvalidWorkOrderData = errors.New("maintenance: invalid work order data")
	// ErrInvalidVendorData indicates required vendor fields are missing or invalid.
	ErrInvalidVendorData = errors.New("maintenance: invalid vendor data")
	// ErrWorkOrderNumberExists indicates a work order number collision.
	ErrWorkOrderNumberExists = errors.New("maintenance: work order number exists")
	// ErrVendorCodeExists indicates a vendor code collision.
	ErrVendorCodeExists = errors.New("maintenance: vendor code exists")
	// ErrCostApprovalRequired indicates the reported cost exceeds the approval threshold.
	ErrCostApprovalRequired = errors.New("maintenance: cost approval required")
)

// Canonical error codes returned to callers.
const (
	CodeWorkOrderNotFound       = "WORK_ORDER_NOT_FOUND"
	CodeVendorNotFound          = "VENDOR_NOT_FOUND"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeVendorNotAvailable      = "VENDOR_NOT_AVAILABLE"
	CodeNoAvailableVendor       = "NO_AVAILABLE_VENDOR"
	CodeSLAAlreadyPaused        = "SLA_ALREADY_PAUSED"
	CodeSLANotPaused            = "SLA_NOT_PAUSED"
	CodeInvalidWorkOrderData    = "INVALID_WORK_ORDER_DATA"
	CodeInvalidVendorData       = "INVALID_VENDOR_DATA"
	CodeWorkOrderNumberExists   = "WORK_ORDER_NUMBER_EXISTS"
	CodeVendorCodeExists        = "VENDOR_CODE_EXISTS"
	CodeCostApprovalRequired    = "COST_APPROVAL_REQUIRED"
)

// ErrorCode maps a business-rule failure to its canonical code. It returns
// the empty string for infrastructure errors, which are not part of the
// taxonomy and propagate to the transport layer as-is.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWorkOrderNotFound):
		return CodeWorkOrderNotFound
	case errors.Is(err, ErrVendorNotFound):
		return CodeVendorNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return CodeInvalidStatusTransition
	case errors.Is(err, ErrVendorNotAvailable):
		return CodeVendorNotAvailable
	case errors.Is(err, ErrNoAvailableVendor):
		return CodeNoAvailableVendor
	case errors.Is(err, domain.ErrSLAAlreadyPaused):
		return CodeSLAAlreadyPaused
	case errors.Is(err, domain.ErrSLANotPaused):
		return CodeSLANotPaused
	case errors.Is(err, ErrInvalidWorkOrderData):
		return CodeInvalidWorkOrderData
	case errors.Is(err, ErrInvalidVendorData):
		return CodeInvalidVendorData
	case errors.Is(err, ErrWorkOrderNumberExists):
		return CodeWorkOrderNumberExists
	case errors.Is(err, ErrVendorCodeExists):
		return CodeVendorCodeExists
	case errors.Is(err, ErrCostApprovalRequired):
		return CodeCostApprovalRequired
	}
	return ""
}
