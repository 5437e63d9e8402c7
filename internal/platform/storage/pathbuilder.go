package storage

import (
	"fmt"
	"strings"
	"sync"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	// PurposeAttachmentPhoto covers before/after photos on a work order.
	PurposeAttachmentPhoto AssetPurpose = "attachment-photo"
	// PurposeAttachmentInvoice covers vendor invoices attached at completion.
	PurposeAttachmentInvoice AssetPurpose = "attachment-invoice"
	// PurposeAttachmentQuote covers vendor quotes attached during triage.
	PurposeAttachmentQuote AssetPurpose = "attachment-quote"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	TenantID    string
	WorkOrderID string
	FileName    string
}

// PathBuilder composes the object path for a given asset purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposeAttachmentPhoto:   attachmentPathBuilder("photos"),
		PurposeAttachmentInvoice: attachmentPathBuilder("invoices"),
		PurposeAttachmentQuote:   attachmentPathBuilder("quotes"),
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

func attachmentPathBuilder(folder string) PathBuilder {
	return func(params PathParams) (string, error) {
		tenantID, err := validateSegment("tenantID", params.TenantID)
		if err != nil {
			return "", err
		}
		workOrderID, err := validateSegment("workOrderID", params.WorkOrderID)
		if err != nil {
			return "", err
		}
		fileName, err := validateFileName(params.FileName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("tenants/%s/work-orders/%s/%s/%s", tenantID, workOrderID, folder, fileName), nil
	}
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
