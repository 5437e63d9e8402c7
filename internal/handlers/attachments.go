package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/platform/httpx"
	"github.com/propstack/maintenance/internal/platform/storage"
	"github.com/propstack/maintenance/internal/services"
)

const attachmentMaxUploadBytes = 10 << 20

var attachmentContentTypes = []string{"image/*", "application/pdf"}

// AttachmentHandlers issues signed URLs for work order attachment uploads and
// downloads. Objects live in the attachments bucket under a per-tenant prefix;
// the work order must exist before a URL is issued.
type AttachmentHandlers struct {
	service services.MaintenanceService
	client  *storage.Client
	bucket  string
	ttl     time.Duration
}

// NewAttachmentHandlers constructs attachment URL handlers.
func NewAttachmentHandlers(service services.MaintenanceService, client *storage.Client, bucket string, ttl time.Duration) *AttachmentHandlers {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AttachmentHandlers{service: service, client: client, bucket: bucket, ttl: ttl}
}

// Routes registers the attachment endpoints on the work order router group.
func (h *AttachmentHandlers) Routes(r chi.Router) {
	r.Post("/{workOrderID}/attachments:upload-url", h.uploadURL)
	r.Post("/{workOrderID}/attachments:download-url", h.downloadURL)
}

type attachmentURLPayload struct {
	Type        string `json:"type"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	ContentMD5  string `json:"content_md5,omitempty"`
}

type attachmentURLResponse struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	ExpiresAt string            `json:"expires_at"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func (h *AttachmentHandlers) uploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload attachmentURLPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	object, ok := h.objectPath(ctx, w, r, op, payload)
	if !ok {
		return
	}
	result, err := h.client.SignedURL(ctx, h.bucket, object, storage.SignedURLOptions{
		Upload: &storage.UploadOptions{
			Method:              http.MethodPut,
			ContentType:         payload.ContentType,
			ContentMD5:          payload.ContentMD5,
			AllowedContentTypes: attachmentContentTypes,
			MaxSize:             attachmentMaxUploadBytes,
			ExpiresIn:           h.ttl,
		},
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", err.Error(), http.StatusBadRequest))
		return
	}
	writeJSONResponse(w, http.StatusOK, toAttachmentURLResponse(result))
}

func (h *AttachmentHandlers) downloadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload attachmentURLPayload
	if err := decodeJSONBody(r, workOrderMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	object, ok := h.objectPath(ctx, w, r, op, payload)
	if !ok {
		return
	}
	result, err := h.client.SignedURL(ctx, h.bucket, object, storage.SignedURLOptions{
		Download: &storage.DownloadOptions{
			Method:    http.MethodGet,
			ExpiresIn: h.ttl,
		},
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", err.Error(), http.StatusBadRequest))
		return
	}
	writeJSONResponse(w, http.StatusOK, toAttachmentURLResponse(result))
}

func (h *AttachmentHandlers) objectPath(ctx context.Context, w http.ResponseWriter, r *http.Request, op services.OperationContext, payload attachmentURLPayload) (string, bool) {
	purpose, ok := attachmentPurpose(payload.Type)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "type must be photo, invoice, or quote", http.StatusBadRequest))
		return "", false
	}
	id := domain.WorkOrderID(chi.URLParam(r, "workOrderID"))
	if _, err := h.service.GetWorkOrder(ctx, op.Tenant, id); err != nil {
		writeMaintenanceError(ctx, w, err)
		return "", false
	}
	object, err := storage.BuildObjectPath(purpose, storage.PathParams{
		TenantID:    op.Tenant.String(),
		WorkOrderID: id.String(),
		FileName:    payload.FileName,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", err.Error(), http.StatusBadRequest))
		return "", false
	}
	return object, true
}

func attachmentPurpose(value string) (storage.AssetPurpose, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "photo":
		return storage.PurposeAttachmentPhoto, true
	case "invoice":
		return storage.PurposeAttachmentInvoice, true
	case "quote":
		return storage.PurposeAttachmentQuote, true
	}
	return "", false
}

func toAttachmentURLResponse(result storage.SignedURLResult) attachmentURLResponse {
	return attachmentURLResponse{
		URL:       result.URL,
		Method:    result.Method,
		ExpiresAt: formatTime(result.ExpiresAt),
		Headers:   result.Headers,
	}
}
