package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/platform/httpx"
	"github.com/propstack/maintenance/internal/services"
)

// Caller identity headers. The platform gateway terminates authentication and
// forwards the resolved tenant and actor; this service trusts the headers.
const (
	headerTenantID      = "X-Tenant-ID"
	headerActorID       = "X-Actor-ID"
	headerCorrelationID = "X-Correlation-ID"
)

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

// operationContext builds the per-request caller context from the trusted
// gateway headers. The correlation id falls back to the request id so every
// emitted event is traceable to an HTTP request.
func operationContext(r *http.Request) (services.OperationContext, bool) {
	tenant := strings.TrimSpace(r.Header.Get(headerTenantID))
	if tenant == "" {
		return services.OperationContext{}, false
	}
	correlation := strings.TrimSpace(r.Header.Get(headerCorrelationID))
	if correlation == "" {
		correlation = strings.TrimSpace(middleware.GetReqID(r.Context()))
	}
	return services.OperationContext{
		Tenant:        domain.TenantID(tenant),
		ActorID:       domain.UserID(strings.TrimSpace(r.Header.Get(headerActorID))),
		CorrelationID: correlation,
	}, true
}

func writeMissingTenant(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("TENANT_REQUIRED", "X-Tenant-ID header is required", http.StatusBadRequest))
}

// writeMaintenanceError maps the closed business-rule error set to HTTP
// statuses; infrastructure errors fall through as opaque 500s.
func writeMaintenanceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	code := services.ErrorCode(err)
	switch code {
	case services.CodeWorkOrderNotFound, services.CodeVendorNotFound:
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusNotFound))
	case services.CodeInvalidStatusTransition,
		services.CodeVendorNotAvailable,
		services.CodeSLAAlreadyPaused,
		services.CodeSLANotPaused,
		services.CodeWorkOrderNumberExists,
		services.CodeVendorCodeExists,
		services.CodeCostApprovalRequired:
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusConflict))
	case services.CodeNoAvailableVendor:
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusUnprocessableEntity))
	case services.CodeInvalidWorkOrderData, services.CodeInvalidVendorData:
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("INTERNAL_ERROR", "failed to process request", http.StatusInternalServerError))
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeJSONBody(r *http.Request, limit int64, target any) error {
	data, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "request body is required", http.StatusBadRequest))
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "request body too large", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "invalid JSON payload", http.StatusBadRequest))
	}
}

func parseFilterValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePointer(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
