package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propstack/maintenance/internal/services"
)

// InternalHandlers exposes scheduler-invoked operations. The /internal group
// is expected to sit behind infrastructure-level access control.
type InternalHandlers struct {
	service services.MaintenanceService
}

// NewInternalHandlers constructs the internal operations handlers.
func NewInternalHandlers(service services.MaintenanceService) *InternalHandlers {
	return &InternalHandlers{service: service}
}

// Routes registers the internal endpoints on the router group.
func (h *InternalHandlers) Routes(r chi.Router) {
	r.Post("/sla:sweep", h.sweep)
}

// sweep runs one SLA breach scan for the tenant named in the header. The
// scheduler invokes it once per tenant per interval; re-running it is safe
// because breach flags only flip once.
func (h *InternalHandlers) sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	result, err := h.service.CheckSLABreaches(ctx, op.Tenant)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sweepResponse{
		Scanned:            result.Scanned,
		ResponseBreaches:   result.ResponseBreaches,
		ResolutionBreaches: result.ResolutionBreaches,
	})
}
