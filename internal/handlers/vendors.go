package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/platform/httpx"
	"github.com/propstack/maintenance/internal/services"
)

const (
	vendorMaxBodyBytes = 64 * 1024
	vendorDefaultPage  = 20
	vendorMaxPage      = 100
)

// VendorHandlers exposes vendor records and their performance metrics over HTTP.
type VendorHandlers struct {
	service services.VendorService
}

// NewVendorHandlers constructs handlers backed by the given service.
func NewVendorHandlers(service services.VendorService) *VendorHandlers {
	return &VendorHandlers{service: service}
}

// Routes registers the vendor endpoints on the router group.
func (h *VendorHandlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/by-code/{vendorCode}", h.getByCode)
	r.Get("/{vendorID}", h.get)
	r.Patch("/{vendorID}", h.update)
}

type vendorContactPayload struct {
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	EmergencyContact bool   `json:"emergency_contact,omitempty"`
}

type rateCardPayload struct {
	Category            string       `json:"category"`
	HourlyRate          moneyPayload `json:"hourly_rate"`
	MinimumCharge       moneyPayload `json:"minimum_charge"`
	EmergencyMultiplier float64      `json:"emergency_multiplier,omitempty"`
}

type createVendorPayload struct {
	Name               string                 `json:"name"`
	Specializations    []string               `json:"specializations"`
	ServiceAreas       []string               `json:"service_areas,omitempty"`
	EmergencyAvailable bool                   `json:"emergency_available,omitempty"`
	Preferred          bool                   `json:"preferred,omitempty"`
	Contacts           []vendorContactPayload `json:"contacts,omitempty"`
	RateCards          []rateCardPayload      `json:"rate_cards,omitempty"`
	LicenseNumber      string                 `json:"license_number,omitempty"`
	InsurancePolicy    string                 `json:"insurance_policy,omitempty"`
	InsuranceExpiry    string                 `json:"insurance_expiry,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
}

type updateVendorPayload struct {
	Name               *string                `json:"name,omitempty"`
	Status             *string                `json:"status,omitempty"`
	Specializations    []string               `json:"specializations,omitempty"`
	ServiceAreas       []string               `json:"service_areas,omitempty"`
	EmergencyAvailable *bool                  `json:"emergency_available,omitempty"`
	Preferred          *bool                  `json:"preferred,omitempty"`
	Contacts           []vendorContactPayload `json:"contacts,omitempty"`
	RateCards          []rateCardPayload      `json:"rate_cards,omitempty"`
	Notes              *string                `json:"notes,omitempty"`
}

type vendorMetricsResponse struct {
	TotalJobs            int     `json:"total_jobs"`
	CompletedJobs        int     `json:"completed_jobs"`
	RatedJobs            int     `json:"rated_jobs"`
	ReopenedJobs         int     `json:"reopened_jobs"`
	CompletedWithinSLA   int     `json:"completed_within_sla"`
	AvgResponseMinutes   float64 `json:"avg_response_minutes"`
	AvgResolutionMinutes float64 `json:"avg_resolution_minutes"`
	ReopenRate           float64 `json:"reopen_rate"`
	AverageRating        float64 `json:"average_rating"`
	SLAComplianceRate    float64 `json:"sla_compliance_rate"`
}

type vendorResponse struct {
	ID                 string                 `json:"id"`
	Code               string                 `json:"code"`
	Name               string                 `json:"name"`
	Status             string                 `json:"status"`
	Specializations    []string               `json:"specializations"`
	ServiceAreas       []string               `json:"service_areas,omitempty"`
	EmergencyAvailable bool                   `json:"emergency_available"`
	Preferred          bool                   `json:"preferred"`
	Contacts           []vendorContactPayload `json:"contacts,omitempty"`
	RateCards          []rateCardPayload      `json:"rate_cards,omitempty"`
	Metrics            vendorMetricsResponse  `json:"metrics"`
	LicenseNumber      string                 `json:"license_number,omitempty"`
	InsurancePolicy    string                 `json:"insurance_policy,omitempty"`
	InsuranceExpiry    string                 `json:"insurance_expiry,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	CreatedAt          string                 `json:"created_at"`
	UpdatedAt          string                 `json:"updated_at"`
}

type vendorListResponse struct {
	Items         []vendorResponse `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

func (h *VendorHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload createVendorPayload
	if err := decodeJSONBody(r, vendorMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.CreateVendorCommand{
		Op:                 op,
		Name:               payload.Name,
		Specializations:    payload.Specializations,
		ServiceAreas:       payload.ServiceAreas,
		EmergencyAvailable: payload.EmergencyAvailable,
		Preferred:          payload.Preferred,
		Contacts:           toDomainContacts(payload.Contacts),
		RateCards:          toDomainRateCards(payload.RateCards),
		LicenseNumber:      payload.LicenseNumber,
		InsurancePolicy:    payload.InsurancePolicy,
		InsuranceExpiry:    payload.InsuranceExpiry,
		Notes:              payload.Notes,
	}
	vendor, err := h.service.CreateVendor(ctx, cmd)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, toVendorResponse(vendor))
}

func (h *VendorHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	var payload updateVendorPayload
	if err := decodeJSONBody(r, vendorMaxBodyBytes, &payload); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cmd := services.UpdateVendorCommand{
		Op:                 op,
		ID:                 domain.VendorID(chi.URLParam(r, "vendorID")),
		Name:               payload.Name,
		Specializations:    payload.Specializations,
		ServiceAreas:       payload.ServiceAreas,
		EmergencyAvailable: payload.EmergencyAvailable,
		Preferred:          payload.Preferred,
		Contacts:           toDomainContacts(payload.Contacts),
		RateCards:          toDomainRateCards(payload.RateCards),
		Notes:              payload.Notes,
	}
	if payload.Status != nil {
		status := domain.VendorStatus(strings.TrimSpace(*payload.Status))
		cmd.Status = &status
	}
	vendor, err := h.service.UpdateVendor(ctx, cmd)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toVendorResponse(vendor))
}

func (h *VendorHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	id := domain.VendorID(chi.URLParam(r, "vendorID"))
	vendor, err := h.service.GetVendor(ctx, op.Tenant, id)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toVendorResponse(vendor))
}

func (h *VendorHandlers) getByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	code := chi.URLParam(r, "vendorCode")
	vendor, err := h.service.GetVendorByCode(ctx, op.Tenant, code)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toVendorResponse(vendor))
}

func (h *VendorHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, ok := operationContext(r)
	if !ok {
		writeMissingTenant(ctx, w)
		return
	}
	query := r.URL.Query()
	filter := services.VendorListFilter{
		Specialization: strings.TrimSpace(query.Get("specialization")),
		Pagination:     parsePagination(r, vendorDefaultPage, vendorMaxPage),
	}
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.VendorStatus(raw)
		if !domain.ValidVendorStatus(status) {
			httpx.WriteError(ctx, w, httpx.NewError("INVALID_REQUEST", "unknown status filter: "+raw, http.StatusBadRequest))
			return
		}
		filter.Status = append(filter.Status, status)
	}
	if raw := strings.TrimSpace(query.Get("preferred")); raw != "" {
		preferred := raw == "true"
		filter.Preferred = &preferred
	}
	page, err := h.service.ListVendors(ctx, op.Tenant, filter)
	if err != nil {
		writeMaintenanceError(ctx, w, err)
		return
	}
	items := make([]vendorResponse, 0, len(page.Items))
	for _, vendor := range page.Items {
		items = append(items, toVendorResponse(vendor))
	}
	writeJSONResponse(w, http.StatusOK, vendorListResponse{Items: items, NextPageToken: page.NextPageToken})
}

func toDomainContacts(payloads []vendorContactPayload) []domain.VendorContact {
	if len(payloads) == 0 {
		return nil
	}
	contacts := make([]domain.VendorContact, 0, len(payloads))
	for _, c := range payloads {
		contacts = append(contacts, domain.VendorContact{
			Name:             c.Name,
			Phone:            c.Phone,
			Email:            c.Email,
			EmergencyContact: c.EmergencyContact,
		})
	}
	return contacts
}

func toDomainRateCards(payloads []rateCardPayload) []domain.RateCard {
	if len(payloads) == 0 {
		return nil
	}
	cards := make([]domain.RateCard, 0, len(payloads))
	for _, c := range payloads {
		cards = append(cards, domain.RateCard{
			Category:            c.Category,
			HourlyRate:          domain.Money{Amount: c.HourlyRate.Amount, Currency: c.HourlyRate.Currency},
			MinimumCharge:       domain.Money{Amount: c.MinimumCharge.Amount, Currency: c.MinimumCharge.Currency},
			EmergencyMultiplier: c.EmergencyMultiplier,
		})
	}
	return cards
}

func toVendorResponse(vendor services.Vendor) vendorResponse {
	out := vendorResponse{
		ID:                 vendor.ID.String(),
		Code:               vendor.Code,
		Name:               vendor.Name,
		Status:             string(vendor.Status),
		Specializations:    vendor.Specializations,
		ServiceAreas:       vendor.ServiceAreas,
		EmergencyAvailable: vendor.EmergencyAvailable,
		Preferred:          vendor.Preferred,
		Metrics: vendorMetricsResponse{
			TotalJobs:            vendor.Metrics.TotalJobs,
			CompletedJobs:        vendor.Metrics.CompletedJobs,
			RatedJobs:            vendor.Metrics.RatedJobs,
			ReopenedJobs:         vendor.Metrics.ReopenedJobs,
			CompletedWithinSLA:   vendor.Metrics.CompletedWithinSLA,
			AvgResponseMinutes:   vendor.Metrics.AvgResponseMinutes,
			AvgResolutionMinutes: vendor.Metrics.AvgResolutionMinutes,
			ReopenRate:           vendor.Metrics.ReopenRate,
			AverageRating:        vendor.Metrics.AverageRating,
			SLAComplianceRate:    vendor.Metrics.SLAComplianceRate,
		},
		LicenseNumber:   vendor.LicenseNumber,
		InsurancePolicy: vendor.InsurancePolicy,
		InsuranceExpiry: vendor.InsuranceExpiry,
		Notes:           vendor.Notes,
		CreatedAt:       formatTime(vendor.Audit.CreatedAt),
		UpdatedAt:       formatTime(vendor.Audit.UpdatedAt),
	}
	for _, c := range vendor.Contacts {
		out.Contacts = append(out.Contacts, vendorContactPayload{
			Name:             c.Name,
			Phone:            c.Phone,
			Email:            c.Email,
			EmergencyContact: c.EmergencyContact,
		})
	}
	for _, c := range vendor.RateCards {
		out.RateCards = append(out.RateCards, rateCardPayload{
			Category:            c.Category,
			HourlyRate:          moneyPayload{Amount: c.HourlyRate.Amount, Currency: c.HourlyRate.Currency},
			MinimumCharge:       moneyPayload{Amount: c.MinimumCharge.Amount, Currency: c.MinimumCharge.Currency},
			EmergencyMultiplier: c.EmergencyMultiplier,
		})
	}
	return out
}
