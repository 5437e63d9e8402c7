package domain

// VendorStatus enumerates lifecycle states of a service-provider record.
// Only active vendors are eligible for assignment.
type VendorStatus string

const (
	// VendorStatusActive marks vendors eligible for new assignments.
	VendorStatusActive VendorStatus = "active"
	// VendorStatusInactive marks vendors that stopped taking work.
	VendorStatusInactive VendorStatus = "inactive"
	// VendorStatusProbation marks vendors under performance review.
	VendorStatusProbation VendorStatus = "probation"
	// VendorStatusSuspended marks vendors temporarily barred from assignment.
	VendorStatusSuspended VendorStatus = "suspended"
	// VendorStatusBlacklisted marks vendors permanently barred from assignment.
	VendorStatusBlacklisted VendorStatus = "blacklisted"
)

// ValidVendorStatus reports whether the value is a defined vendor status.
func ValidVendorStatus(status VendorStatus) bool {
	switch status {
	case VendorStatusActive, VendorStatusInactive, VendorStatusProbation,
		VendorStatusSuspended, VendorStatusBlacklisted:
		return true
	}
	return false
}

// VendorContact is a named phone/email contact on a vendor record.
type VendorContact struct {
	Name             string
	Phone            string
	Email            string
	EmergencyContact bool
}

// RateCard prices one maintenance category for a vendor.
type RateCard struct {
	Category            string
	HourlyRate          Money
	MinimumCharge       Money
	EmergencyMultiplier float64
}

// VendorMetrics accumulates performance data from every completed job.
// AverageRating is a running mean over rated completions; ReopenRate is the
// fraction (0..1) of completed jobs that were reopened; SLAComplianceRate is
// the percentage (0..100) of completions inside the resolution deadline.
type VendorMetrics struct {
	TotalJobs            int
	CompletedJobs        int
	RatedJobs            int
	ReopenedJobs         int
	CompletedWithinSLA   int
	AvgResponseMinutes   float64
	AvgResolutionMinutes float64
	ReopenRate           float64
	AverageRating        float64
	SLAComplianceRate    float64
}

// Vendor is a tenant-scoped service-provider record.
type Vendor struct {
	ID       VendorID
	TenantID TenantID
	// Code is the human-readable sequential identifier (VND-0001), assigned
	// once at creation.
	Code   string
	Name   string
	Status VendorStatus

	Specializations    []string
	ServiceAreas       []string
	EmergencyAvailable bool
	Preferred          bool

	Contacts  []VendorContact
	RateCards []RateCard
	Metrics   VendorMetrics

	LicenseNumber   string
	InsuranceExpiry string
	InsurancePolicy string
	Notes           string
	Audit           Audit
}

// Available reports whether the vendor can take an assignment right now.
func (v Vendor) Available() bool {
	return v.Status == VendorStatusActive
}
