package domain

import "time"

// Tenancy is a rental agreement instance on one instruction. LeadTenantID is
// the single nullable pointer that encodes lead-tenant exclusivity: at most
// one tenant per tenancy can be lead, and assigning a new lead supersedes the
// previous one.
type Tenancy struct {
	ID            int64
	InstructionID int64
	LeadTenantID  *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLead reports whether the given tenant is the tenancy's current lead.
func (t Tenancy) IsLead(tenantID int64) bool {
	return t.LeadTenantID != nil && *t.LeadTenantID == tenantID
}
