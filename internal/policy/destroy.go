package policy

import "github.com/lettingworks/tenancy-admin/internal/domain"

// TenantRemoval is the default destroyability policy. A tenant cannot be
// removed while it is the sole occupant of its tenancy or the tenancy's
// current lead tenant; a lead must be reassigned first.
type TenantRemoval struct{}

// Destroyable reports whether the tenant may be deleted. occupants is the
// current number of tenants on the tenancy, including this one.
func (TenantRemoval) Destroyable(tenant domain.Tenant, tenancy domain.Tenancy, occupants int64) bool {
	if occupants <= 1 {
		return false
	}
	if tenancy.IsLead(tenant.ID) {
		return false
	}
	return true
}
