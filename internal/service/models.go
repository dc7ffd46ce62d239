package service

// CreateTenantRequest carries a staff submission attaching a person to a
// tenancy. The person is matched to an existing user by email or created.
// Nil name and phone fields leave an existing user's stored values alone;
// a new user still has to pass the required-field validation.
type CreateTenantRequest struct {
	TenancyID              int64
	Email                  string
	FirstName              *string
	LastName               *string
	Phone                  *string
	LeadTenant             bool
	PermittedOccupier      bool
	SkipFinancialReference bool
	SkipLandlordReference  bool
}

// UpdateTenantRequest updates an existing tenant and its linked user. Nil
// fields are left untouched; a false LeadTenant never clears an existing
// lead on the tenancy.
type UpdateTenantRequest struct {
	TenantID               int64
	Email                  *string
	FirstName              *string
	LastName               *string
	Phone                  *string
	LeadTenant             *bool
	PermittedOccupier      *bool
	SkipFinancialReference *bool
	SkipLandlordReference  *bool
}

// MutationResult is the success payload shared by create, update and remove.
type MutationResult struct {
	TenancyID    int64
	RedirectPath string
	Message      string
}
