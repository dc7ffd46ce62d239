package repository

import (
	"context"
	"errors"

	"github.com/lettingworks/tenancy-admin/internal/domain"
)

// ErrDuplicateEmail reports a write that would give two users the same
// email, matching the unique lower(email) index on users.
var ErrDuplicateEmail = errors.New("email already taken")

// UserRepository persists platform users. Not-found is reported by wrapping
// pgx.ErrNoRows so callers can errors.Is against it. A write colliding on
// email wraps ErrDuplicateEmail.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
}

// TenantRepository persists tenancy memberships.
type TenantRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Tenant, error)
	GetByUserAndTenancy(ctx context.Context, userID, tenancyID int64) (domain.Tenant, error)
	CountByTenancy(ctx context.Context, tenancyID int64) (int64, error)
	Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	Update(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	Delete(ctx context.Context, id int64) error
}

// TenancyRepository exposes tenancy state. SetLeadTenant is the only mutation
// path for the lead pointer, which keeps lead exclusivity structural.
type TenancyRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Tenancy, error)
	Create(ctx context.Context, tenancy domain.Tenancy) (domain.Tenancy, error)
	SetLeadTenant(ctx context.Context, tenancyID, tenantID int64) error
}

// Repos groups the repositories visible inside one unit of work.
type Repos struct {
	Users     UserRepository
	Tenants   TenantRepository
	Tenancies TenancyRepository
}

// Store provides repository access and transactional execution. Every tenant
// mutation performs all of its writes inside a single InTx call; a non-nil
// error from fn rolls the whole unit back.
type Store interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}
