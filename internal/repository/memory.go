package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lettingworks/tenancy-admin/internal/domain"
)

// MemoryStore is a map-backed Store used by tests and local tooling. InTx
// takes a snapshot up front and restores it when fn fails, matching the
// rollback semantics of the Postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[int64]domain.User
	tenants   map[int64]domain.Tenant
	tenancies map[int64]domain.Tenancy
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]domain.User),
		tenants:   make(map[int64]domain.Tenant),
		tenancies: make(map[int64]domain.Tenancy),
	}
}

// Repos returns repositories operating directly on the store.
func (s *MemoryStore) Repos() Repos {
	return Repos{
		Users:     &memoryUserRepo{store: s},
		Tenants:   &memoryTenantRepo{store: s},
		Tenancies: &memoryTenancyRepo{store: s},
	}
}

// InTx runs fn and discards all changes when it returns an error.
func (s *MemoryStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.users = snapshot.users
		s.tenants = snapshot.tenants
		s.tenancies = snapshot.tenancies
		s.mu.Unlock()
		return err
	}
	return nil
}

// SeedTenancy inserts a tenancy directly, bypassing the repositories.
func (s *MemoryStore) SeedTenancy(tenancy domain.Tenancy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenancies[tenancy.ID] = tenancy
}

// SeedUser inserts a user directly.
func (s *MemoryStore) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// SeedTenant inserts a tenant directly.
func (s *MemoryStore) SeedTenant(tenant domain.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.ID] = tenant
}

// UserCount reports the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// TenantCount reports the number of stored tenants.
func (s *MemoryStore) TenantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tenants)
}

type memorySnapshot struct {
	users     map[int64]domain.User
	tenants   map[int64]domain.Tenant
	tenancies map[int64]domain.Tenancy
}

func (s *MemoryStore) snapshotLocked() memorySnapshot {
	snap := memorySnapshot{
		users:     make(map[int64]domain.User, len(s.users)),
		tenants:   make(map[int64]domain.Tenant, len(s.tenants)),
		tenancies: make(map[int64]domain.Tenancy, len(s.tenancies)),
	}
	for id, u := range s.users {
		snap.users[id] = u
	}
	for id, t := range s.tenants {
		snap.tenants[id] = t
	}
	for id, t := range s.tenancies {
		snap.tenancies[id] = t
	}
	return snap
}

type memoryUserRepo struct {
	store *MemoryStore
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, fmt.Errorf("get user by email: %w", pgx.ErrNoRows)
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("get user by id: %w", pgx.ErrNoRows)
	}
	return user, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.emailTakenLocked(user.Email, user.ID) {
		return domain.User{}, fmt.Errorf("create user: %w", ErrDuplicateEmail)
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return domain.User{}, fmt.Errorf("update user: %w", pgx.ErrNoRows)
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return domain.User{}, fmt.Errorf("update user: %w", ErrDuplicateEmail)
	}
	user.UpdatedAt = time.Now().UTC()
	r.store.users[user.ID] = user
	return user, nil
}

// emailTakenLocked mirrors the unique lower(email) index.
func (r *memoryUserRepo) emailTakenLocked(email string, selfID int64) bool {
	for _, other := range r.store.users {
		if other.ID != selfID && strings.EqualFold(other.Email, email) {
			return true
		}
	}
	return false
}

type memoryTenantRepo struct {
	store *MemoryStore
}

func (r *memoryTenantRepo) GetByID(ctx context.Context, id int64) (domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenant, ok := r.store.tenants[id]
	if !ok {
		return domain.Tenant{}, fmt.Errorf("get tenant by id: %w", pgx.ErrNoRows)
	}
	return tenant, nil
}

func (r *memoryTenantRepo) GetByUserAndTenancy(ctx context.Context, userID, tenancyID int64) (domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tenant := range r.store.tenants {
		if tenant.UserID == userID && tenant.TenancyID == tenancyID {
			return tenant, nil
		}
	}
	return domain.Tenant{}, fmt.Errorf("get tenant by user and tenancy: %w", pgx.ErrNoRows)
}

func (r *memoryTenantRepo) CountByTenancy(ctx context.Context, tenancyID int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, tenant := range r.store.tenants {
		if tenant.TenancyID == tenancyID {
			count++
		}
	}
	return count, nil
}

func (r *memoryTenantRepo) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	r.store.tenants[tenant.ID] = tenant
	return tenant, nil
}

func (r *memoryTenantRepo) Update(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tenants[tenant.ID]; !ok {
		return domain.Tenant{}, fmt.Errorf("update tenant: %w", pgx.ErrNoRows)
	}
	tenant.UpdatedAt = time.Now().UTC()
	r.store.tenants[tenant.ID] = tenant
	return tenant, nil
}

func (r *memoryTenantRepo) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tenants[id]; !ok {
		return fmt.Errorf("delete tenant: %w", pgx.ErrNoRows)
	}
	delete(r.store.tenants, id)
	return nil
}

type memoryTenancyRepo struct {
	store *MemoryStore
}

func (r *memoryTenancyRepo) GetByID(ctx context.Context, id int64) (domain.Tenancy, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenancy, ok := r.store.tenancies[id]
	if !ok {
		return domain.Tenancy{}, fmt.Errorf("get tenancy: %w", pgx.ErrNoRows)
	}
	return tenancy, nil
}

func (r *memoryTenancyRepo) Create(ctx context.Context, tenancy domain.Tenancy) (domain.Tenancy, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	tenancy.CreatedAt = now
	tenancy.UpdatedAt = now
	r.store.tenancies[tenancy.ID] = tenancy
	return tenancy, nil
}

func (r *memoryTenancyRepo) SetLeadTenant(ctx context.Context, tenancyID, tenantID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tenancy, ok := r.store.tenancies[tenancyID]
	if !ok {
		return fmt.Errorf("set lead tenant: %w", pgx.ErrNoRows)
	}
	lead := tenantID
	tenancy.LeadTenantID = &lead
	tenancy.UpdatedAt = time.Now().UTC()
	r.store.tenancies[tenancyID] = tenancy
	return nil
}
