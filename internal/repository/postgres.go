package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettingworks/tenancy-admin/internal/domain"
)

// Compile-time interface assertions.
var (
	_ Store             = (*PostgresStore)(nil)
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ TenantRepository  = (*PostgresTenantRepo)(nil)
	_ TenancyRepository = (*PostgresTenancyRepo)(nil)
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same repo code
// runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Repos returns autocommit repositories bound to the pool.
func (s *PostgresStore) Repos() Repos {
	return reposFor(s.pool)
}

// InTx runs fn against repositories bound to one transaction and commits only
// when fn returns nil.
func (s *PostgresStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(reposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func reposFor(db querier) Repos {
	return Repos{
		Users:     &PostgresUserRepo{db: db},
		Tenants:   &PostgresTenantRepo{db: db},
		Tenancies: &PostgresTenancyRepo{db: db},
	}
}

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db querier
}

const selectUserColumns = `id, email, first_name, last_name, phone, password_hash, created_at, updated_at`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, phone, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		user.ID, user.Email, user.FirstName, user.LastName, user.Phone, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", userWriteErr(err))
	}
	return user, nil
}

func (r *PostgresUserRepo) Update(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
		 SET email = $2, first_name = $3, last_name = $4, phone = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		user.ID, user.Email, user.FirstName, user.LastName, user.Phone)
	if err := row.Scan(&user.UpdatedAt); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", userWriteErr(err))
	}
	return user, nil
}

// userWriteErr folds a unique_violation on the email index into
// ErrDuplicateEmail.
func userWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEmail
	}
	return err
}

// PostgresTenantRepo implements TenantRepository.
type PostgresTenantRepo struct {
	db querier
}

const selectTenantColumns = `id, tenancy_id, user_id, name, email, phone,
permitted_occupier, skip_financial_reference, skip_landlord_reference, created_at, updated_at`

func (r *PostgresTenantRepo) GetByID(ctx context.Context, id int64) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectTenantColumns+` FROM tenants WHERE id = $1`, id)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("get tenant by id: %w", err)
	}
	return tenant, nil
}

func (r *PostgresTenantRepo) GetByUserAndTenancy(ctx context.Context, userID, tenancyID int64) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectTenantColumns+` FROM tenants WHERE user_id = $1 AND tenancy_id = $2`,
		userID, tenancyID)
	tenant, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("get tenant by user and tenancy: %w", err)
	}
	return tenant, nil
}

func (r *PostgresTenantRepo) CountByTenancy(ctx context.Context, tenancyID int64) (int64, error) {
	var count int64
	row := r.db.QueryRow(ctx, `SELECT count(*) FROM tenants WHERE tenancy_id = $1`, tenancyID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

func (r *PostgresTenantRepo) Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO tenants (id, tenancy_id, user_id, name, email, phone,
		 permitted_occupier, skip_financial_reference, skip_landlord_reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		tenant.ID, tenant.TenancyID, tenant.UserID, tenant.Name, tenant.Email, tenant.Phone,
		tenant.PermittedOccupier, tenant.SkipFinancialReference, tenant.SkipLandlordReference)
	if err := row.Scan(&tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return domain.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, nil
}

func (r *PostgresTenantRepo) Update(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE tenants
		 SET name = $2, email = $3, phone = $4,
		     permitted_occupier = $5, skip_financial_reference = $6, skip_landlord_reference = $7,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		tenant.ID, tenant.Name, tenant.Email, tenant.Phone,
		tenant.PermittedOccupier, tenant.SkipFinancialReference, tenant.SkipLandlordReference)
	if err := row.Scan(&tenant.UpdatedAt); err != nil {
		return domain.Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	return tenant, nil
}

func (r *PostgresTenantRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete tenant: %w", pgx.ErrNoRows)
	}
	return nil
}

// PostgresTenancyRepo implements TenancyRepository.
type PostgresTenancyRepo struct {
	db querier
}

func (r *PostgresTenancyRepo) GetByID(ctx context.Context, id int64) (domain.Tenancy, error) {
	var tenancy domain.Tenancy
	row := r.db.QueryRow(ctx,
		`SELECT id, instruction_id, lead_tenant_id, created_at, updated_at FROM tenancies WHERE id = $1`, id)
	if err := row.Scan(&tenancy.ID, &tenancy.InstructionID, &tenancy.LeadTenantID,
		&tenancy.CreatedAt, &tenancy.UpdatedAt); err != nil {
		return domain.Tenancy{}, fmt.Errorf("get tenancy: %w", err)
	}
	return tenancy, nil
}

func (r *PostgresTenancyRepo) Create(ctx context.Context, tenancy domain.Tenancy) (domain.Tenancy, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO tenancies (id, instruction_id) VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		tenancy.ID, tenancy.InstructionID)
	if err := row.Scan(&tenancy.CreatedAt, &tenancy.UpdatedAt); err != nil {
		return domain.Tenancy{}, fmt.Errorf("create tenancy: %w", err)
	}
	return tenancy, nil
}

func (r *PostgresTenancyRepo) SetLeadTenant(ctx context.Context, tenancyID, tenantID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenancies SET lead_tenant_id = $2, updated_at = now() WHERE id = $1`,
		tenancyID, tenantID)
	if err != nil {
		return fmt.Errorf("set lead tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set lead tenant: %w", pgx.ErrNoRows)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.Phone, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func scanTenant(row pgx.Row) (domain.Tenant, error) {
	var tenant domain.Tenant
	if err := row.Scan(&tenant.ID, &tenant.TenancyID, &tenant.UserID,
		&tenant.Name, &tenant.Email, &tenant.Phone,
		&tenant.PermittedOccupier, &tenant.SkipFinancialReference, &tenant.SkipLandlordReference,
		&tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}
