package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/lettingworks/tenancy-admin/internal/domain"
	"github.com/lettingworks/tenancy-admin/internal/repository"
)

func TestInTxCommitsOnSuccess(t *testing.T) {
	store := repository.NewMemoryStore()

	err := store.InTx(context.Background(), func(r repository.Repos) error {
		_, err := r.Users.Create(context.Background(), domain.User{ID: 1, Email: "a@example.com"})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.UserCount())
}

func TestInTxRollsBackOnError(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedUser(domain.User{ID: 1, Email: "a@example.com", FirstName: "Before"})

	sentinel := errors.New("boom")
	err := store.InTx(context.Background(), func(r repository.Repos) error {
		if _, err := r.Users.Update(context.Background(), domain.User{ID: 1, Email: "a@example.com", FirstName: "After"}); err != nil {
			return err
		}
		if _, err := r.Tenants.Create(context.Background(), domain.Tenant{ID: 2, TenancyID: 1, UserID: 1}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	user, err := store.Repos().Users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Before", user.FirstName)
	require.Equal(t, 0, store.TenantCount())
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedUser(domain.User{ID: 1, Email: "Sam@Example.com", PasswordHash: "x"})

	user, err := store.Repos().Users.GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
}

func TestMissingRowsReportNoRows(t *testing.T) {
	repos := repository.NewMemoryStore().Repos()
	ctx := context.Background()

	_, err := repos.Users.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	_, err = repos.Tenants.GetByID(ctx, 1)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	_, err = repos.Tenancies.GetByID(ctx, 1)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	err = repos.Tenants.Delete(ctx, 1)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	err = repos.Tenancies.SetLeadTenant(ctx, 1, 2)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUserWritesRejectDuplicateEmail(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedUser(domain.User{ID: 1, Email: "a@example.com", PasswordHash: "x"})
	store.SeedUser(domain.User{ID: 2, Email: "b@example.com", PasswordHash: "x"})
	repos := store.Repos()
	ctx := context.Background()

	_, err := repos.Users.Create(ctx, domain.User{ID: 3, Email: "A@Example.com"})
	require.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = repos.Users.Update(ctx, domain.User{ID: 2, Email: "a@example.com"})
	require.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = repos.Users.Update(ctx, domain.User{ID: 1, Email: "a@example.com", FirstName: "Same"})
	require.NoError(t, err)
}

func TestSetLeadTenant(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedTenancy(domain.Tenancy{ID: 1, InstructionID: 7})

	require.NoError(t, store.Repos().Tenancies.SetLeadTenant(context.Background(), 1, 2))

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, tenancy.LeadTenantID)
	require.Equal(t, int64(2), *tenancy.LeadTenantID)
	require.True(t, tenancy.IsLead(2))
	require.False(t, tenancy.IsLead(3))
}
