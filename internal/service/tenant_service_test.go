package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lettingworks/tenancy-admin/internal/domain"
	"github.com/lettingworks/tenancy-admin/internal/policy"
	"github.com/lettingworks/tenancy-admin/internal/repository"
	"github.com/lettingworks/tenancy-admin/internal/service"
	"github.com/lettingworks/tenancy-admin/internal/validate"
)

const tenancyID int64 = 100

func newTestService(t *testing.T, store repository.Store, dispatcher *recordingDispatcher, destroyPolicy service.DestroyPolicy) *service.TenantService {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	if destroyPolicy == nil {
		destroyPolicy = policy.TenantRemoval{}
	}
	return service.NewTenantService(store, node, dispatcher, destroyPolicy, zap.NewNop())
}

func seedTenancy(store *repository.MemoryStore) {
	store.SeedTenancy(domain.Tenancy{ID: tenancyID, InstructionID: 7})
}

func createRequest() service.CreateTenantRequest {
	return service.CreateTenantRequest{
		TenancyID: tenancyID,
		Email:     "sam@example.com",
		FirstName: strPtr("Sam"),
		LastName:  strPtr("Carter"),
		Phone:     strPtr("07123 456789"),
	}
}

func strPtr(s string) *string {
	return &s
}

func TestCreateNewUserAndTenant(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	result, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	require.Equal(t, "Sam's details have been added!", result.Message)
	require.Equal(t, "/admin/tenancies/100", result.RedirectPath)
	require.Equal(t, tenancyID, result.TenancyID)

	require.Equal(t, 1, store.UserCount())
	require.Equal(t, 1, store.TenantCount())

	repos := store.Repos()
	user, err := repos.Users.GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	require.Equal(t, "Sam", user.FirstName)
	require.NotEmpty(t, user.PasswordHash)

	tenant, err := repos.Tenants.GetByUserAndTenancy(context.Background(), user.ID, tenancyID)
	require.NoError(t, err)
	require.Equal(t, "Sam Carter", tenant.Name)
	require.Equal(t, user.Email, tenant.Email)
	require.Equal(t, user.Phone, tenant.Phone)

	require.Equal(t, []int64{tenancyID}, dispatcher.enqueued())
}

func TestCreateReusesUserByEmailCaseInsensitive(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	store.SeedUser(domain.User{ID: 55, Email: "sam@example.com", FirstName: "Samuel", PasswordHash: "x"})
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	req := createRequest()
	req.Email = "SAM@Example.COM"
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 1, store.UserCount())
	require.Equal(t, 1, store.TenantCount())

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "Sam", user.FirstName)
	require.Equal(t, "x", user.PasswordHash)
}

func TestCreateWithEmailOnlyKeepsExistingUserDetails(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	store.SeedUser(domain.User{
		ID:           55,
		Email:        "sam@example.com",
		FirstName:    "Sam",
		LastName:     "Carter",
		Phone:        "07123 456789",
		PasswordHash: "x",
	})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	result, err := svc.Create(context.Background(), service.CreateTenantRequest{
		TenancyID: tenancyID,
		Email:     "sam@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Sam's details have been added!", result.Message)

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "Sam", user.FirstName)
	require.Equal(t, "Carter", user.LastName)
	require.Equal(t, "07123 456789", user.Phone)

	tenant, err := store.Repos().Tenants.GetByUserAndTenancy(context.Background(), 55, tenancyID)
	require.NoError(t, err)
	require.Equal(t, "Sam Carter", tenant.Name)
	require.Equal(t, "07123 456789", tenant.Phone)
}

func TestCreateExistingTenantUpdatedNotDuplicated(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	store.SeedUser(domain.User{ID: 55, Email: "sam@example.com", PasswordHash: "x"})
	store.SeedTenant(domain.Tenant{ID: 9, TenancyID: tenancyID, UserID: 55, Name: "Old Name"})
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	req := createRequest()
	req.PermittedOccupier = true
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 1, store.TenantCount())
	tenant, err := store.Repos().Tenants.GetByID(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "Sam Carter", tenant.Name)
	require.True(t, tenant.PermittedOccupier)
}

func TestCreateInvalidEmailRollsBackEverything(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	req := createRequest()
	req.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req)

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, service.KindValidation, mutErr.Kind)
	require.Equal(t, []string{validate.MsgEmail}, mutErr.Fields["email"])

	require.Equal(t, 0, store.UserCount())
	require.Equal(t, 0, store.TenantCount())
	require.Empty(t, dispatcher.enqueued())
}

func TestCreateMissingPhoneAndName(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	req := createRequest()
	req.FirstName = strPtr("  ")
	req.Phone = strPtr("")
	_, err := svc.Create(context.Background(), req)

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, []string{validate.MsgName}, mutErr.Fields["first_name"])
	require.Equal(t, []string{validate.MsgPhone}, mutErr.Fields["phone"])
}

func TestCreateLeadTenantAssignsLead(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	req := createRequest()
	req.LeadTenant = true
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), tenancyID)
	require.NoError(t, err)
	require.NotNil(t, tenancy.LeadTenantID)

	user, err := store.Repos().Users.GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	tenant, err := store.Repos().Tenants.GetByUserAndTenancy(context.Background(), user.ID, tenancyID)
	require.NoError(t, err)
	require.Equal(t, tenant.ID, *tenancy.LeadTenantID)
}

func TestCreateWithoutLeadFlagKeepsExistingLead(t *testing.T) {
	store := repository.NewMemoryStore()
	existingLead := int64(9)
	store.SeedTenancy(domain.Tenancy{ID: tenancyID, InstructionID: 7, LeadTenantID: &existingLead})
	store.SeedUser(domain.User{ID: 55, Email: "lead@example.com", PasswordHash: "x"})
	store.SeedTenant(domain.Tenant{ID: 9, TenancyID: tenancyID, UserID: 55})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	_, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), tenancyID)
	require.NoError(t, err)
	require.NotNil(t, tenancy.LeadTenantID)
	require.Equal(t, existingLead, *tenancy.LeadTenantID)
}

func TestCreateUnknownTenancy(t *testing.T) {
	store := repository.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	_, err := svc.Create(context.Background(), createRequest())
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Empty(t, dispatcher.enqueued())
}

func TestCreateTwiceResolvesToSingleUser(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	store.SeedTenancy(domain.Tenancy{ID: 200, InstructionID: 8})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	_, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	second := createRequest()
	second.TenancyID = 200
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	require.Equal(t, 1, store.UserCount())
	require.Equal(t, 2, store.TenantCount())
}

func seedTenantWithUser(store *repository.MemoryStore) {
	seedTenancy(store)
	store.SeedUser(domain.User{
		ID:           55,
		Email:        "sam@example.com",
		FirstName:    "Sam",
		LastName:     "Carter",
		Phone:        "07123 456789",
		PasswordHash: "x",
	})
	store.SeedTenant(domain.Tenant{
		ID:        9,
		TenancyID: tenancyID,
		UserID:    55,
		Name:      "Sam Carter",
		Email:     "sam@example.com",
		Phone:     "07123 456789",
	})
}

func TestUpdateMergesAttributesAndMirrors(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	firstName := "Samantha"
	occupier := true
	result, err := svc.Update(context.Background(), service.UpdateTenantRequest{
		TenantID:          9,
		FirstName:         &firstName,
		PermittedOccupier: &occupier,
	})
	require.NoError(t, err)
	require.Equal(t, "Samantha's details have been updated.", result.Message)
	require.Equal(t, "/admin/tenancies/100", result.RedirectPath)

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "Samantha", user.FirstName)
	require.Equal(t, "Carter", user.LastName)

	tenant, err := store.Repos().Tenants.GetByID(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "Samantha Carter", tenant.Name)
	require.True(t, tenant.PermittedOccupier)

	require.Equal(t, []int64{tenancyID}, dispatcher.enqueued())
}

func TestUpdateNormalizesEmail(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	email := "  New.Address@Example.COM "
	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 9, Email: &email})
	require.NoError(t, err)

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "new.address@example.com", user.Email)

	tenant, err := store.Repos().Tenants.GetByID(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "new.address@example.com", tenant.Email)
}

func TestUpdateRejectsEmailTakenByAnotherUser(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	store.SeedUser(domain.User{ID: 56, Email: "other@example.com", PasswordHash: "x"})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	email := "Other@Example.com"
	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 9, Email: &email})

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, service.KindValidation, mutErr.Kind)
	require.Equal(t, []string{validate.MsgEmailTaken}, mutErr.Fields["email"])

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "sam@example.com", user.Email)
}

func TestUpdateLeadTenantPromotion(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	lead := true
	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 9, LeadTenant: &lead})
	require.NoError(t, err)

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), tenancyID)
	require.NoError(t, err)
	require.NotNil(t, tenancy.LeadTenantID)
	require.Equal(t, int64(9), *tenancy.LeadTenantID)
}

func TestUpdateFalseLeadFlagKeepsExistingLead(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	existing := int64(77)
	store.SeedTenancy(domain.Tenancy{ID: tenancyID, InstructionID: 7, LeadTenantID: &existing})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	lead := false
	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 9, LeadTenant: &lead})
	require.NoError(t, err)

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), tenancyID)
	require.NoError(t, err)
	require.NotNil(t, tenancy.LeadTenantID)
	require.Equal(t, existing, *tenancy.LeadTenantID)
}

func TestUpdateInvalidEmailRollsBack(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	email := "broken"
	lead := true
	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 9, Email: &email, LeadTenant: &lead})

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, service.KindValidation, mutErr.Kind)

	user, err := store.Repos().Users.GetByID(context.Background(), 55)
	require.NoError(t, err)
	require.Equal(t, "sam@example.com", user.Email)

	tenancy, err := store.Repos().Tenancies.GetByID(context.Background(), tenancyID)
	require.NoError(t, err)
	require.Nil(t, tenancy.LeadTenantID)

	require.Empty(t, dispatcher.enqueued())
}

func TestUpdateUnknownTenant(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	_, err := svc.Update(context.Background(), service.UpdateTenantRequest{TenantID: 404})
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestRemoveDeletesTenantAndKeepsUser(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	store.SeedUser(domain.User{ID: 56, Email: "other@example.com", PasswordHash: "x"})
	store.SeedTenant(domain.Tenant{ID: 10, TenancyID: tenancyID, UserID: 56})
	dispatcher := &recordingDispatcher{}
	svc := newTestService(t, store, dispatcher, nil)

	result, err := svc.Remove(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "Sam has been removed from tenancy.", result.Message)
	require.Equal(t, "/admin/tenancies/100", result.RedirectPath)

	require.Equal(t, 1, store.TenantCount())
	require.Equal(t, 2, store.UserCount())
	require.Empty(t, dispatcher.enqueued())
}

func TestRemoveSoleTenantDenied(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	_, err := svc.Remove(context.Background(), 9)

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, service.KindDenied, mutErr.Kind)
	require.Equal(t, "Cannot delete tenant.", mutErr.Message)
	require.Equal(t, 1, store.TenantCount())
}

func TestRemoveLeadTenantDenied(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	lead := int64(9)
	store.SeedTenancy(domain.Tenancy{ID: tenancyID, InstructionID: 7, LeadTenantID: &lead})
	store.SeedUser(domain.User{ID: 56, Email: "other@example.com", PasswordHash: "x"})
	store.SeedTenant(domain.Tenant{ID: 10, TenancyID: tenancyID, UserID: 56})
	svc := newTestService(t, store, &recordingDispatcher{}, nil)

	_, err := svc.Remove(context.Background(), 9)

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, "Cannot delete tenant.", mutErr.Message)
	require.Equal(t, 2, store.TenantCount())
}

func TestRemoveHonoursInjectedPolicy(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenantWithUser(store)
	svc := newTestService(t, store, &recordingDispatcher{}, denyAllPolicy{})

	_, err := svc.Remove(context.Background(), 9)

	var mutErr *service.MutationError
	require.ErrorAs(t, err, &mutErr)
	require.Equal(t, service.KindDenied, mutErr.Kind)
}

func TestNoticeFailureDoesNotFailMutation(t *testing.T) {
	store := repository.NewMemoryStore()
	seedTenancy(store)
	dispatcher := &recordingDispatcher{err: errors.New("queue unavailable")}
	svc := newTestService(t, store, dispatcher, nil)

	result, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	require.Equal(t, "Sam's details have been added!", result.Message)
	require.Equal(t, 1, store.TenantCount())
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []int64
	err  error
}

func (d *recordingDispatcher) EnqueueTenancyNotice(ctx context.Context, tenancyID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, tenancyID)
	return nil
}

func (d *recordingDispatcher) enqueued() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.jobs...)
}

type denyAllPolicy struct{}

func (denyAllPolicy) Destroyable(domain.Tenant, domain.Tenancy, int64) bool { return false }
