package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lettingworks/tenancy-admin/internal/domain"
	"github.com/lettingworks/tenancy-admin/internal/notice"
	"github.com/lettingworks/tenancy-admin/internal/password"
	"github.com/lettingworks/tenancy-admin/internal/repository"
	"github.com/lettingworks/tenancy-admin/internal/validate"
)

// DestroyPolicy gates tenant removal. The default implementation lives in the
// policy package; tests stub it.
type DestroyPolicy interface {
	Destroyable(tenant domain.Tenant, tenancy domain.Tenancy, occupants int64) bool
}

// The tenant workflow always requires name and phone so references and
// agreements can be generated.
var tenantUserRules = validate.Rules{RequirePhone: true, RequireName: true}

// TenantService orchestrates the tenant lifecycle on a tenancy: resolving the
// submitted person to a user, mirroring contact fields onto the tenant,
// applying lead-tenant and destroyability rules, and queueing the tenancy
// notice after successful mutations.
type TenantService struct {
	store   repository.Store
	node    *snowflake.Node
	notices notice.Dispatcher
	policy  DestroyPolicy
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewTenantService wires dependencies.
func NewTenantService(store repository.Store, node *snowflake.Node, notices notice.Dispatcher, policy DestroyPolicy, logger *zap.Logger) *TenantService {
	return &TenantService{
		store:   store,
		node:    node,
		notices: notices,
		policy:  policy,
		logger:  logger,
		tracer:  otel.Tracer("github.com/lettingworks/tenancy-admin/internal/service"),
	}
}

// Create attaches a person to the tenancy. An existing user (matched by
// case-insensitive email) is reused and updated; otherwise a new user is
// created with a generated credential. A user already holding a tenant on
// this tenancy gets that tenant updated rather than duplicated.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*MutationResult, error) {
	ctx, span := s.startSpan(ctx, "TenantService.Create")
	defer span.End()

	var (
		user    domain.User
		tenant  domain.Tenant
		tenancy domain.Tenancy
	)
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		var err error
		tenancy, err = r.Tenancies.GetByID(ctx, req.TenancyID)
		if err != nil {
			return fmt.Errorf("load tenancy: %w", err)
		}

		var fresh bool
		user, fresh, err = s.resolveUser(ctx, r.Users, req.Email, userAttrs{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		})
		if err != nil {
			return err
		}

		if errs := validate.User(user, tenantUserRules); errs != nil {
			return newValidationError(errs)
		}

		if fresh {
			user, err = r.Users.Create(ctx, user)
		} else {
			user, err = r.Users.Update(ctx, user)
		}
		if err != nil {
			return userSaveErr(err)
		}

		newTenant := false
		tenant, err = r.Tenants.GetByUserAndTenancy(ctx, user.ID, tenancy.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			tenant = domain.Tenant{ID: s.node.Generate().Int64(), TenancyID: tenancy.ID, UserID: user.ID}
			newTenant = true
		} else if err != nil {
			return fmt.Errorf("lookup tenant: %w", err)
		}

		syncTenantFromUser(&tenant, user)
		tenant.PermittedOccupier = req.PermittedOccupier
		tenant.SkipFinancialReference = req.SkipFinancialReference
		tenant.SkipLandlordReference = req.SkipLandlordReference

		if newTenant {
			tenant, err = r.Tenants.Create(ctx, tenant)
		} else {
			tenant, err = r.Tenants.Update(ctx, tenant)
		}
		if err != nil {
			return fmt.Errorf("save tenant: %w", err)
		}

		if req.LeadTenant {
			if err := r.Tenancies.SetLeadTenant(ctx, tenancy.ID, tenant.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.dispatchNotice(ctx, tenancy.ID)
	s.audit("tenant.created", "tenancy_id", tenancy.ID, "tenant_id", tenant.ID, "user_id", user.ID)
	return &MutationResult{
		TenancyID:    tenancy.ID,
		RedirectPath: redirectPath(tenancy.ID),
		Message:      fmt.Sprintf("%s's details have been added!", user.FirstName),
	}, nil
}

// Update merges submitted attributes onto the tenant's user, re-mirrors the
// contact fields, and optionally promotes the tenant to lead. The lead
// reassignment happens after the user and tenant saves succeed, inside the
// same transaction, so a failed validation leaves the lead pointer untouched.
func (s *TenantService) Update(ctx context.Context, req UpdateTenantRequest) (*MutationResult, error) {
	ctx, span := s.startSpan(ctx, "TenantService.Update")
	defer span.End()

	var (
		user   domain.User
		tenant domain.Tenant
	)
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		var err error
		tenant, err = r.Tenants.GetByID(ctx, req.TenantID)
		if err != nil {
			return fmt.Errorf("load tenant: %w", err)
		}
		tenancy, err := r.Tenancies.GetByID(ctx, tenant.TenancyID)
		if err != nil {
			return fmt.Errorf("load tenancy: %w", err)
		}
		user, err = r.Users.GetByID(ctx, tenant.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		if req.Email != nil {
			user.Email = normalizeEmail(*req.Email)
			if err := ensureEmailFree(ctx, r.Users, user.Email, user.ID); err != nil {
				return err
			}
		}
		applyUserAttrs(&user, userAttrs{FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone})

		if errs := validate.User(user, tenantUserRules); errs != nil {
			return newValidationError(errs)
		}

		if user, err = r.Users.Update(ctx, user); err != nil {
			return userSaveErr(err)
		}

		syncTenantFromUser(&tenant, user)
		if req.PermittedOccupier != nil {
			tenant.PermittedOccupier = *req.PermittedOccupier
		}
		if req.SkipFinancialReference != nil {
			tenant.SkipFinancialReference = *req.SkipFinancialReference
		}
		if req.SkipLandlordReference != nil {
			tenant.SkipLandlordReference = *req.SkipLandlordReference
		}
		if tenant, err = r.Tenants.Update(ctx, tenant); err != nil {
			return fmt.Errorf("save tenant: %w", err)
		}

		if req.LeadTenant != nil && *req.LeadTenant {
			if err := r.Tenancies.SetLeadTenant(ctx, tenancy.ID, tenant.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.dispatchNotice(ctx, tenant.TenancyID)
	s.audit("tenant.updated", "tenancy_id", tenant.TenancyID, "tenant_id", tenant.ID, "user_id", user.ID)
	return &MutationResult{
		TenancyID:    tenant.TenancyID,
		RedirectPath: redirectPath(tenant.TenancyID),
		Message:      fmt.Sprintf("%s's details have been updated.", user.FirstName),
	}, nil
}

// Remove deletes the tenant when the destroy policy allows it. The linked
// user is never deleted. No notice is queued for removals.
func (s *TenantService) Remove(ctx context.Context, tenantID int64) (*MutationResult, error) {
	ctx, span := s.startSpan(ctx, "TenantService.Remove")
	defer span.End()

	var (
		firstName string
		tenancyID int64
	)
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		tenant, err := r.Tenants.GetByID(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("load tenant: %w", err)
		}
		tenancy, err := r.Tenancies.GetByID(ctx, tenant.TenancyID)
		if err != nil {
			return fmt.Errorf("load tenancy: %w", err)
		}
		occupants, err := r.Tenants.CountByTenancy(ctx, tenant.TenancyID)
		if err != nil {
			return err
		}

		if !s.policy.Destroyable(tenant, tenancy, occupants) {
			return newDeniedError("Cannot delete tenant.")
		}

		user, err := r.Users.GetByID(ctx, tenant.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		firstName = user.FirstName
		tenancyID = tenant.TenancyID

		return r.Tenants.Delete(ctx, tenant.ID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.audit("tenant.removed", "tenancy_id", tenancyID, "tenant_id", tenantID)
	return &MutationResult{
		TenancyID:    tenancyID,
		RedirectPath: redirectPath(tenancyID),
		Message:      fmt.Sprintf("%s has been removed from tenancy.", firstName),
	}, nil
}

type userAttrs struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// resolveUser looks up a user by normalized email, creating one with a fresh
// generated credential when none exists, then merges the non-email attributes.
func (s *TenantService) resolveUser(ctx context.Context, users repository.UserRepository, email string, attrs userAttrs) (domain.User, bool, error) {
	normalized := normalizeEmail(email)

	var fresh bool
	user, err := users.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		// existing user keeps its stored email
	case errors.Is(err, pgx.ErrNoRows):
		secret, err := password.GenerateSecret()
		if err != nil {
			return domain.User{}, false, err
		}
		hash, err := password.Hash(secret)
		if err != nil {
			return domain.User{}, false, fmt.Errorf("hash credential: %w", err)
		}
		user = domain.User{ID: s.node.Generate().Int64(), Email: normalized, PasswordHash: hash}
		fresh = true
	default:
		return domain.User{}, false, fmt.Errorf("lookup user: %w", err)
	}

	applyUserAttrs(&user, attrs)
	return user, fresh, nil
}

func applyUserAttrs(user *domain.User, attrs userAttrs) {
	if attrs.FirstName != nil {
		user.FirstName = strings.TrimSpace(*attrs.FirstName)
	}
	if attrs.LastName != nil {
		user.LastName = strings.TrimSpace(*attrs.LastName)
	}
	if attrs.Phone != nil {
		user.Phone = strings.TrimSpace(*attrs.Phone)
	}
}

// syncTenantFromUser mirrors the user's contact fields onto the tenant. Must
// run on every create or update that touches user data.
func syncTenantFromUser(tenant *domain.Tenant, user domain.User) {
	tenant.Name = user.FullName()
	tenant.Email = user.Email
	tenant.Phone = user.Phone
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureEmailFree rejects an email change that would collide with another
// user, as a field-scoped validation failure rather than a storage error.
func ensureEmailFree(ctx context.Context, users repository.UserRepository, email string, selfID int64) error {
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID != selfID {
			errs := validate.Errors{}
			errs.Add("email", validate.MsgEmailTaken)
			return newValidationError(errs)
		}
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("lookup email: %w", err)
	}
}

// userSaveErr keeps a concurrent unique-index collision on the same contract
// as the pre-check above.
func userSaveErr(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		errs := validate.Errors{}
		errs.Add("email", validate.MsgEmailTaken)
		return newValidationError(errs)
	}
	return fmt.Errorf("save user: %w", err)
}

func redirectPath(tenancyID int64) string {
	return fmt.Sprintf("/admin/tenancies/%d", tenancyID)
}

// dispatchNotice queues the tenancy notice job. Enqueue failures are logged
// and never surfaced: the mutation has already committed.
func (s *TenantService) dispatchNotice(ctx context.Context, tenancyID int64) {
	if s.notices == nil {
		return
	}
	if err := s.notices.EnqueueTenancyNotice(ctx, tenancyID); err != nil {
		s.log().Warn("enqueue tenancy notice failed", zap.Int64("tenancy_id", tenancyID), zap.Error(err))
	}
}

func (s *TenantService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *TenantService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *TenantService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
