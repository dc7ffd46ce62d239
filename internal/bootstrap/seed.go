package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lettingworks/tenancy-admin/internal/config"
	"github.com/lettingworks/tenancy-admin/internal/domain"
	"github.com/lettingworks/tenancy-admin/internal/password"
	"github.com/lettingworks/tenancy-admin/internal/repository"
)

// Fixed ID so reruns stay idempotent.
const demoTenancyID int64 = 1

// EnsureDemoTenancy seeds a tenancy with a lead tenant for dev/e2e when
// SEED_DEMO_DATA is set and the demo tenancy is missing.
func EnsureDemoTenancy(lc fx.Lifecycle, cfg config.Config, store repository.Store, node *snowflake.Node, logger *zap.Logger) {
	if !cfg.SeedDemoData {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seedDemoTenancy(ctx, store, node, logger)
		},
	})
}

func seedDemoTenancy(ctx context.Context, store repository.Store, node *snowflake.Node, logger *zap.Logger) error {
	if _, err := store.Repos().Tenancies.GetByID(ctx, demoTenancyID); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("seed lookup tenancy: %w", err)
	}

	return store.InTx(ctx, func(r repository.Repos) error {
		tenancy, err := r.Tenancies.Create(ctx, domain.Tenancy{
			ID:            demoTenancyID,
			InstructionID: node.Generate().Int64(),
		})
		if err != nil {
			return fmt.Errorf("seed tenancy: %w", err)
		}

		secret, err := password.GenerateSecret()
		if err != nil {
			return err
		}
		hash, err := password.Hash(secret)
		if err != nil {
			return fmt.Errorf("seed hash credential: %w", err)
		}

		user, err := r.Users.Create(ctx, domain.User{
			ID:           node.Generate().Int64(),
			Email:        "demo.tenant@lettingworks.dev",
			FirstName:    "Demo",
			LastName:     "Tenant",
			Phone:        "07000000000",
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		tenant, err := r.Tenants.Create(ctx, domain.Tenant{
			ID:        node.Generate().Int64(),
			TenancyID: tenancy.ID,
			UserID:    user.ID,
			Name:      user.FullName(),
			Email:     user.Email,
			Phone:     user.Phone,
		})
		if err != nil {
			return fmt.Errorf("seed tenant: %w", err)
		}

		if err := r.Tenancies.SetLeadTenant(ctx, tenancy.ID, tenant.ID); err != nil {
			return err
		}

		if logger != nil {
			logger.Info("demo tenancy seeded",
				zap.Int64("tenancy_id", tenancy.ID),
				zap.Int64("tenant_id", tenant.ID),
				zap.Int64("user_id", user.ID),
			)
		}
		return nil
	})
}
