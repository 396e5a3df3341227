// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saecell/labportal/internal/app/resources"
	memberstore "github.com/saecell/labportal/internal/app/store/members"
	"github.com/saecell/labportal/internal/app/system/auth"
	"github.com/saecell/labportal/internal/app/system/normalize"
	"github.com/saecell/labportal/internal/domain/models"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It loads
// the shared templates, initializes the session store, and makes sure the
// configured superadmin account exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		return fmt.Errorf("session store init: %w", err)
	}

	if appCfg.SuperAdminEmail != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg, logger); err != nil {
			return fmt.Errorf("superadmin bootstrap: %w", err)
		}
	}

	return nil
}

// ensureSuperAdmin promotes the configured account to superadmin, creating
// it (approved, Google sign-in) when no account with that email exists yet.
// The portal always needs at least one account that can manage roles.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	members := memberstore.New(deps.LabPortalMongoDatabase)
	email := normalize.Email(appCfg.SuperAdminEmail)

	m, err := members.GetByEmail(ctx, email)
	if err == nil {
		if m.Role == "superadmin" {
			return nil
		}
		if err := members.SetRole(ctx, m.ID, "superadmin"); err != nil {
			return err
		}
		logger.Info("promoted existing account to superadmin", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	_, err = members.Create(ctx, models.Member{
		FullName:      appCfg.SuperAdminName,
		Email:         email,
		Role:          "superadmin",
		DisplayTitle:  "Faculty",
		AccountStatus: models.StatusApproved,
		AuthMethod:    "google",
	})
	if err != nil {
		return err
	}
	logger.Info("created superadmin account", zap.String("email", email))
	return nil
}
