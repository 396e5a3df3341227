// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	adminfeature "github.com/saecell/labportal/internal/app/features/admin"
	authgooglefeature "github.com/saecell/labportal/internal/app/features/authgoogle"
	checkinfeature "github.com/saecell/labportal/internal/app/features/checkin"
	errorsfeature "github.com/saecell/labportal/internal/app/features/errors"
	healthfeature "github.com/saecell/labportal/internal/app/features/health"
	homefeature "github.com/saecell/labportal/internal/app/features/home"
	loginfeature "github.com/saecell/labportal/internal/app/features/login"
	logoutfeature "github.com/saecell/labportal/internal/app/features/logout"
	profilefeature "github.com/saecell/labportal/internal/app/features/profile"
	signupfeature "github.com/saecell/labportal/internal/app/features/signup"
	auditstore "github.com/saecell/labportal/internal/app/store/audit"
	"github.com/saecell/labportal/internal/app/system/auditlog"
	"github.com/saecell/labportal/internal/app/system/auth"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It boots the template engine, applies
// session and CSRF middleware, and mounts feature routers for every part
// of the portal: home, sign-in, signup, the lab register, profiles, and
// the admin area.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Audit logging goes to Mongo and the structured log, with
	// per-category switches from config.
	db := deps.LabPortalMongoDatabase
	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Admin:      appCfg.AuditLogAdmin,
		Attendance: appCfg.AuditLogAttendance,
	})

	r := chi.NewRouter()

	// CSRF protection for all state-changing form posts. Templates read
	// the token through viewdata and emit it as a hidden field.
	r.Use(csrf.Protect([]byte(appCfg.SessionKey),
		csrf.Secure(secure),
		csrf.Path("/"),
	))

	// Global auth middleware: loads the SessionUser into context if
	// logged in, so handlers can use auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.LabPortalMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	homeHandler := homefeature.NewHandler(db, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	googleHandler := authgooglefeature.NewHandler(db, audit,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret,
		appCfg.BaseURL, appCfg.SessionKey, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	loginHandler := loginfeature.NewHandler(db, errLog, audit, googleHandler.IsConfigured(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Registration (student and faculty signup)
	signupHandler := signupfeature.NewHandler(db, errLog, audit, logger)
	r.Mount("/signup", signupfeature.Routes(signupHandler))

	// Lab register: check-in, check-out, closure confirmation
	checkinHandler := checkinfeature.NewHandler(deps.LabPortalMongoClient, db, errLog, audit, logger)
	r.Mount("/register", checkinfeature.Routes(checkinHandler))

	// Member profile and attendance history
	profileHandler := profilefeature.NewHandler(db, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler))

	// Admin area: approvals, roster, attendance, live occupancy
	adminHandler := adminfeature.NewHandler(deps.LabPortalMongoClient, db, errLog, audit, logger)
	r.Mount("/admin", adminfeature.Routes(adminHandler))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
