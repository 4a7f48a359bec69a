package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Arianini/CSSECDV-MCO/internal/config"
	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	auditsvc "github.com/Arianini/CSSECDV-MCO/internal/services/audit"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	reportsvc "github.com/Arianini/CSSECDV-MCO/internal/services/reports"
	restrsvc "github.com/Arianini/CSSECDV-MCO/internal/services/restrictions"
	"github.com/Arianini/CSSECDV-MCO/internal/transport/http/handlers"
)

type Dependencies struct {
	AccountService     *acctsvc.Service
	ReportService      *reportsvc.Service
	RestrictionService *restrsvc.Service
	AuditService       *auditsvc.Service
	JWTManager         *authsvc.JWTManager
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AccountService)
	restrictionHandler := handlers.NewRestrictionHandler(deps.RestrictionService)
	reportsHandler := handlers.NewReportsHandler(deps.ReportService, deps.AccountService)
	adminUsersHandler := handlers.NewAdminUsersHandler(deps.AccountService, deps.RestrictionService)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	managerMW := RequireLevel(enums.RoleManager, deps.AuditService)
	adminMW := RequireLevel(enums.RoleAdministrator, deps.AuditService)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(authMW).Post("/password", authHandler.ChangePassword)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/check-restriction", restrictionHandler.Check)
		r.Post("/reports", reportsHandler.File)
	})

	// Route-level gates catch the wrong role early; the services re-check
	// per-resource tag authority and audit their own denials.
	r.Route("/manager", func(r chi.Router) {
		r.Use(authMW, managerMW)
		r.Get("/reports", reportsHandler.List)
		r.Post("/reports/{id}/handle", reportsHandler.Handle)
		r.Post("/reports/{id}/escalate", reportsHandler.Escalate)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW, adminMW)
		r.Post("/users/{id}/restrict", adminUsersHandler.Restrict)
		r.Post("/users/{id}/ban", adminUsersHandler.Ban)
		r.Post("/users/{id}/unban", adminUsersHandler.Unban)
		r.Get("/users/{id}/restrictions", adminUsersHandler.Restrictions)
		r.Post("/users/{id}/role", adminUsersHandler.Role)
		r.Delete("/users/{id}", adminUsersHandler.Delete)
	})
}
