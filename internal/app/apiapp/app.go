package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Arianini/CSSECDV-MCO/internal/config"
	"github.com/Arianini/CSSECDV-MCO/internal/jobs/cleanup"
	pgrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/postgres"
	redrepo "github.com/Arianini/CSSECDV-MCO/internal/repo/redis"
	acctsvc "github.com/Arianini/CSSECDV-MCO/internal/services/accounts"
	auditsvc "github.com/Arianini/CSSECDV-MCO/internal/services/audit"
	authsvc "github.com/Arianini/CSSECDV-MCO/internal/services/auth"
	authzsvc "github.com/Arianini/CSSECDV-MCO/internal/services/authz"
	credsvc "github.com/Arianini/CSSECDV-MCO/internal/services/credentials"
	reportsvc "github.com/Arianini/CSSECDV-MCO/internal/services/reports"
	restrsvc "github.com/Arianini/CSSECDV-MCO/internal/services/restrictions"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	sweeper    *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres init: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	accountRepo := pgrepo.NewAccountRepo(pool)
	contentRepo := pgrepo.NewContentRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	restrictionRepo := pgrepo.NewRestrictionRepo(pool)
	auditRepo := pgrepo.NewAuditRepo(pool)
	restrictionCache := redrepo.NewRestrictionCacheRepo(redisClient)

	auditService := auditsvc.NewService(auditRepo, log)
	credentialService := credsvc.NewService(accountRepo, credsvc.Config{
		MaxFailedLogins:     cfg.Security.MaxFailedLogins,
		LockoutDuration:     cfg.Security.LockoutDuration,
		PasswordMinAge:      cfg.Security.PasswordMinAge,
		PasswordHistorySize: cfg.Security.PasswordHistorySize,
	})
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	accountService := acctsvc.NewService(accountRepo, credentialService, jwtManager, auditService)
	authzService := authzsvc.NewService(contentRepo, auditService)
	restrictionService := restrsvc.NewService(pool, restrictionRepo, accountRepo, restrictionCache, auditService, restrsvc.Config{
		ManagerTempBanCapHours: cfg.Security.ManagerTempBanCapHrs,
		CacheTTL:               cfg.Security.RestrictionCacheTTL,
	})
	reportService := reportsvc.NewService(reportRepo, contentRepo, restrictionService, authzService, auditService, reportsvc.Config{
		DefaultRestrictHours: cfg.Security.DefaultRestrictHours,
	})

	sweeper := cleanup.New(restrictionRepo, restrictionCache, cfg.Security.RestrictionCacheTTL*6, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AccountService:     accountService,
		ReportService:      reportService,
		RestrictionService: restrictionService,
		AuditService:       auditService,
		JWTManager:         jwtManager,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		sweeper:    sweeper,
		httpRouter: r,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.sweeper.Start(ctx)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
