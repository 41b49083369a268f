package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/api"
	"github.com/charlesng35/authcore/internal/app"
	"github.com/charlesng35/authcore/internal/app/maintenance"
	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/cache"
	"github.com/charlesng35/authcore/internal/database"
	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/monitoring/checks"
	"github.com/charlesng35/authcore/internal/security"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/mail"
)

const probeTimeout = 3 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	DBCache    *cache.DatabaseStore
	Users      *services.UserService
	Sessions   *iauth.SessionStore
	Activation *iauth.ActivationService
	Auth       *iauth.AuthService
	Monitoring *monitoring.Module
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.DBCache = cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisOptions()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Users, err = services.NewUserService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	tokens, err := iauth.NewTokenIssuer(cfg.Auth.TokenIssuerConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token issuer: %w", err)
	}

	var sessionCache iauth.SessionCache
	if stack.Redis != nil {
		sessionCache = iauth.NewSessionCache(stack.Redis)
	}
	stack.Sessions, err = iauth.NewSessionStore(stack.DB, cfg.Auth.SessionOptions(sessionCache)...)
	if err != nil {
		return nil, fmt.Errorf("initialise session store: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; activation emails will not be delivered")
	}

	stack.Activation, err = iauth.NewActivationService(stack.DB, cfg.Auth.ActivationOptions(mailer, cfg.Server.PublicURL)...)
	if err != nil {
		return nil, fmt.Errorf("initialise activation service: %w", err)
	}

	stack.Auth, err = iauth.NewAuthService(iauth.Dependencies{
		Users:      stack.Users,
		Tokens:     tokens,
		Sessions:   stack.Sessions,
		Activation: stack.Activation,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}

	runSecurityAudit(ctx, stack.DB, cfg, log)

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	registerHealthChecks(stack, cfg)

	stack.Cleaner = maintenance.NewCleaner(stack.Sessions, stack.Activation,
		maintenance.WithCachePurger(stack.DBCache),
		maintenance.WithRecorder(stack.Monitoring),
		maintenance.WithSessionRetention(cfg.Maintenance.SessionRetention),
		maintenance.WithSessionSchedule(cfg.Maintenance.SessionSchedule),
		maintenance.WithActivationRetention(cfg.Maintenance.ActivationRetention),
		maintenance.WithActivationSchedule(cfg.Maintenance.ActivationSchedule),
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if stack.Redis != nil {
		stack.RateStore = middleware.NewCacheRateStore(stack.Redis)
	} else {
		stack.RateStore = middleware.NewCacheRateStore(stack.DBCache)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:     cfg,
		Auth:       stack.Auth,
		Users:      stack.Users,
		RateStore:  stack.RateStore,
		Monitoring: stack.Monitoring,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func runSecurityAudit(ctx context.Context, db *gorm.DB, cfg *app.Config, log *zap.Logger) {
	result := security.NewAuditService(db, cfg).Run(ctx)
	for _, check := range result.Checks {
		switch check.Status {
		case security.StatusFail:
			log.Error("security audit failed", zap.String("check", check.ID), zap.String("message", check.Message), zap.String("remediation", check.Remediation))
		case security.StatusWarn:
			log.Warn("security audit warning", zap.String("check", check.ID), zap.String("message", check.Message))
		}
	}
	log.Info("security audit complete",
		zap.Int("pass", result.Summary[string(security.StatusPass)]),
		zap.Int("warn", result.Summary[string(security.StatusWarn)]),
		zap.Int("fail", result.Summary[string(security.StatusFail)]),
	)
}

func registerHealthChecks(stack *runtimeStack, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.RegisterLiveness(checks.Database(stack.DB, probeTimeout))
	health.RegisterReadiness(checks.Database(stack.DB, probeTimeout))

	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	health.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled, probeTimeout))
	health.RegisterReadiness(checks.Maintenance(stack.Monitoring, 0))
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	var auth *app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = &cfg.Database.Postgres
	case "mysql":
		auth = &cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	if auth != nil {
		dbCfg.Host = strings.TrimSpace(auth.Host)
		dbCfg.Port = auth.Port
		dbCfg.Name = strings.TrimSpace(auth.Database)
		dbCfg.User = strings.TrimSpace(auth.Username)
		dbCfg.Password = auth.Password
		dbCfg.Options = auth.Options
	}

	return dbCfg
}
