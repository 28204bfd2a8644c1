package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/facegate-io/facegate/internal/app"
	"github.com/facegate-io/facegate/internal/config"
	"github.com/facegate-io/facegate/internal/database"
	"github.com/facegate-io/facegate/internal/embedding"
	"github.com/facegate-io/facegate/internal/health"
	"github.com/facegate-io/facegate/internal/http/handler"
	"github.com/facegate-io/facegate/internal/http/middleware"
	"github.com/facegate-io/facegate/internal/http/router"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/repository"
	"github.com/facegate-io/facegate/internal/security"
	"github.com/facegate-io/facegate/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewFaceProfileRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
)

var ServiceSet = wire.NewSet(
	provideEmbeddingProvider,
	provideSampleArchive,
	provideFaceService,
	service.NewAuthService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.BiometricEnroller), new(*service.FaceService)),
	wire.Bind(new(service.BiometricVerifier), new(*service.FaceService)),
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	provideFaceHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

type MigrationRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewMigrationRunner(cfg *config.Config, db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{cfg: cfg, db: db}
}

func (m *MigrationRunner) Run() error {
	if err := database.Migrate(m.db); err != nil {
		return err
	}
	if err := database.Seed(m.db); err != nil {
		return err
	}
	fmt.Println("migration complete")
	return nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.AssertionSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideEmbeddingProvider(cfg *config.Config) embedding.Provider {
	return embedding.NewHTTPProvider(cfg.EmbedderURL, cfg.EmbedderTimeout)
}

// provideSampleArchive returns nil when archival is disabled; FaceService
// treats a nil archive as a no-op.
func provideSampleArchive(cfg *config.Config) (service.SampleArchive, error) {
	if !cfg.ArchiveEnabled {
		return nil, nil
	}
	archive, err := service.NewMinIOSampleArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		return nil, err
	}
	return archive, nil
}

func provideFaceService(provider embedding.Provider, profiles repository.FaceProfileRepository, archive service.SampleArchive, cfg *config.Config) *service.FaceService {
	return service.NewFaceService(provider, profiles, archive, cfg.SimilarityThreshold)
}

func provideAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.AssertionTTL)
}

func provideFaceHandler(authSvc service.AuthServiceInterface, enroller service.BiometricEnroller, cookieMgr *security.CookieManager, cfg *config.Config) *handler.FaceHandler {
	return handler.NewFaceHandler(authSvc, enroller, cookieMgr, cfg.MaxUploadBytes)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return GlobalRateLimiterFunc(middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware())
	}
	return GlobalRateLimiterFunc(middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware())
}

// Auth endpoints fail closed: losing the limiter backend must not open a
// credential-guessing window.
func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) AuthRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		return AuthRateLimiterFunc(middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware())
	}
	return AuthRateLimiterFunc(middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware())
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	faceHandler *handler.FaceHandler,
	jwt *security.JWTManager,
	globalRateLimiter GlobalRateLimiterFunc,
	authRateLimiter AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		FaceHandler:       faceHandler,
		JWTManager:        jwt,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, provider embedding.Provider) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 3)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RateLimitRedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	if prober, ok := provider.(health.EmbedderProber); ok {
		if c := health.NewEmbedderChecker(prober); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
