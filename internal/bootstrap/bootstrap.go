package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/marketday/internal/app/auth"
	appControllers "github.com/yigit/marketday/internal/app/controllers"
	appMigrations "github.com/yigit/marketday/internal/app/migrations"
	appRepos "github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/app/repositories/memory"
	appRoutes "github.com/yigit/marketday/internal/app/routes"
	appServices "github.com/yigit/marketday/internal/app/services"
	"github.com/yigit/marketday/internal/config"
	"github.com/yigit/marketday/internal/db"
	appMiddleware "github.com/yigit/marketday/internal/middleware"
	pkgAuth "github.com/yigit/marketday/internal/pkg/auth"
	"github.com/yigit/marketday/internal/pkg/filestorage"
	"github.com/yigit/marketday/internal/pkg/logger"
	"github.com/yigit/marketday/internal/seed"
)

// UploadsRoute is the URL prefix uploaded item images are served under
const UploadsRoute = "/uploads"

// DefaultConfigPath is where the server and CLI look for the YAML config
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store              appRepos.Store
	LedgerService      appServices.LedgerService
	QueryService       appServices.QueryService
	StudentService     appServices.StudentService
	ItemService        appServices.ItemService
	AuthService        *appServices.AuthService
	AuthController     *appControllers.AuthController
	MarketController   *appControllers.MarketController
	TeacherController  *appControllers.TeacherController
	ItemController     *appControllers.ItemController
	PurchaseController *appControllers.PurchaseController
	AuthMiddleware     *appMiddleware.AuthMiddleware
	LoginLimiter       *appMiddleware.IPRateLimiter
	JWTService         *pkgAuth.JWTService
	AuthzService       *appAuth.AuthorizationService
	FileStorage        *filestorage.LocalStorage
	Logger             zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectPostgres opens the pool and checks that the database answers
func ConnectPostgres(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Pool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// SetupStore opens the configured store. For Postgres the embedded migrations are applied first.
func SetupStore(cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	}

	database, err := ConnectPostgres(cfg, lgr)
	if err != nil {
		return nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(database.Pool).Migrate(context.Background())
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")

	return appRepos.NewPostgresStore(database), nil
}

// BuildDependencies initializes services, middleware and controllers over store.
func BuildDependencies(cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Store: store, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, strings.TrimRight(cfg.Server.PublicBaseURL, "/")+UploadsRoute)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		StudentTokenExp: cfg.StudentTokenTTL(),
		TeacherTokenExp: cfg.TeacherTokenTTL(),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService()

	deps.LedgerService = appServices.NewLedgerService(store, lgr)
	deps.QueryService = appServices.NewQueryService(store)
	deps.StudentService = appServices.NewStudentService(store, lgr)
	deps.ItemService = appServices.NewItemService(store, deps.FileStorage, appServices.ItemSettings{
		DefaultQuantity: cfg.Market.DefaultItemQuantity,
		DefaultCost:     cfg.Market.DefaultItemCost,
		MaxImportRows:   cfg.Market.MaxImportRows,
	}, lgr)
	deps.AuthService = appServices.NewAuthService(deps.StudentService, deps.JWTService, cfg.Teacher.PasswordHash, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.LoginLimiter = appMiddleware.NewIPRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.MarketController = appControllers.NewMarketController(deps.QueryService, deps.LedgerService, deps.AuthzService, lgr)
	deps.TeacherController = appControllers.NewTeacherController(deps.QueryService, deps.StudentService, deps.LedgerService, lgr)
	deps.ItemController = appControllers.NewItemController(deps.ItemService, deps.QueryService, lgr)
	deps.PurchaseController = appControllers.NewPurchaseController(deps.QueryService, deps.LedgerService, lgr)

	return deps, nil
}

// SeedDemoData creates the demo roster when enabled in config
func SeedDemoData(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	if !cfg.Database.SeedDemoData {
		return
	}
	if err := seed.CreateDemoData(ctx, deps.Store, deps.StudentService, deps.ItemService, deps.Logger); err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.RequestLogger(lgr))
	router.Use(cors.New(corsConfig(cfg.Origins())))

	router.Static(UploadsRoute, cfg.Server.StoragePath)

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.MarketController,
		deps.TeacherController,
		deps.ItemController,
		deps.PurchaseController,
		deps.AuthMiddleware,
		deps.LoginLimiter,
		deps.Store,
	)

	return router, nil
}

// corsConfig allows the listed frontend origins. An empty list or "*" allows any origin without credentials.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", appMiddleware.RequestIDKey},
		ExposeHeaders: []string{"Content-Disposition", appMiddleware.RequestIDKey},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
