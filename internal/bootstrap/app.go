package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"legaldoc-backend/internal/analyses"
	"legaldoc-backend/internal/documents"
	"legaldoc-backend/internal/llm"
	"legaldoc-backend/internal/llm/gemini"
	"legaldoc-backend/internal/llm/openai"
	"legaldoc-backend/internal/services/health"
	"legaldoc-backend/internal/shared/config"
	"legaldoc-backend/internal/shared/lock"
	"legaldoc-backend/internal/shared/server"
	"legaldoc-backend/internal/shared/storage/db"
	"legaldoc-backend/internal/shared/storage/object"
	localstore "legaldoc-backend/internal/shared/storage/object/local"
	s3store "legaldoc-backend/internal/shared/storage/object/s3"
	"legaldoc-backend/internal/stats"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *redis.Client
	Store            object.ObjectStore
	Locker           lock.Locker
	Engine           llm.Engine
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	AnalysesService  *analyses.Service
	Stats            *stats.Aggregator
	Health           *health.Service
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Health: health.NewService(),
		Engine: buildEngine(cfg),
	}
	app.Locker, app.Redis = buildLocker(cfg)

	if app.DB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.Health.Register("database", func(ctx context.Context) error {
			return db.Ping(ctx, app.DB, 0)
		})
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
	}
	if rl, ok := app.Locker.(*lock.RedisLocker); ok {
		app.Health.Register("redis", rl.Ping)
	}

	app.DocumentsService = &documents.Service{Repo: app.DocumentsRepo, Store: app.Store}
	app.AnalysesService = &analyses.Service{
		Docs:          app.DocumentsRepo,
		Engine:        app.Engine,
		Locker:        app.Locker,
		EngineTimeout: cfg.LLMTimeout,
	}
	app.Stats = stats.NewAggregator(app.DocumentsRepo)

	app.Router = server.NewRouter(server.RouterDeps{
		CORSAllowOrigins: cfg.CORSAllowOrigin,
		Health:           app.Health,
		Routes: []server.RouteRegistrar{
			documents.NewHandler(app.DocumentsService, cfg.MaxUploadBytes),
			analyses.NewHandler(app.AnalysesService),
			stats.NewHandler(app.Stats),
		},
	})

	return app, nil
}

// Close releases the database pool and redis client.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "none":
		log.Printf("bootstrap: object store disabled; originals are not archived")
		return nil, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLocker(cfg config.Config) (lock.Locker, *redis.Client) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return lock.NewMemoryLocker(cfg.LockWait), nil
	}
	client := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	return lock.NewRedisLocker(client, cfg.LockTTL, cfg.LockWait), client
}

func buildEngine(cfg config.Config) llm.Engine {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			log.Printf("bootstrap: gemini engine unavailable; analysis disabled: %v", err)
			return llm.PlaceholderEngine{}
		}
		return client
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			log.Printf("bootstrap: openai engine unavailable; analysis disabled: %v", err)
			return llm.PlaceholderEngine{}
		}
		return client
	default:
		log.Printf("bootstrap: no analysis engine configured")
		return llm.PlaceholderEngine{}
	}
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
