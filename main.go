package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"letschat/server/internal/config"
	"letschat/server/internal/database"
	"letschat/server/internal/handlers"
	applog "letschat/server/internal/logger"
	"letschat/server/internal/metrics"
	"letschat/server/internal/middleware"
	"letschat/server/internal/routes"
	"letschat/server/internal/services"
	"letschat/server/internal/storage"
	"letschat/server/internal/store"
	"letschat/server/internal/store/memstore"
	"letschat/server/internal/store/mongostore"
	"letschat/server/internal/store/pgstore"
	"letschat/server/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	base := applog.Setup(cfg.LogLevel, cfg.IsDevelopment())
	if envErr != nil {
		log.Debug().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("datastore", cfg.DatastoreType).Msg("Failed to open datastore")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to close datastore")
		}
	}()

	objects, local, err := openObjects(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open object storage")
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, "letschat", cfg.TokenTTL)
	svc := services.New(services.Deps{
		Store:   st,
		Objects: objects,
		Tokens:  tokens,
		Settings: services.Settings{
			FeedPageSize:     cfg.FeedPageSize,
			FeedMaxCursorIDs: cfg.FeedMaxCursorIDs,
			MessagePageSize:  cfg.MessagePageSize,
			SearchLimit:      cfg.SearchLimit,
			Location:         cfg.Location,
		},
	})

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Lets Chat API v1.0",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    handlers.MaxFileSize,
		ReadTimeout:  cfg.RequestTimeout * 3,
		WriteTimeout: cfg.RequestTimeout * 3,
	})

	m := metrics.New()

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(m.Middleware())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))
	app.Use(middleware.RequestContext(base, cfg.RequestTimeout))
	// Per client address; routes add user-keyed presets after Auth
	app.Use(middleware.IPRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow))

	// Setup routes
	routes.SetupRoutes(app, handlers.New(svc, local, cfg), tokens, m)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("datastore", cfg.DatastoreType).Msg("Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DatastoreType {
	case config.DatastoreMongo:
		conn, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(conn)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		return st, nil

	case config.DatastorePostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st := pgstore.New(pool)
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		return st, nil

	default:
		log.Warn().Msg("Using the in-memory datastore, data is lost on restart")
		return memstore.New(), nil
	}
}

// openObjects returns the object store and, for the local driver, the disk
// store backing the /uploads endpoints.
func openObjects(ctx context.Context, cfg *config.Config) (storage.ObjectStore, *storage.Local, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		s3, err := storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}

	local, err := storage.NewLocal(cfg.Storage, cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}
