package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"semantiq/internal/config"
	"semantiq/internal/database"
	"semantiq/internal/handlers"
	"semantiq/internal/repositories"
	"semantiq/internal/routes"
	"semantiq/internal/services"
)

func NewServer() *http.Server {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := database.ConnectAppStore()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Fail fast when Redis is unreachable rather than on the first session.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Println("Connected to Redis successfully")
	}

	var seeds *services.SeedDefinitions
	if cfg.DefinitionsPath != "" {
		seeds, err = services.LoadSeedDefinitions(cfg.DefinitionsPath)
		if err != nil {
			log.Fatalf("failed to load seed definitions: %v", err)
		}
		if err := services.ValidateSeedDefinitions(seeds); err != nil {
			log.Fatalf("invalid seed definitions: %v", err)
		}
		log.Printf("Loaded seed definitions from %s", cfg.DefinitionsPath)
	}

	// Dependency injection
	schemaRepo := repositories.NewSchemaRepository(db)
	redisRepo := repositories.NewRedisRepository(rdb)

	catalogService := services.NewCatalogService(schemaRepo)
	introspectionService := services.NewIntrospectionService()
	sessionService := services.NewSessionService(schemaRepo, redisRepo, seeds)
	persistenceService := services.NewPersistenceService(schemaRepo)
	transferService := services.NewTransferService(schemaRepo)

	schemaHandler := handlers.NewSchemaHandler(catalogService, introspectionService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	modelHandler := handlers.NewModelHandler(sessionService)
	diagramHandler := handlers.NewDiagramHandler(sessionService)
	transferHandler := handlers.NewTransferHandler(sessionService, persistenceService, transferService)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(router, schemaHandler, sessionHandler, modelHandler, diagramHandler, transferHandler)

	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
