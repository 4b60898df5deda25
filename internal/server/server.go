package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront-api/internal/cache"
	"storefront-api/internal/config"
	"storefront-api/internal/database"
	custommiddleware "storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
	"storefront-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	seeder service.SeederService
}

// NewServer wires repositories, services and handlers onto one router.
// redisClient may be nil, which disables rate limiting and the order cache.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, catalog service.Catalog) *Server {
	pool := db.DB()

	// Repositories
	tx := repository.NewTransactor(pool)
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	// Services
	orderCache := cache.NewOrderCache(redisClient, cfg.Cache.OrderTTL(), logger)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTTL(), logger)
	userService := service.NewUserService(userRepo, orderRepo, logger)
	productService := service.NewProductService(tx, productRepo, categoryRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo)
	orderService := service.NewOrderService(tx, userRepo, productRepo, orderRepo, orderCache, logger)
	seederService := service.NewSeederService(tx, categoryRepo, productRepo, userRepo, orderRepo, catalog, logger)

	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		seeder: seederService,
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", s.health)

	authMiddleware := custommiddleware.AuthMiddleware(authService, logger)
	adminOnly := custommiddleware.RequireAdmin(logger)
	orderRateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window(),
		KeyPrefix:         "rate_limit:orders",
	}, logger)

	transport.NewAuthHandler(authService, logger).RegisterRoutes(router)
	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, adminOnly)
	transport.NewProductHandler(productService, seederService, logger).RegisterRoutes(router, authMiddleware, adminOnly)
	transport.NewCategoryHandler(categoryService, seederService, logger).RegisterRoutes(router, authMiddleware, adminOnly)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware, orderRateLimit)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	status := http.StatusOK

	dbHealth := s.db.Health()
	body["database"] = dbHealth
	if dbHealth["status"] != "up" {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			body["redis"] = map[string]string{"status": "down", "error": err.Error()}
		} else {
			body["redis"] = map[string]string{"status": "up"}
		}
	}

	custommiddleware.RespondWithJSON(w, status, body)
}

// SeedIfEmpty loads the catalog when no categories and no products exist.
func (s *Server) SeedIfEmpty(ctx context.Context) error {
	seeded, err := s.seeder.SeedIfEmpty(ctx)
	if err != nil {
		return err
	}
	if !seeded {
		s.logger.Info("Catalog already populated, skipping seed")
	}
	return nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = s.logger.Sync()
	return nil
}
