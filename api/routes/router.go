// api/routes/router.go
package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"busseat/internal/auth"
	"busseat/internal/schedules"
	"busseat/internal/seats"
	"busseat/internal/shared/config"
	"busseat/internal/shared/database"
	"busseat/internal/shared/middleware"
	"busseat/pkg/cache"
	"busseat/pkg/logger"
	"busseat/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher seats.BookingPublisher
	cache     cache.Service
	limiter   *ratelimit.RateLimiter

	validator       middleware.TokenValidator
	scheduleService schedules.Service
	seatStore       seats.Store
}

// NewRouter creates a new router instance. db may hold no connections when
// the memory seat store is selected.
func NewRouter(cfg *config.Config, db *database.DB, publisher seats.BookingPublisher) *Router {
	if db == nil {
		db = &database.DB{}
	}
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		cache:     cache.NewService(db.GetRedisClient()),
	}
}

// SetRateLimiter adds a per-rider budget to seat claims
func (r *Router) SetRateLimiter(limiter *ratelimit.RateLimiter) {
	r.limiter = limiter
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) error {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		// auth first: the other groups need its token validator
		r.setupAuthRoutes(api)
		r.setupScheduleRoutes(api)
		if err := r.setupSeatRoutes(api); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) inMemory() bool {
	return r.config.SeatStore.Backend == config.SeatStoreMemory
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "busseat-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"service":    "busseat-backend",
			"seat_store": r.config.SeatStore.Backend,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	var authRepo auth.Repository
	if r.inMemory() {
		authRepo = auth.NewMemoryRepository()
	} else {
		authRepo = auth.NewRepository(r.db.GetPostgreSQL())
	}
	authService := auth.NewService(authRepo, r.config)
	r.validator = auth.NewValidatorAdapter(authService)

	auth.NewRouter(auth.NewController(authService), r.validator).SetupRoutes(rg)
}

// setupScheduleRoutes configures the bus and run catalog
func (r *Router) setupScheduleRoutes(rg *gin.RouterGroup) {
	var scheduleRepo schedules.Repository
	if r.inMemory() {
		scheduleRepo = schedules.NewMemoryRepository()
	} else {
		scheduleRepo = schedules.NewRepository(r.db.GetPostgreSQL())
	}
	r.scheduleService = schedules.NewService(scheduleRepo, r.cache)

	schedules.SetupScheduleRoutes(rg, schedules.NewController(r.scheduleService), r.validator)
}

// setupSeatRoutes configures seat availability and booking routes
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) error {
	store, err := r.newSeatStore()
	if err != nil {
		return err
	}
	r.seatStore = store

	var claimLimits []gin.HandlerFunc
	if r.limiter != nil {
		claimLimits = append(claimLimits, ratelimit.PerRider(r.limiter))
	}

	seatService := seats.NewService(store, r.scheduleService, r.publisher)
	seats.SetupSeatRoutes(rg, seats.NewController(seatService), r.validator, claimLimits...)
	return nil
}

func (r *Router) newSeatStore() (seats.Store, error) {
	switch r.config.SeatStore.Backend {
	case config.SeatStoreMemory:
		return seats.NewMemoryStore(r.scheduleService), nil

	case config.SeatStoreRedis:
		client := r.db.GetRedisClient()
		if client == nil {
			return nil, fmt.Errorf("seat store %q needs a Redis connection", config.SeatStoreRedis)
		}
		store := seats.NewRedisStore(client, r.scheduleService)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.PreloadScripts(ctx); err != nil {
			// EVALSHA falls back to EVAL, so a cold script cache only costs a round trip
			logger.GetDefault().Warn("Failed to preload seat claim scripts", "error", err)
		} else {
			logger.GetDefault().Info("Redis Lua scripts preloaded for atomic seat claims")
		}
		return store, nil

	case config.SeatStorePostgres:
		if r.db.GetPostgreSQL() == nil {
			return nil, fmt.Errorf("seat store %q needs a PostgreSQL connection", config.SeatStorePostgres)
		}
		return seats.NewPostgresStore(r.db.GetPostgreSQL(), r.scheduleService), nil

	default:
		return nil, fmt.Errorf("unknown seat store backend %q", r.config.SeatStore.Backend)
	}
}

// SeatStore returns the store wired by SetupRoutes
func (r *Router) SeatStore() seats.Store {
	return r.seatStore
}
