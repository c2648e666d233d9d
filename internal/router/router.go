package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderdeck/api/internal/config"
	"github.com/orderdeck/api/internal/database"
	"github.com/orderdeck/api/internal/handler"
	mw "github.com/orderdeck/api/internal/middleware"
	"github.com/orderdeck/api/internal/service"
	"github.com/orderdeck/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, outlet scoping, and rate limiting as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // board dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public, throttled against credential stuffing)
	loginLimiter := mw.NewRateLimiter(10, time.Minute)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Limit("login"))
		authHandler.RegisterRoutes(r)
	})

	// WebSocket feed (handles auth internally via query param)
	r.Get("/ws/outlets/{oid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Mutations share one limiter so a hot client is throttled across endpoints.
	writeLimiter := mw.NewRateLimiter(60, time.Minute)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Outlet-scoped routes
		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			// Orders
			newOrderStore := func(db database.DBTX) service.OrderStore {
				return database.New(db)
			}
			orderService := service.NewOrderService(pool, newOrderStore)
			orderHandler := handler.NewOrderHandler(orderService, queries, hub,
				writeLimiter.Limit("orders"))
			r.Route("/orders", orderHandler.RegisterRoutes)

			// Categories: menu administration is for managers and owners only.
			categoryHandler := handler.NewCategoryHandler(queries, pool,
				func(db database.DBTX) handler.CategoryStore {
					return database.New(db)
				},
				writeLimiter.Limit("categories"),
				mw.RequireRole("OWNER", "MANAGER"))
			r.Route("/categories", categoryHandler.RegisterRoutes)

			// Business hours
			hoursHandler := handler.NewHoursHandler(queries)
			r.Route("/hours", hoursHandler.RegisterRoutes)
		})
	})

	return r
}
