package api

import (
	"net/http"

	"invaders/internal/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the dependencies needed to build the HTTP router.
// Built for injection: tests pass a directory over a temp store and a
// permissive rate limit.
type RouterConfig struct {
	// Directory routes room codes to live rooms (required).
	Directory *room.Directory

	// Gateway handles websocket upgrades. If nil, a default one is created.
	Gateway *WSGateway

	// RateLimiter is an optional pre-built limiter. If nil, one is created
	// from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed origins; nil keeps the defaults.
	CORSOrigins []string

	// DisableLogging drops the request logger (benchmarks, tests).
	DisableLogging bool
}

// NewRouter constructs the HTTP router. It is pure: no goroutines beyond the
// rate limiter's cleanup, no listeners — safe under httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS, to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	gateway := cfg.Gateway
	if gateway == nil {
		gateway = NewWSGateway()
	}

	h := &routerHandlers{directory: cfg.Directory, gateway: gateway}

	// Directory: allocate a room code.
	r.Post("/api/room", h.handleCreateRoom)

	// Per-room endpoints.
	r.Route("/room/{code}", func(r chi.Router) {
		r.Post("/init", h.handleInitRoom)
		r.Get("/info", h.handleRoomInfo)
		r.Get("/ws", h.handleWS)
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
