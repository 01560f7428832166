package api

import (
	"log"
	"net/http"

	"invaders/internal/room"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP front of the game: the REST surface plus the websocket
// gateway, over the room directory.
type Server struct {
	directory   *room.Directory
	router      *chi.Mux
	gateway     *WSGateway
	rateLimiter *IPRateLimiter
}

// NewServer builds a server with production defaults. No listeners or
// background workers start until Start; tests use Router with httptest.
func NewServer(directory *room.Directory) *Server {
	s := &Server{
		directory:   directory,
		gateway:     NewWSGateway(),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}
	directory.SetTickObserver(RecordTick)
	s.router = NewRouter(RouterConfig{
		Directory:   directory,
		Gateway:     s.gateway,
		RateLimiter: s.rateLimiter,
	})
	return s
}

// Router returns the handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves HTTP on addr; blocks until the listener fails.
func (s *Server) Start(addr string) error {
	log.Printf("api server on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Stop releases background resources.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.directory.Shutdown()
}
