package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

const (
	defaultWriteRateLimit = 60
	defaultMaxUploadSize  = 64 << 20
)

type AuthUseCase = usecase.AuthUseCaseInterface

type Server struct {
	router         *chi.Mux
	uc             *usecase.UseCases
	authUC         AuthUseCase
	allowedOrigins []string
	writeRateLimit int
	maxUploadSize  int64
	upgrader       *websocket.Upgrader
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithAllowedOrigins sets the browser origins accepted by CORS and by the
// WebSocket upgrade
func WithAllowedOrigins(origins []string) Options {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithWriteRateLimit limits write requests per user and minute. Zero or
// less disables the limit.
func WithWriteRateLimit(perMinute int) Options {
	return func(s *Server) {
		s.writeRateLimit = perMinute
	}
}

// WithMaxUploadSize bounds the body of a case submission
func WithMaxUploadSize(size int64) Options {
	return func(s *Server) {
		s.maxUploadSize = size
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:         r,
		uc:             uc,
		authUC:         uc.Auth,
		allowedOrigins: []string{"http://localhost:5173"},
		writeRateLimit: defaultWriteRateLimit,
		maxUploadSize:  defaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = newUpgrader(s.allowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLogger)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC, false))

		writes := s.writeLimiter()

		r.Route("/cases", func(r chi.Router) {
			r.Get("/", s.listCases)
			r.Get("/export", s.exportCases)
			r.With(writes).Post("/", s.createCase)

			r.Route("/{caseID}", func(r chi.Router) {
				r.Get("/", s.getCase)
				r.With(writes).Patch("/status", s.updateCaseStatus)
				r.Get("/actions", s.listActions)
				r.With(writes).Post("/actions", s.logAction)
				r.Get("/conversations", s.listCaseConversations)
			})
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversations)
			r.With(writes).Post("/", s.createConversation)

			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/", s.getConversation)
				r.Get("/messages", s.getMessages)
				r.With(writes).Post("/messages", s.sendMessage)
				r.With(writes).Post("/participants", s.addParticipant)
				r.Post("/read", s.markAsRead)
			})
		})

		r.Get("/currencies", s.listCurrencies)
		r.Get("/action-types", s.listActionTypes)
		r.Get("/reference/{table}", s.listReference)
	})

	// Browsers cannot set headers on a WebSocket handshake, so the token may
	// also come from the access_token query parameter here.
	r.With(authMiddleware(s.authUC, true)).Get("/ws", s.realtime)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) writeLimiter() func(http.Handler) http.Handler {
	if s.writeRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return userRateLimit(s.writeRateLimit, time.Minute)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
