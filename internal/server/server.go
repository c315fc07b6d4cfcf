package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/analysis"
	"github.com/jonathan/resumind/internal/config"
	"github.com/jonathan/resumind/internal/docstore"
	"github.com/jonathan/resumind/internal/resumes"
	"github.com/jonathan/resumind/internal/server/middleware"
	"github.com/jonathan/resumind/internal/server/ratelimit"
	"github.com/jonathan/resumind/internal/storage"
	"github.com/jonathan/resumind/internal/users"
	"github.com/jonathan/resumind/internal/web"
)

// Deps are the services the server routes to.
type Deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Users       *users.Service
	JWT         *JWTService
	Resumes     *resumes.Service
	Analyzer    *analysis.Analyzer
	Files       *storage.Local
	Docs        *docstore.Store
	Renderer    *web.Renderer
	RateLimiter *ratelimit.Limiter
	// Ping checks the backing stores for /health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	router      chi.Router
	cfg         *config.Config
	logger      *zap.Logger
	users       *users.Service
	jwtService  *JWTService
	resumes     *resumes.Service
	analyzer    *analysis.Analyzer
	files       *storage.Local
	docs        *docstore.Store
	renderer    *web.Renderer
	rateLimiter *ratelimit.Limiter
	authHandler *AuthHandler
	ping        func(ctx context.Context) error
}

// New creates a new server instance
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Users == nil || deps.JWT == nil || deps.Resumes == nil || deps.Analyzer == nil || deps.Files == nil {
		return nil, errors.New("server: users, jwt, resumes, analyzer and files are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer := deps.Renderer
	if renderer == nil {
		var err error
		if renderer, err = web.NewRenderer(); err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      logger,
		users:       deps.Users,
		jwtService:  deps.JWT,
		resumes:     deps.Resumes,
		analyzer:    deps.Analyzer,
		files:       deps.Files,
		docs:        deps.Docs,
		renderer:    renderer,
		rateLimiter: limiter,
		authHandler: NewAuthHandler(deps.Users, deps.JWT, logger),
		ping:        deps.Ping,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.withRateLimit)

	validator := s.jwtService.AsTokenValidator()

	r.Get("/health", s.handleHealth)

	assets := http.FileServerFS(web.Static())
	for _, prefix := range []string{"/css/*", "/icons/*", "/js/*"} {
		r.Handle(prefix, assets)
	}

	// Pages that work signed out.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(validator))
		r.Get("/auth", s.handleAuthPage)
		r.Post("/auth/{action}", s.handleAuthForm)
		r.Post("/logout", s.handleLogoutForm)
	})

	// Pages that need a session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePage(validator))
		r.Get("/", s.handleHomePage)
		r.Get("/upload", s.handleUploadPage)
		r.Post("/upload", s.handleUploadForm)
		r.Get("/resume/{id}", s.handleResumePage)
		r.Post("/resume/{id}/delete", s.handleDeleteForm)
		r.Get("/wipe", s.handleWipePage)
		r.Post("/wipe", s.handleWipeForm)
		r.Get("/files/*", s.handleFile)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.authHandler.Register)
		r.Post("/auth/login", s.authHandler.Login)
		r.Post("/auth/guest", s.authHandler.Guest)
		r.Post("/auth/logout", s.authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(validator))
			r.Get("/auth/me", s.authHandler.Me)
			r.Put("/auth/password", s.authHandler.UpdatePassword)

			r.Get("/resumes", s.handleListResumes)
			r.Post("/resumes", s.handleCreateResume)
			r.Get("/resumes/{id}", s.handleGetResume)
			r.Delete("/resumes/{id}", s.handleDeleteResume)
			r.Get("/files", s.handleListFiles)
			r.Post("/wipe", s.handleWipe)

			r.Get("/feedback", s.handleListFeedback)
			r.Get("/feedback/top", s.handleTopMatches)
			r.Post("/feedback", s.handleAddFeedback)
			r.Post("/reviews", s.handleAddReview)
			r.Get("/analyses", s.handleListAnalyses)
		})
	})

	r.NotFound(s.handleNotFound)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.logger.Warn("rate limit exceeded",
				zap.String("client", clientID),
				zap.String("path", r.URL.Path),
				zap.Int("limit", info.Limit),
				zap.Time("reset", info.ResetTime))
			rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// extractClientID extracts the client identifier from the request.
// RealIP has already replaced RemoteAddr with the forwarded address when present.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		response["retry_after"] = secs
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	}

	jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}
