package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/productcatalog/apiserver/config"
	"github.com/productcatalog/apiserver/internal/auth"
	"github.com/productcatalog/apiserver/internal/db"
	"github.com/productcatalog/apiserver/internal/handlers"
	"github.com/productcatalog/apiserver/internal/logging"
	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Users      services.UserRepository
	Categories services.CategoryRepository
	Products   services.ProductRepository
	Events     services.EventPublisher
	Tokens     handlers.Tokens

	AllowedOrigin string
	SecureCookie  bool
	Log           logrus.FieldLogger
}

// Server wraps the HTTP server and its resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sqlx.DB
	publisher  *mq.Publisher
	log        logrus.FieldLogger
}

// New opens the database and the event backend and builds the router.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := mq.NewBackend(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init event backend: %w", err)
	}
	publisher := mq.New(backend)

	router := NewRouter(Deps{
		Users:         store.NewUserRepository(dbConn),
		Categories:    store.NewCategoryRepository(dbConn),
		Products:      store.NewProductRepository(dbConn),
		Events:        publisher,
		Tokens:        auth.NewTokens(jwtSecret, cfg.Auth.TokenTTL),
		AllowedOrigin: cfg.CORS.AllowedOrigin,
		SecureCookie:  cfg.IsProduction(),
		Log:           log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"env":        cfg.Env,
		"mq_backend": cfg.MQBackend,
	}).Debug("server configured")

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		log:        log,
	}, nil
}

// NewRouter assembles middleware and routes. Everything under /api except
// register and login sits behind the session gate.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	userService := services.NewUserService(deps.Users)
	categoryService := services.NewCategoryService(deps.Categories, deps.Events, log)
	productService := services.NewProductService(deps.Products, deps.Events, log)
	authHandler := handlers.NewAuthHandler(userService, deps.Tokens, deps.SecureCookie, log)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:       []string{deps.AllowedOrigin},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization"},
		AllowCredentials:     true,
		OptionsSuccessStatus: http.StatusNoContent,
	})

	router := chi.NewRouter()
	router.Use(
		corsMiddleware.Handler,
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(log),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(handlers.RouteNotFound)
	router.MethodNotAllowed(handlers.RouteNotFound)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Use(handlers.RequireAuth(deps.Tokens))

		handlers.AuthRouter(r, authHandler)
		r.Route("/categories", func(r chi.Router) {
			handlers.CategoryRouter(r, categoryService, log)
		})
		r.Route("/products", func(r chi.Router) {
			handlers.ProductRouter(r, productService, log)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil once Shutdown has been called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the event backend and
// the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.publisher != nil {
		if closeErr := s.publisher.Close(); closeErr != nil {
			s.log.WithError(closeErr).Warn("failed to close event backend")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
