package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/internal/events"
	"github.com/adminpanel/apiserver/internal/services"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	db         *db.DB
	bus        *events.Bus
	log        zerolog.Logger
}

// New opens the database, applies migrations when enabled, seeds the admin
// role and user, and wires the router.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, dbConn); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	var bus *events.Bus
	backend, err := events.NewBackend(ctx, cfg.Events)
	switch {
	case errors.Is(err, events.ErrNoBackend):
	case err != nil:
		_ = dbConn.Close()
		return nil, fmt.Errorf("events backend: %w", err)
	default:
		bus = events.NewBus(backend, cfg.Events.Channel)
		log.Info().Str("backend", cfg.Events.Backend).Str("channel", cfg.Events.Channel).Msg("publishing audit events")
	}

	deps := NewDeps(dbConn, cfg.Hash, bus, log)
	if err := services.Seed(ctx, cfg.Seed, deps.RoleRepo, deps.Users, log); err != nil {
		_ = dbConn.Close()
		if bus != nil {
			_ = bus.Close()
		}
		return nil, fmt.Errorf("seeding: %w", err)
	}

	router := NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 5089
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		log:        log,
	}, nil
}

// Deps are the collaborators the router needs.
type Deps struct {
	DB       *db.DB
	RoleRepo *store.RoleRepository
	Users    *services.UserService
	Roles    *services.RoleService
	Audit    *services.AuditService
	Log      zerolog.Logger
}

// NewDeps builds repositories and services over dbConn. bus may be nil.
func NewDeps(dbConn *db.DB, hash config.HashConfig, bus *events.Bus, log zerolog.Logger) Deps {
	userRepo := store.NewUserRepository(dbConn)
	roleRepo := store.NewRoleRepository(dbConn)
	logRepo := store.NewLogRepository(dbConn)

	var publisher services.EventPublisher
	if bus != nil {
		publisher = bus
	}

	return Deps{
		DB:       dbConn,
		RoleRepo: roleRepo,
		Users:    services.NewUserService(userRepo, services.NewPasswordHasher(hash.Cost, hash.Concurrency)),
		Roles:    services.NewRoleService(roleRepo),
		Audit:    services.NewAuditService(logRepo, publisher, log),
		Log:      log,
	}
}

// Router exposes the router for route registration.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("admin panel listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then releases the database and
// events backend.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.bus != nil {
		err = errors.Join(err, s.bus.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}
