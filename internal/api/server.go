// Package api exposes the vault core over a local JSON facade. The
// facade carries no session layer; the authenticated account id is
// passed explicitly on every route, and callers in front of it (the
// desktop UI) own any further access control.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/credvault/internal/account"
	"github.com/org/credvault/internal/audit"
	"github.com/org/credvault/internal/credential"
	"github.com/org/credvault/internal/storage"
	"github.com/org/credvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string
	DBUrl         string
	MigrationsDir string
}

// AuditLogger is the interface the server needs from an audit logger.
type AuditLogger interface {
	Record(ctx context.Context, entry *models.AuditEntry)
	Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error)
}

// Server is the API server.
type Server struct {
	store    storage.Store
	accounts *account.Service
	vault    *credential.Vault
	auditor  AuditLogger
	cfg      Config
	httpSrv  *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(store storage.Store, cfg Config) *Server {
	return &Server{
		store:    store,
		accounts: account.NewService(store),
		vault:    credential.NewVault(store),
		auditor:  audit.NewLogger(store),
		cfg:      cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(auditMiddleware(s.auditor))

	// Prometheus metrics
	r.Handle("/metrics", MetricsHandler())

	r.Get("/v1/sys/health", s.HealthHandler)
	r.Get("/v1/sys/audit-log", s.AuditLogHandler)

	// Accounts
	r.Post("/v1/accounts", s.RegisterHandler)
	r.Post("/v1/login", s.LoginHandler)
	r.Post("/v1/password-reset", s.ResetRequestHandler)
	r.Post("/v1/password-reset/confirm", s.ResetConfirmHandler)
	r.Route("/v1/accounts/{id}", func(r chi.Router) {
		r.Get("/", s.AccountInfoHandler)
		r.Post("/password", s.ChangePasswordHandler)
		r.Patch("/profile", s.UpdateProfileHandler)
		r.Post("/deactivate", s.DeactivateHandler)

		// Credentials, owner-scoped
		r.Post("/credentials", s.CredentialAddHandler)
		r.Get("/credentials", s.CredentialListHandler)
		r.Get("/credentials/search", s.CredentialSearchHandler)
		r.Get("/credentials/{credID}", s.CredentialGetHandler)
		r.Patch("/credentials/{credID}", s.CredentialUpdateHandler)
		r.Delete("/credentials/{credID}", s.CredentialDeleteHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.BuildRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// refreshGauges re-reads the domain gauges from storage. Failures only
// leave the gauges stale, so they are logged and dropped.
func (s *Server) refreshGauges(ctx context.Context) {
	if n, err := s.store.CountActiveAccounts(ctx); err == nil {
		activeAccountsTotal.Set(float64(n))
	} else {
		log.Debug().Err(err).Msg("counting accounts")
	}
	if n, err := s.store.CountActiveCredentials(ctx); err == nil {
		activeCredentialsTotal.Set(float64(n))
	} else {
		log.Debug().Err(err).Msg("counting credentials")
	}
}
