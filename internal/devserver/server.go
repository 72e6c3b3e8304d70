// ABOUTME: Dev backend server hosting the conversation HTTP API.
// ABOUTME: Owns the store, engine, broadcaster, and listener lifecycle.

package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/hcnode/cui/internal/assets"
	"github.com/hcnode/cui/internal/auth"
	"github.com/hcnode/cui/internal/config"
	"github.com/hcnode/cui/internal/conversation"
	"github.com/hcnode/cui/internal/store"
)

// Server hosts the dev backend: a simulated conversation engine behind the
// HTTP API the cui client speaks.
type Server struct {
	config      *config.Config
	store       store.Store
	engine      *conversation.Engine
	broadcaster *conversation.EventBroadcaster
	metrics     *metrics
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
	startedAt   time.Time
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("CUI_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Server with the given configuration, opening the SQLite
// store at the configured path.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, s, logger)
}

// NewWithStore creates a Server on an existing store. Tests use it to run
// against the in-memory mock.
func NewWithStore(cfg *config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	m := newMetrics()
	broadcaster := conversation.NewEventBroadcaster(logger.With("component", "broadcaster"))
	engine := conversation.NewEngine(st, broadcaster, conversation.Options{
		Logger:          logger.With("component", "engine"),
		StepDelay:       cfg.Engine.StepDelay,
		DecisionTimeout: cfg.Engine.DecisionTimeout,
		Hooks:           m.engineHooks(),
	})

	srv := &Server{
		config:      cfg,
		store:       st,
		engine:      engine,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger.With("component", "devserver"),
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()

	// Health, metrics, and the status page never require auth
	mux.HandleFunc("/healthz", srv.handleHealthz)
	if cfg.Metrics.Enabled {
		metricsPath := cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle(metricsPath, m.handler())
	}
	mux.HandleFunc("/", srv.handleIndex)

	srv.registerAPIRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// registerAPIRoutes registers API routes on the mux with or without auth
// middleware depending on whether a JWT secret is configured.
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	if s.config.Auth.JWTSecret != "" {
		verifier := auth.NewJWTVerifier([]byte(s.config.Auth.JWTSecret))
		authMiddleware := auth.HTTPAuthMiddleware(verifier)
		mux.Handle("/api/conversations", authMiddleware(http.HandlerFunc(s.handleConversations)))
		mux.Handle("/api/conversations/", authMiddleware(http.HandlerFunc(s.handleConversationRoutes)))
		mux.Handle("/api/stream/", authMiddleware(http.HandlerFunc(s.handleStreamRoutes)))
		mux.Handle("/api/permissions", authMiddleware(http.HandlerFunc(s.handleListPermissions)))
		mux.Handle("/api/permissions/", authMiddleware(http.HandlerFunc(s.handlePermissionRoutes)))
		mux.Handle("/api/filesystem/list", authMiddleware(http.HandlerFunc(s.handleListDirectory)))
		mux.Handle("/api/commands", authMiddleware(http.HandlerFunc(s.handleListCommands)))
		s.logger.Info("HTTP auth middleware enabled")
	} else {
		mux.HandleFunc("/api/conversations", s.handleConversations)
		mux.HandleFunc("/api/conversations/", s.handleConversationRoutes)
		mux.HandleFunc("/api/stream/", s.handleStreamRoutes)
		mux.HandleFunc("/api/permissions", s.handleListPermissions)
		mux.HandleFunc("/api/permissions/", s.handlePermissionRoutes)
		mux.HandleFunc("/api/filesystem/list", s.handleListDirectory)
		mux.HandleFunc("/api/commands", s.handleListCommands)
		s.logger.Warn("HTTP auth disabled - no jwt_secret configured")
	}
}

// Handler returns the root HTTP handler. Tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupTCPListener creates a standard TCP listener for the HTTP server.
func (s *Server) setupTCPListener() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// setupListener creates a listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled",
				"http_addr", s.config.Server.HTTPAddr,
			)
		}
		return s.setupTailscaleListener(ctx)
	}
	return s.setupTCPListener()
}

// resolveTailscaleStateDir returns the state directory, using a default
// under the user's data dir if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "cui", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", fmt.Errorf("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

// setupTailscaleListener creates a tsnet server and returns its HTTP listener.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	ln, err := s.tsnetServer.Listen("tcp", ":80")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
	}
	return ln, nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// Run starts the server and blocks until the context is canceled or the
// listener fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the server and releases all resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dev backend")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	// Aborted turns still publish their final events, so the engine must
	// close before the broadcaster tears down subscriber channels
	s.engine.Close()
	s.broadcaster.Close()

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", s.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealthz returns 200 OK if the server is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex serves the embedded status page at the root path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sessions, err := s.store.ListSessions(r.Context(), 0)
	if err != nil {
		s.logger.Error("failed to list sessions for status page", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	ongoing := 0
	for _, session := range sessions {
		if session.Status == store.SessionOngoing {
			ongoing++
		}
	}

	data := assets.StatusData{
		Addr:           s.config.Server.HTTPAddr,
		Uptime:         time.Since(s.startedAt).Round(time.Second).String(),
		SessionCount:   len(sessions),
		OngoingCount:   ongoing,
		AuthEnabled:    s.config.Auth.JWTSecret != "",
		MetricsEnabled: s.config.Metrics.Enabled,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := assets.RenderStatus(w, data); err != nil {
		s.logger.Error("failed to render status page", "error", err)
	}
}
