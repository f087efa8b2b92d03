// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okutsev/fleetwatch/api/openapi"
	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/alerts/email"
	alertsmemory "github.com/okutsev/fleetwatch/internal/alerts/memory"
	alertspostgres "github.com/okutsev/fleetwatch/internal/alerts/postgres"
	"github.com/okutsev/fleetwatch/internal/alerts/slack"
	"github.com/okutsev/fleetwatch/internal/alerts/teams"
	"github.com/okutsev/fleetwatch/internal/alerts/webhook"
	"github.com/okutsev/fleetwatch/internal/collectors"
	collectorsmemory "github.com/okutsev/fleetwatch/internal/collectors/memory"
	collectorspostgres "github.com/okutsev/fleetwatch/internal/collectors/postgres"
	"github.com/okutsev/fleetwatch/internal/config"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/identity"
	"github.com/okutsev/fleetwatch/internal/identity/jwt"
	identitymemory "github.com/okutsev/fleetwatch/internal/identity/memory"
	identitypostgres "github.com/okutsev/fleetwatch/internal/identity/postgres"
	"github.com/okutsev/fleetwatch/internal/pkg/ctxlog"
	"github.com/okutsev/fleetwatch/internal/pkg/httputil"
	"github.com/okutsev/fleetwatch/internal/pkg/metrics"
	"github.com/okutsev/fleetwatch/internal/pkg/postgres"
	"github.com/okutsev/fleetwatch/internal/servers"
	serversmemory "github.com/okutsev/fleetwatch/internal/servers/memory"
	serverspostgres "github.com/okutsev/fleetwatch/internal/servers/postgres"
	"github.com/okutsev/fleetwatch/internal/version"
	"github.com/okutsev/fleetwatch/migrations"
)

// repositories groups the per-feature stores behind one storage driver.
type repositories struct {
	alerts     alerts.Repository
	collectors collectors.Repository
	servers    servers.Repository
	users      identity.Repository
}

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	dispatchWorker  *alerts.Worker
	livenessMonitor *collectors.Monitor
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
	}

	repos, err := app.setupStorage(cfg)
	if err != nil {
		metricsCancel()
		return nil, err
	}

	if app.db != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	router, err := app.setupRouter(metricsCtx, repos)
	if err != nil {
		if app.db != nil {
			app.db.Close()
		}
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// setupStorage builds the repository set for the configured driver. The
// postgres driver connects, migrates, and shares one pool across features;
// the memory driver needs no external services and seeds a bootstrap admin.
func (a *App) setupStorage(cfg *config.Config) (*repositories, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer cancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}

		if err := postgres.Migrate(migrations.FS, cfg.Database.URL); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		a.db = db
		return &repositories{
			alerts:     alertspostgres.NewRepository(db),
			collectors: collectorspostgres.NewRepository(db),
			servers:    serverspostgres.NewRepository(db),
			users:      identitypostgres.NewRepository(db),
		}, nil

	case "memory":
		slog.Warn("using in-memory storage: all state is lost on restart")

		userRepo := identitymemory.NewRepository()
		if err := userRepo.SeedAdmin("admin", "password"); err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}

		return &repositories{
			alerts:     alertsmemory.NewRepository(),
			collectors: collectorsmemory.NewRepository(),
			servers:    serversmemory.NewRepository(),
			users:      userRepo,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Run starts the HTTP servers and background loops.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop background loops before the servers so no cycle races a closing
	// repository.
	if a.dispatchWorker != nil {
		a.dispatchWorker.Stop()
	}
	if a.livenessMonitor != nil {
		a.livenessMonitor.Stop()
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// DispatchWorker returns the notification dispatch loop instance. Used in
// tests to access loop state.
func (a *App) DispatchWorker() *alerts.Worker {
	return a.dispatchWorker
}

func (a *App) setupRouter(ctx context.Context, repos *repositories) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		doc, err := openapi.FS.ReadFile("openapi.yaml")
		if err != nil {
			httputil.Error(w, http.StatusInternalServerError, "openapi document unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(doc)
	})

	emailSender, err := email.NewSender(email.Config{
		Enabled:      a.config.Alerting.Email.Enabled,
		SMTPHost:     a.config.Alerting.Email.SMTPHost,
		SMTPPort:     a.config.Alerting.Email.SMTPPort,
		SMTPUser:     a.config.Alerting.Email.SMTPUser,
		SMTPPassword: a.config.Alerting.Email.SMTPPassword,
		FromAddress:  a.config.Alerting.Email.FromAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("create email sender: %w", err)
	}
	if !a.config.Alerting.Email.Enabled {
		slog.Warn("email sender is disabled: email notifications will not be sent")
	}

	slackSender := slack.NewSender(slack.Config{
		Enabled:   a.config.Alerting.Slack.Enabled,
		Username:  a.config.Alerting.Slack.Username,
		IconURL:   a.config.Alerting.Slack.IconURL,
		RateLimit: a.config.Alerting.Slack.RateLimit,
		Timeout:   a.config.Alerting.Slack.Timeout,
	})

	teamsSender := teams.NewSender(teams.Config{
		Enabled: a.config.Alerting.Teams.Enabled,
		Timeout: a.config.Alerting.Teams.Timeout,
	})

	webhookSender := webhook.NewSender(webhook.Config{
		Enabled: a.config.Alerting.Webhook.Enabled,
		Timeout: a.config.Alerting.Webhook.Timeout,
	})

	dispatcher := alerts.NewDispatcher(emailSender, slackSender, teamsSender, webhookSender)
	renderer := alerts.NewRenderer()

	a.dispatchWorker = alerts.NewWorker(alerts.WorkerConfig{
		Interval: a.config.Alerting.DispatchInterval,
	}, repos.alerts, dispatcher, renderer)
	a.dispatchWorker.Start(ctx)

	a.livenessMonitor = collectors.NewMonitor(collectors.MonitorConfig{
		Interval:   a.config.Collectors.MonitorInterval,
		StaleAfter: a.config.Collectors.StaleAfter,
	}, repos.collectors)
	a.livenessMonitor.Start(ctx)

	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		SecretKey: a.config.JWT.SecretKey,
		TokenTTL:  a.config.JWT.AccessTokenDuration,
	})
	identityService := identity.NewService(repos.users, jwtAuth)
	identityHandler := identity.NewHandler(identityService)

	alertsService := alerts.NewService(repos.alerts)
	alertsHandler := alerts.NewHandler(alertsService)

	collectorsService := collectors.NewService(repos.collectors)
	collectorsHandler := collectors.NewHandler(collectorsService)

	serversService := servers.NewService(repos.servers)
	serversHandler := servers.NewHandler(serversService)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			alertsHandler.RegisterRoutes(r)
			collectorsHandler.RegisterRoutes(r)
			serversHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				alertsHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
