package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/domain/audit"
	"staffhub/internal/platform/config"
	cryptoutil "staffhub/internal/platform/crypto"
	"staffhub/internal/platform/db"
	"staffhub/internal/platform/email"
	"staffhub/internal/platform/i18n"
	"staffhub/internal/platform/jobs"
	"staffhub/internal/platform/metrics"
	"staffhub/internal/platform/notify"
	attendancehandler "staffhub/internal/transport/http/handlers/attendance"
	audithandler "staffhub/internal/transport/http/handlers/audit"
	"staffhub/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// deps is everything the router needs beyond config.
type deps struct {
	DB         pinger
	Attendance *attendancehandler.Handler
	Audit      *audithandler.Handler
	Metrics    *metrics.Collector
	Translator *i18n.Translator
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, "up"); err != nil {
			return err
		}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sealer, err := cryptoutil.New(cfg.DataEncryptionKey, cryptoutil.PurposeLocation)
	if err != nil {
		return err
	}
	if !sealer.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set; punch locations are stored unencrypted")
	}

	tr, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return err
	}

	collector := metrics.New()

	store := attendance.NewStore(pool, sealer)
	engine := attendance.NewService(store, cfg.Attendance,
		attendance.WithTransactionManager(db.NewTxManager(pool)),
		attendance.WithNotifier(newNotifier(cfg, tr)),
		attendance.WithRecorder(collector),
	)

	jobsSvc := jobs.New(pool, cfg, engine, store)
	jobsSvc.Start(ctx)

	auditSvc := audit.New(pool)
	router := newRouter(cfg, deps{
		DB:         pool,
		Attendance: attendancehandler.NewHandler(engine, jobsSvc, auditSvc, tr, middleware.NewIdempotencyStore(pool)),
		Audit:      audithandler.NewHandler(auditSvc),
		Metrics:    collector,
		Translator: tr,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("staffhub server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg config.Config, d deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(d.Metrics))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Locale(d.Translator.Supported()))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && d.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		d.Attendance.RegisterRoutes(r)
		d.Audit.RegisterRoutes(r)
	})
	return router
}

// newNotifier picks the configured alert channels, falling back to the log.
func newNotifier(cfg config.Config, tr *i18n.Translator) attendance.Notifier {
	var channels notify.Multi
	if cfg.SlackBotToken != "" {
		channels = append(channels, notify.NewSlack(cfg.SlackBotToken, cfg.SlackAlertChannel, tr))
	}
	if cfg.EmailEnabled {
		channels = append(channels, notify.NewEmail(email.New(cfg), cfg.AlertEmailFrom, cfg.AlertEmailTo, tr))
	}
	if len(channels) == 0 {
		return notify.Log{}
	}
	return channels
}
