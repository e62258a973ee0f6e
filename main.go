package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lodging-ledger/internal/audit"
	"lodging-ledger/internal/auth"
	"lodging-ledger/internal/config"
	lodgingapp "lodging-ledger/internal/lodging/application"
	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/infrastructure"
	lodginghttp "lodging-ledger/internal/lodging/interfaces/http"
	"lodging-ledger/internal/lodging/notify"
	"lodging-ledger/internal/observability/logging"
	"lodging-ledger/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("timezone load failed", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := infrastructure.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage open failed", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	metrics.Init()
	metrics.RegisterLedgerGauges(store.Gateway, logger)

	auditLoggers := audit.Multi{audit.NewSlogLogger(logger)}
	if store.Postgres != nil {
		repo := audit.NewRepository(store.Postgres.DB())
		if err := repo.Migrate(ctx); err != nil {
			logger.Warn("audit migrate failed", "error", err)
		} else {
			auditLoggers = append(auditLoggers, repo)
		}
	}

	opts := []lodgingapp.Option{lodgingapp.WithLogger(logger)}
	if cfg.Notify.WebhookURL != "" {
		notifier, err := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
		if err != nil {
			logger.Error("webhook notifier init failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, lodgingapp.WithNotifier(notifier))
	}
	ledgerService, err := lodgingapp.NewLedgerService(store.Gateway, lodging.SystemClock{Location: loc}, opts...)
	if err != nil {
		logger.Error("ledger service init failed", "error", err)
		os.Exit(1)
	}
	recordsService, err := lodgingapp.NewRecordsService(store.Gateway, ledgerService.Locker())
	if err != nil {
		logger.Error("records service init failed", "error", err)
		os.Exit(1)
	}

	lodgingHandler, err := lodginghttp.NewHandler(ledgerService, auditLoggers, logger)
	if err != nil {
		logger.Error("lodging handler init failed", "error", err)
		os.Exit(1)
	}
	recordsHandler, err := lodginghttp.NewRecordsHandler(recordsService, auditLoggers, logger)
	if err != nil {
		logger.Error("records handler init failed", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/lodging", lodgingHandler)
	mux.Handle("/api/lodging/", lodgingHandler)
	mux.Handle("/api/hospedagem", lodgingHandler)
	mux.Handle("/api/hospedagem/", lodgingHandler)
	mux.Handle("/api/database/tables", recordsHandler)
	mux.Handle("/api/database/tables/", recordsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	if cfg.Auth.JWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), policy).Wrap(handler)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, api is unauthenticated")
	}
	handler = lodginghttp.CORS(cfg.HTTP.CORSAllowedOrigins)(handler)
	handler = lodginghttp.RequestID(loggingMiddleware(handler, logger))

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", "error", err)
		}
	}()

	logger.Info("http listening", "addr", cfg.HTTP.Addr, "backend", store.Backend, "timezone", loc.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func loggingMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, strconv.Itoa(resp.status))
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.status,
			"duration", time.Since(start),
			"request_id", lodginghttp.RequestIDFromContext(r.Context()),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
