package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdulaziz27/analisisaham-ai/internal/config"
	"github.com/abdulaziz27/analisisaham-ai/internal/db"
	"github.com/abdulaziz27/analisisaham-ai/internal/httpapi"
	"github.com/abdulaziz27/analisisaham-ai/internal/llm"
	"github.com/abdulaziz27/analisisaham-ai/internal/logging"
	"github.com/abdulaziz27/analisisaham-ai/internal/notify"
	"github.com/abdulaziz27/analisisaham-ai/internal/payment"
	"github.com/abdulaziz27/analisisaham-ai/internal/quota"
	"github.com/abdulaziz27/analisisaham-ai/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if errRun := run(*configPath); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}

func run(configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	ledger := quota.NewLedger(conn)
	store := payment.NewStore(conn)
	gateway := payment.NewMidtransGateway(cfg.Midtrans.ServerKey, cfg.Midtrans.Production)
	notifier := notify.NewTelegramNotifier(cfg.Telegram.BotToken)
	reconciler := payment.NewReconciler(conn, ledger, notifier)
	service := payment.NewService(store, gateway)

	var analyzeHandler *httpapi.AnalyzeHandler
	if cfg.Gemini.APIKey != "" {
		generator, errGen := llm.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if errGen != nil {
			return errGen
		}
		defer func() { _ = generator.Close() }()
		analyzeHandler = httpapi.NewAnalyzeHandler(ledger, generator)
	} else {
		log.Warn("gemini api key not configured, /api/analyze disabled")
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		limiter = ratelimit.NewWithRedis(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, rdb)
	} else {
		limiter = ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour)
	}

	engine := httpapi.NewRouter(httpapi.Deps{
		Quota:   httpapi.NewQuotaHandler(ledger),
		Payment: httpapi.NewPaymentHandler(service, reconciler),
		Analyze: analyzeHandler,
		Limiter: limiter,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case errServe := <-errCh:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
	}
	return nil
}
