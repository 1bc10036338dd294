package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"portal/internal/app"
	"portal/internal/auth"
	"portal/internal/db"
	httpx "portal/internal/http"
	"portal/internal/metrics"
	"portal/internal/repository"
	"portal/internal/service"
	"portal/internal/validate"
)

func main() {
	cfg, err := app.LoadConfig()
	app.Must(err)
	log := app.NewLogger("portal", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(ctx, cfg.DatabaseURL, db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	app.Must(err)
	defer d.Close()
	app.Must(db.Migrate(ctx, d))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]httpx.Check{"database": d.PingContext}

	var sessions auth.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		app.Must(err)
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		app.Must(rdb.Ping(ctx).Err())
		sessions = auth.NewRedisSessions(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	default:
		pg := auth.NewPostgresSessions(d)
		sessions = pg
		go purgeSessions(ctx, pg, log)
	}
	go recordPoolStats(ctx, d, m)

	v := validate.New()
	users := repository.NewUserRepository(d)
	reports := repository.NewReportRepository(d)
	articles := repository.NewArticleRepository(d)
	comments := repository.NewCommentRepository(d)

	srv := httpx.NewServer(httpx.Deps{
		Auth:           auth.NewService(users, sessions, v, cfg.SessionLifetime, log),
		Reports:        service.NewReportService(reports, v, m, log),
		Articles:       service.NewArticleService(articles, comments, v, m, log),
		Comments:       service.NewCommentService(articles, comments, v, m, log),
		Dashboard:      service.NewDashboardService(users, reports, articles),
		Metrics:        m,
		Log:            log,
		Checks:         checks,
		RequestTimeout: cfg.RequestTimeout,
	})

	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func purgeSessions(ctx context.Context, s *auth.PostgresSessions, log logrus.FieldLogger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.WithError(err).Warn("purge sessions")
				continue
			}
			if n > 0 {
				log.WithField("removed", n).Info("expired sessions purged")
			}
		}
	}
}

func recordPoolStats(ctx context.Context, d *sql.DB, m *metrics.Metrics) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.RecordDBPoolStats(d.Stats())
		}
	}
}
