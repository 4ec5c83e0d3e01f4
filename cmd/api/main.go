package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"leadsniper.app/internal/audit"
	"leadsniper.app/internal/auth"
	"leadsniper.app/internal/config"
	"leadsniper.app/internal/genai"
	"leadsniper.app/internal/httpapi"
	"leadsniper.app/internal/lead"
	"leadsniper.app/internal/obs"
	"leadsniper.app/internal/pitch"
	"leadsniper.app/internal/profile"
	"leadsniper.app/internal/ratelimit"
	"leadsniper.app/internal/retry"
	"leadsniper.app/internal/store/pg"
	"leadsniper.app/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		profiles profile.Store
		leads    lead.Store
		recorder pitch.Recorder
		pgStore  *pg.Store
	)
	if cfg.PGDSN != "" {
		pgStore, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		profiles = pgStore.Profiles()
		leads = pgStore.Leads()
		recorder = pgStore
	} else {
		log.Println("no LEADSNIPER_PG_DSN set, using in-memory stores")
		profiles = profile.NewInMemory()
		leads = lead.NewInMemory()
	}

	// Per-user pitch rate limiter: Redis when configured, otherwise a
	// process-local fixed window.
	var limiter ratelimit.Limiter
	var fixed *ratelimit.FixedWindow
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimit, cfg.RateWindow)
		defer rdb.Close()
	} else {
		fixed = ratelimit.NewFixedWindow(cfg.RateLimit, cfg.RateWindow)
		limiter = fixed
	}

	if cfg.AuthSecret == "" {
		log.Println("warning: LEADSNIPER_AUTH_SECRET not set, session tokens disabled")
	}

	provider, err := genai.NewGroq(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.Model)
	if err != nil {
		log.Fatalf("groq client: %v", err)
	}

	events := stream.New()
	svcOpts := []pitch.ServiceOption{
		pitch.WithEvents(events),
		pitch.WithTemperature(cfg.Temperature),
	}
	if recorder != nil {
		svcOpts = append(svcOpts, pitch.WithRecorder(recorder))
	}
	pitches := pitch.NewService(provider, profiles, leads, retry.New(cfg.MaxRetries), svcOpts...)

	var db *sql.DB
	if pgStore != nil {
		db = pgStore.DB()
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, httpapi.Deps{
		Auth:         auth.New(cfg.AuthSecret),
		Profiles:     profiles,
		Leads:        leads,
		Limiter:      limiter,
		Pitches:      pitches,
		Events:       events,
		CronSecret:   cfg.CronSecret,
		FreeCredits:  cfg.FreeCredits,
		IPRateBurst:  cfg.IPRateBurst,
		IPRatePerSec: cfg.IPRatePerSec,
	})

	// Optional in-process scheduler for the monthly free-credit reset. The
	// HTTP endpoint stays available for external schedulers either way.
	var sched *cron.Cron
	if cfg.CreditResetSpec != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.CreditResetSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			updated, err := profiles.ResetFreeCredits(ctx, cfg.FreeCredits)
			if err != nil {
				log.Printf("credit reset: %v", err)
				return
			}
			_ = audit.LogEvent(ctx, "credits.reset", map[string]any{
				"updated": updated,
				"credits": cfg.FreeCredits,
			})
		})
		if err != nil {
			log.Fatalf("credit reset schedule %q: %v", cfg.CreditResetSpec, err)
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No write timeout: /v1/stream holds SSE connections open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting leadsniper-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if sched != nil {
		<-sched.Stop().Done()
	}
	pitches.Wait()
	if fixed != nil {
		fixed.Stop()
	}
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
