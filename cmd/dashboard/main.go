package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"IndexWatch/internal/api"
	"IndexWatch/internal/cache"
	"IndexWatch/internal/config"
	"IndexWatch/internal/orchestrator"
	"IndexWatch/internal/provider"
	"IndexWatch/internal/recorder"
	"IndexWatch/internal/scheduler"
	"IndexWatch/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] IndexWatch starting...")

	// Local development keeps the data API token in .env; absence is fine.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Threshold/journal state
	st, err := store.Load(cfg.Data.StateFile, cfg.IndexNames())
	if err != nil {
		log.Fatalf("[FATAL] load state: %v", err)
	}

	// Fetch history recorder
	var rec recorder.Recorder
	if cfg.Data.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Data.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Provider chain. The official cross-border adapter exists only when its
	// credential is configured; otherwise the fund proxy carries that index.
	adapters := orchestrator.Adapters{
		Domestic: provider.NewEastmoneyIndexFetcher(cfg.Proxy),
		HongKong: provider.NewHongKongIndexFetcher(cfg.Proxy),
		US:       provider.NewSinaUSFetcher(cfg.Proxy),
		Proxy:    provider.NewFundProxyFetcher(),
	}
	if cfg.Source.TushareToken != "" {
		adapters.Official = provider.NewTushareFetcher(cfg.Source.TushareToken)
		log.Println("[INFO] official cross-border source enabled")
	} else {
		log.Println("[INFO] no data API token, cross-border index uses fund proxy only")
	}

	descriptors := cfg.Descriptors()
	orch := orchestrator.New(descriptors, adapters, cache.New(cfg.CacheTTL(), nil), rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background cache warming
	sched := scheduler.NewScheduler(ctx, orch, descriptors)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register refresh task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, warming cache now")
		go sched.RunNow()
	}

	// HTTP boundary for the UI
	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: api.NewServer(orch, st, rec, cfg.Groups).Handler(),
	}
	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	log.Println("[INFO] IndexWatch is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] IndexWatch stopped")
}
