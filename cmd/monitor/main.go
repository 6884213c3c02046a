package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hamed0406/outagemon/internal/config"
	"github.com/hamed0406/outagemon/internal/devices"
	"github.com/hamed0406/outagemon/internal/httpapi"
	"github.com/hamed0406/outagemon/internal/logging"
	"github.com/hamed0406/outagemon/internal/probe"
	"github.com/hamed0406/outagemon/internal/scheduler"
	"github.com/hamed0406/outagemon/internal/store"
	"github.com/hamed0406/outagemon/internal/store/file"
	"github.com/hamed0406/outagemon/internal/store/postgres"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// the monitor cannot run without a valid device set
	devs, err := devices.Load(cfg.DevicesCSV)
	if err != nil {
		logger.Fatal("device_list_load_failed", zap.String("path", cfg.DevicesCSV), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.LedgerStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pg.Close()
		st = pg
	} else {
		fs, err := file.New(cfg.OutagesDir)
		if err != nil {
			logger.Fatal("outages_dir_failed", zap.String("dir", cfg.OutagesDir), zap.Error(err))
		}
		st = fs
	}

	checker := probe.NewPinger(cfg.PingTimeout)
	confirmer := &probe.Confirmer{
		Checker:  checker,
		Settle:   cfg.ConfirmSettle,
		Attempts: cfg.ConfirmAttempts,
		Backoff:  cfg.ConfirmBackoff,
	}
	mon := scheduler.NewMonitor(logger, devs, checker, confirmer, st, cfg.PingInterval, cfg.MaxConcurrentProbes)

	if cfg.APIAddr != "" {
		api := httpapi.NewServer(logger, mon)
		srv := &http.Server{Addr: cfg.APIAddr, Handler: api.Router()}
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.APIAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("api_serve_failed", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	fmt.Printf("Monitoring %d devices every %s. Press Ctrl+C to stop.\n", len(devs), cfg.PingInterval)
	if err := mon.Run(ctx); err != nil {
		logger.Error("monitor_failed", zap.Error(err))
	}

	printSummary(mon.Snapshot())
}

func printSummary(snap scheduler.Snapshot) {
	line := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(line)
	fmt.Println("MONITORING SESSION SUMMARY")
	fmt.Println(line)
	fmt.Printf("Total outages today: %d\n", snap.Summary.TotalOutages)
	fmt.Printf("Still open: %d\n", snap.Summary.OpenOutages)

	if len(snap.Summary.ByLocation) > 0 {
		fmt.Println()
		fmt.Println("Outages by location:")
		locs := make([]string, 0, len(snap.Summary.ByLocation))
		for loc := range snap.Summary.ByLocation {
			locs = append(locs, loc)
		}
		sort.Strings(locs)
		for _, loc := range locs {
			fmt.Printf("  %s: %d\n", loc, snap.Summary.ByLocation[loc])
		}
	}
}
