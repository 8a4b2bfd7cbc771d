package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/campus-dsi/pointage-api/internal/reconcile"
	"github.com/campus-dsi/pointage-api/internal/service"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/config"
	"github.com/campus-dsi/pointage-api/pkg/jobs"
	"github.com/campus-dsi/pointage-api/pkg/logger"
)

// Exit codes: 0 all tenants processed, 1 completed with per-tenant warnings,
// 2 invalid arguments or a failure before any tenant ran.
const (
	exitOK       = 0
	exitWarnings = 1
	exitFailure  = 2
)

func main() {
	var (
		hours   int
		dateStr string
		kind    string
	)

	flag.IntVar(&hours, "hours", 0, "Override the cutoff delay in hours")
	flag.StringVar(&dateStr, "date", "", "Backfill a single day (YYYY-MM-DD) instead of using the cutoff")
	flag.StringVar(&kind, "type", "", "Session kind filter: course, exam or both")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		os.Exit(exitFailure)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		os.Exit(exitFailure)
	}
	defer logr.Sync() //nolint:errcheck

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("invalid timezone %q: %v", cfg.Timezone, err)
		os.Exit(exitFailure)
	}

	params := service.BatchParams{CutoffHours: cfg.Reconcile.CutoffHours, Kind: kind}
	if hours > 0 {
		params.CutoffHours = hours
	}
	if dateStr != "" {
		date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			log.Printf("invalid --date %q: expected YYYY-MM-DD", dateStr)
			os.Exit(exitFailure)
		}
		params.Date = &date
	}

	directory := tenant.NewDirectory(cfg.Tenants, logr)
	defer directory.Close()

	policy := reconcile.Policy{
		Grace:          cfg.Reconcile.Grace,
		Cutoff:         time.Duration(params.CutoffHours) * time.Hour,
		EarlyThreshold: cfg.Reconcile.EarlyThreshold,
	}

	engine := service.NewEngine(directory, loc, policy, service.NewMetricsService(), logr)
	runner := jobs.NewRunner(jobs.RunnerConfig{
		Workers:    cfg.Batch.Workers,
		MaxRetries: cfg.Batch.TenantRetry,
		Backoff:    cfg.Batch.RetryBackoff,
		Logger:     logr,
	})
	batch := service.NewBatchService(directory.IDs(), engine, runner, logr)

	report, err := batch.Run(context.Background(), params)
	if err != nil {
		log.Printf("batch run failed: %v", err)
		os.Exit(exitFailure)
	}

	for _, stats := range report.Tenants {
		fmt.Printf("tenant %-20s sessions=%-4d created=%-4d updated=%-4d errors=%d\n",
			stats.TenantID, stats.Sessions, stats.Created, stats.Updated, stats.Errors)
	}
	for _, warning := range report.Warnings {
		fmt.Printf("warning: tenant %s skipped: %s\n", warning.TenantID, warning.Reason)
	}
	fmt.Printf("total: created=%d updated=%d errors=%d\n",
		report.TotalCreated, report.TotalUpdated, report.TotalErrors)

	if len(report.Warnings) > 0 || report.TotalErrors > 0 {
		os.Exit(exitWarnings)
	}
	os.Exit(exitOK)
}
