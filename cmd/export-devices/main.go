package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/campus-dsi/pointage-api/internal/service"
	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/config"
	"github.com/campus-dsi/pointage-api/pkg/logger"
)

func main() {
	var output string
	flag.StringVar(&output, "output", "", "Write CSV to this file instead of stdout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: export-devices [--output file] <tenant_id>")
		os.Exit(2)
	}
	tenantID := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		os.Exit(2)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		os.Exit(2)
	}
	defer logr.Sync() //nolint:errcheck

	directory := tenant.NewDirectory(cfg.Tenants, logr)
	defer directory.Close()

	devices := service.NewDeviceService(directory, logr)
	payload, err := devices.ExportCSV(context.Background(), tenantID)
	if err != nil {
		log.Printf("export failed for tenant %s: %v", tenantID, err)
		os.Exit(1)
	}

	if output == "" {
		os.Stdout.Write(payload)
		return
	}
	if err := os.WriteFile(output, payload, 0o644); err != nil {
		log.Printf("failed to write %s: %v", output, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d bytes to %s\n", len(payload), output)
}
