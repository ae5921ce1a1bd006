// Command reprocess-failed replays raw_ingestions stuck in
// status=error through the BatchProcessor, matching
// original_source/src/bin/reprocess_failed.rs's sweep but gated by a
// signed operator token so a bulk-mutating admin operation can't run
// unattended.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/applog"
	"github.com/Ladvien/self-sensored/internal/auth"
	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/dbconn"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/metrics"
	"github.com/Ladvien/self-sensored/internal/rawstore"
	"github.com/Ladvien/self-sensored/internal/reprocess"
)

func main() {
	var (
		token = flag.String("token", "", "Signed admin token authorizing this sweep")
		limit = flag.Int("limit", 500, "Maximum number of error-status records to scan")
	)
	flag.Parse()

	cfg := config.LoadFromEnv()
	log := applog.New(cfg.Log.Level, cfg.Log.Format)

	if *token == "" {
		fmt.Println("usage: reprocess-failed -token <admin-jwt> [-limit N]")
		os.Exit(1)
	}
	if _, err := auth.VerifyAdminToken(*token, cfg.Auth.ReprocessJWTSecret); err != nil {
		log.WithError(err).Fatal("admin token rejected")
	}

	ctx := context.Background()
	db, err := dbconn.Open(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	reg := metrics.New(prometheus.NewRegistry())
	raw := rawstore.New(db)
	processor := batch.New(db, cfg.Batch, cfg.Validation, reg, log)
	table := mapping.NewTable()

	reprocessor := reprocess.NewReprocessor(raw, table, processor, log, *limit)

	summary, err := reprocessor.Run(ctx)
	if err != nil {
		log.WithError(err).Fatal("reprocessing sweep failed")
	}

	log.WithFields(map[string]any{
		"scanned":   summary.Scanned,
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("reprocessing sweep finished")
}
