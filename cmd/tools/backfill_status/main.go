// Command backfill_status rewrites the stored status of candidates that have
// no recruiter override, so that it matches their score again.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"recruitai/internal/config"
	"recruitai/internal/logger"
	"recruitai/internal/storage"
)

func main() {
	var dryRun bool
	var limit int
	flag.BoolVar(&dryRun, "dry-run", true, "If true, do not persist updates; just print changes")
	flag.IntVar(&limit, "limit", 500, "Max number of candidates to process in one run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("connecting to database")
	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to db", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	changes, err := db.BackfillStatuses(ctx, limit, dryRun)
	if err != nil {
		log.Fatal("backfill failed", zap.Error(err))
	}

	for _, ch := range changes {
		from := string(ch.From)
		if from == "" {
			from = "(none)"
		}
		log.Info("status change",
			zap.Bool("dry_run", dryRun),
			zap.String("candidate_id", ch.CandidateID),
			zap.Float64("score", ch.Score),
			zap.String("from", from),
			zap.String("to", string(ch.To)))
	}
	log.Info("backfill run complete", zap.Int("changed", len(changes)), zap.Int("limit", limit), zap.Bool("dry_run", dryRun))
}
