// Command tzmigrate rewrites lesson start times that were stored as the
// school's wall-clock time labelled UTC into real UTC instants.
//
// Usage:
//
//	go run ./cmd/tzmigrate -school <id> -tz Asia/Jakarta [-dry-run] [-batch 500]
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-payments-api/internal/migration"
	"github.com/noah-isme/tutoring-payments-api/pkg/config"
	"github.com/noah-isme/tutoring-payments-api/pkg/database"
	"github.com/noah-isme/tutoring-payments-api/pkg/logger"
)

func main() {
	var (
		schoolID string
		tz       string
		dryRun   bool
		batch    int
	)
	flag.StringVar(&schoolID, "school", "", "School ID whose lessons are migrated")
	flag.StringVar(&tz, "tz", "", "IANA timezone the stored times were entered in")
	flag.BoolVar(&dryRun, "dry-run", false, "Log planned changes without writing")
	flag.IntVar(&batch, "batch", 500, "Lessons per transaction")
	flag.Parse()

	if schoolID == "" || tz == "" {
		flag.Usage()
		log.Fatal("-school and -tz are required")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatalf("unknown timezone %q: %v", tz, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := migration.NewLessonTimezoneMigrator(db, logr).Run(ctx, migration.LessonTimezoneOptions{
		SchoolID:  schoolID,
		Location:  loc,
		BatchSize: batch,
		DryRun:    dryRun,
	})
	if err != nil {
		logr.Fatal("migration failed", zap.Error(err), zap.Int("updated_before_failure", summary.Updated))
	}
	logr.Info("migration complete", zap.Int("scanned", summary.Scanned), zap.Int("updated", summary.Updated), zap.Bool("dry_run", summary.DryRun))
}
