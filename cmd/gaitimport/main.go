// Command gaitimport loads WitMotion IMU exports or SOLESENSE insole CSVs
// into the feetfit database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"feetfit/internal/config"
	"feetfit/internal/db"
	"feetfit/internal/ingest"
	"feetfit/internal/logging"
)

const (
	kindWitMotion = "witmotion"
	kindInsole    = "insole"
)

type options struct {
	kind     string
	location *time.Location
	dryRun   bool
	ttl      time.Duration
}

func main() {
	file := flag.String("file", "", "export file or directory of exports")
	kind := flag.String("kind", kindWitMotion, "export kind: witmotion or insole")
	tz := flag.String("tz", "Local", "time zone of timestamps in the export")
	dryRun := flag.Bool("dry-run", false, "parse only, do not write to the database")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, "console", "gaitimport")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *kind != kindWitMotion && *kind != kindInsole {
		logger.Fatal("unknown -kind", zap.String("kind", *kind))
	}
	paths, err := collectPaths(*file, flag.Args())
	if err != nil {
		logger.Fatal("no input", zap.Error(err))
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		logger.Fatal("invalid -tz", zap.String("tz", *tz), zap.Error(err))
	}

	var sqlDB *gorm.DB
	if !*dryRun {
		sqlDB, err = db.Connect(cfg)
		if err != nil {
			logger.Fatal("failed to connect database", zap.Error(err))
		}
	}

	opts := options{
		kind:     *kind,
		location: loc,
		dryRun:   *dryRun,
		ttl:      time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
	ctx := context.Background()
	failed := 0
	for _, p := range paths {
		stored, skipped, err := importFile(ctx, sqlDB, p, opts)
		if err != nil {
			failed++
			logger.Error("import failed", zap.String("file", p), zap.Error(err))
			continue
		}
		logger.Info("imported",
			zap.String("file", p),
			zap.String("kind", opts.kind),
			zap.Int("stored", stored),
			zap.Int("skipped", skipped),
			zap.Bool("dry_run", opts.dryRun),
		)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// collectPaths expands file (a file or a directory of .csv/.txt exports)
// plus any positional arguments.
func collectPaths(file string, args []string) ([]string, error) {
	var out []string
	for _, p := range append([]string{file}, args...) {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".csv", ".txt":
				if !e.IsDir() {
					out = append(out, filepath.Join(p, e.Name()))
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no export files given; use -file")
	}
	return out, nil
}

func importFile(ctx context.Context, sqlDB *gorm.DB, path string, opts options) (stored, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	switch opts.kind {
	case kindInsole:
		res, err := ingest.ParseInsoleCSV(path, f, opts.location)
		if err != nil {
			return 0, 0, err
		}
		if !opts.dryRun {
			if err := db.InsertPressureFrames(ctx, sqlDB, res.Frames); err != nil {
				return 0, res.Skipped, err
			}
		}
		return len(res.Frames), res.Skipped, nil

	default:
		res, err := ingest.ParseWitMotion(f, opts.location)
		if err != nil {
			return 0, 0, err
		}
		if opts.ttl > 0 {
			exp := time.Now().Add(opts.ttl)
			for i := range res.Samples {
				res.Samples[i].ExpiresAt = &exp
			}
		}
		if !opts.dryRun {
			if err := db.InsertSamples(ctx, sqlDB, res.Samples); err != nil {
				return 0, res.Skipped, err
			}
		}
		return len(res.Samples), res.Skipped, nil
	}
}
