package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aupus-smart/invoice-engine/internal/calc"
	"github.com/aupus-smart/invoice-engine/internal/common"
	"github.com/aupus-smart/invoice-engine/internal/export"
	"github.com/aupus-smart/invoice-engine/internal/ingest"
	"github.com/aupus-smart/invoice-engine/internal/pipeline"
	"github.com/aupus-smart/invoice-engine/internal/registry"
	"github.com/aupus-smart/invoice-engine/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory with invoice text documents (required)")
		regPath  = flag.String("registry", "", "customer registry XLSX path (required)")
		regSheet = flag.String("sheet", "", "registry sheet name")
		out      = flag.String("out", "", "output XLSX path (defaults next to --dir)")
		dbPath   = flag.String("db", "", "processing-history SQLite path")
		workers  = flag.Int("workers", 0, "concurrent document workers")
		watch    = flag.Bool("watch", false, "keep watching the directory for new documents")
		fullComp = flag.Bool("full-compensation", false, "rebalance bills to the minimum billable consumption")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	if *dir != "" {
		cfg.Input.Dir = *dir
	}
	if *regPath != "" {
		cfg.Registry.WorkbookPath = *regPath
	}
	if *regSheet != "" {
		cfg.Registry.SheetName = *regSheet
	}
	if *out != "" {
		cfg.Output.WorkbookPath = *out
	}
	if *dbPath != "" {
		cfg.Output.HistoryDB = *dbPath
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *watch {
		cfg.Input.Watch = true
	}
	if *fullComp {
		cfg.Batch.FullCompensation = true
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if cfg.Output.WorkbookPath == "" {
		cfg.Output.WorkbookPath = filepath.Join(filepath.Dir(cfg.Input.Dir), "faturas.xlsx")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A registry that cannot be loaded aborts the whole batch; per-document
	// failures never do.
	reg, err := registry.LoadWorkbook(cfg.Registry.WorkbookPath, cfg.Registry.SheetName, logger)
	if err != nil {
		logger.Error("registry load failed", "path", cfg.Registry.WorkbookPath, "error", err)
		os.Exit(1)
	}

	history, err := repository.Open(cfg.Output.HistoryDB, logger)
	if err != nil {
		logger.Error("history database open failed", "path", cfg.Output.HistoryDB, "error", err)
		os.Exit(1)
	}
	defer history.Close()

	writer, err := export.NewWriter(logger)
	if err != nil {
		logger.Error("export writer init failed", "error", err)
		os.Exit(1)
	}

	sink := pipeline.SinkFunc(func(res pipeline.Result) {
		writer.Consume(res)
		// Outcomes of already-finished documents are recorded even while the
		// batch is shutting down.
		if err := history.RecordOutcome(context.Background(), res); err != nil {
			logger.Warn("history write failed", "source", res.SourcePath, "error", err)
		}
	})

	engineOpts := []calc.Option{calc.WithFullCompensation(cfg.Batch.FullCompensation)}
	processor := pipeline.NewProcessor(logger, reg, calc.New(logger, engineOpts...))
	queue := pipeline.NewQueue(logger, processor, sink,
		pipeline.WithWorkers(cfg.Batch.Workers),
		pipeline.WithQueueSize(cfg.Batch.QueueSize),
		pipeline.WithDocTimeout(cfg.Batch.DocTimeout),
	)

	enqueue := func(path string) {
		text, err := ingest.ReadDocument(path)
		if err != nil {
			logger.Error("document read failed", "path", path, "error", err)
			return
		}
		if err := queue.Enqueue(ctx, pipeline.Document{SourcePath: path, Text: text}); err != nil {
			logger.Error("enqueue failed", "path", path, "error", err)
		}
	}

	if cfg.Input.Watch {
		paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
			Root:        cfg.Input.Dir,
			InitialScan: true,
			Debounce:    cfg.Input.Debounce,
		}, logger)
		if err != nil {
			logger.Error("watcher start failed", "dir", cfg.Input.Dir, "error", err)
			os.Exit(1)
		}
		go func() {
			for err := range errs {
				logger.Warn("watcher error", "error", err)
			}
		}()
		for path := range paths {
			enqueue(path)
		}
	} else {
		paths, err := ingest.Scan(cfg.Input.Dir, logger)
		if err != nil {
			logger.Error("input scan failed", "dir", cfg.Input.Dir, "error", err)
			os.Exit(1)
		}
		for _, path := range paths {
			enqueue(path)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue drain incomplete", "error", err)
	}

	if err := writer.SaveAs(cfg.Output.WorkbookPath); err != nil {
		logger.Error("workbook save failed", "path", cfg.Output.WorkbookPath, "error", err)
		os.Exit(1)
	}

	sum := writer.Summary()
	logger.Info("batch.done",
		"documents", sum.Total(),
		"calculated", sum.Calculated,
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"output", cfg.Output.WorkbookPath,
	)
	if sum.Failed > 0 {
		os.Exit(2)
	}
}
