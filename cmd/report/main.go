// Command report loads the forestry service request and tree canopy
// exports, cleans and joins them, and prints the grouped summaries. The
// summaries can also be written to an Excel workbook and published to Kafka.
//
// Usage:
//
//	go run ./cmd/report \
//	  -requests data/Forestry_Service_Requests.csv \
//	  -canopy data/Tree_Canopy_Community_District.csv \
//	  -xlsx out/forestry_canopy.xlsx
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/console"
	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/csvsource"
	kafkaadapter "github.com/couchcryptid/nyc-forestry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/nyc-forestry-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/nyc-forestry-etl/internal/config"
	"github.com/couchcryptid/nyc-forestry-etl/internal/observability"
	"github.com/couchcryptid/nyc-forestry-etl/internal/pipeline"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitDataError = 2
)

const pushTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one report and returns the process exit code. Summary tables
// go to stdout; logs go to stderr.
func run(args []string, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFailure
	}

	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.StringVar(&cfg.RequestsPath, "requests", cfg.RequestsPath, "service request CSV export")
	fs.StringVar(&cfg.CanopyPath, "canopy", cfg.CanopyPath, "canopy coverage CSV export")
	fs.StringVar(&cfg.XLSXPath, "xlsx", cfg.XLSXPath, "optional workbook output path")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return exitFailure
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	source := csvsource.NewSource(cfg, logger)
	p := pipeline.New(source, pipeline.NewTransformer(logger), logger, metrics)
	p.AddLoader("console", console.NewPrinter(stdout, cfg.ConsoleRowLimit))

	if cfg.XLSXPath != "" {
		p.AddLoader("xlsx", xlsx.NewExporter(cfg.XLSXPath, logger))
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		p.AddLoader("kafka", writer)
		logger.Info("kafka publication enabled", "topic", cfg.KafkaSummaryTopic)
	} else {
		logger.Info("kafka publication disabled")
	}

	_, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		// Push even on failure so the error counters reach the gateway.
		pushCtx, pushCancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer pushCancel()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("report failed", "error", runErr)
		if pipeline.IsDataError(runErr) {
			return exitDataError
		}
		return exitFailure
	}
	return exitOK
}
