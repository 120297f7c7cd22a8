package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"solarcli/internal/aggregation"
	"solarcli/internal/cleaning"
	"solarcli/internal/config"
	"solarcli/internal/dataset"
	"solarcli/internal/exporter"
	"solarcli/internal/infrastructure"
	"solarcli/internal/validation"
)

func main() {
	configFile := flag.String("config", config.DefaultConfigFile, "path to the YAML config file")
	method := flag.String("method", "", "imputation method override (median, mean, mode)")
	zThreshold := flag.Float64("z", 0, "Z-score threshold override")
	skipCombined := flag.Bool("skip-combined", false, "skip the cross-site aggregation step")
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if cfg.Logging.FilePath == "logs/app.log" {
		cfg.Logging.FilePath = cfg.Paths.LogFilePath("processor.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *method != "" {
		cfg.Cleaning.ImputationMethod = *method
	}
	if *zThreshold > 0 {
		cfg.Cleaning.ZThreshold = *zThreshold
	}

	if len(cfg.Sites) == 0 {
		logger.Error("No sites configured, nothing to process")
		os.Exit(1)
	}

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize telemetry, continuing without it", "error", err)
		providers = nil
	}

	var metrics *infrastructure.PipelineMetrics
	if providers != nil && providers.Meter != nil {
		if metrics, err = infrastructure.CreatePipelineMetrics(providers.Meter); err != nil {
			logger.Warn("Failed to create pipeline metrics", "error", err)
		}
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Starting solar irradiance processing",
		slog.Int("sites", len(cfg.Sites)),
		slog.String("imputation_method", cfg.Cleaning.ImputationMethod),
		slog.Float64("z_threshold", cfg.Cleaning.ZThreshold))

	if err := run(ctx, cfg, logger, metrics, *skipCombined); err != nil {
		logger.ErrorContext(ctx, "Processing failed", "error", err)
		os.Exit(1)
	}

	if providers != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}
}

// run cleans every configured site in parallel, then aggregates the cleaned
// outputs into the combined dataset and summary table.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *infrastructure.PipelineMetrics, skipCombined bool) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, site := range cfg.Sites {
		group.Go(func() error {
			return processSite(groupCtx, cfg, logger, metrics, site)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	if skipCombined {
		return nil
	}

	sources := make([]aggregation.SiteSource, 0, len(cfg.Sites))
	for _, site := range cfg.Sites {
		// cleaned files were exported with the global column and layout
		sources = append(sources, aggregation.SiteSource{
			Name:            site.Name,
			Path:            cfg.Paths.CleanFilePath(site.Name),
			TimestampColumn: cfg.Cleaning.TimestampColumn,
			TimestampLayout: cfg.Cleaning.TimestampLayout,
		})
	}

	aggregator := aggregation.NewAggregator(logger)
	combined, err := aggregator.Aggregate(ctx, sources)
	if err != nil {
		return err
	}

	combinedPath := cfg.Paths.CombinedFilePath()
	if err := aggregator.ExportCombined(ctx, combined, combinedPath, cfg.Cleaning.TimestampLayout); err != nil {
		return err
	}

	summaries, err := aggregator.SummaryStatistics(combined, cfg.Cleaning.Metrics, cfg.Cleaning.PrimaryMetric)
	if err != nil {
		return err
	}

	for rank, summary := range summaries {
		attrs := []any{
			slog.Int("rank", rank+1),
			slog.String("site", summary.Site),
			slog.Int("rows", summary.Rows),
		}
		if primary, ok := summary.Metrics[cfg.Cleaning.PrimaryMetric]; ok {
			attrs = append(attrs,
				slog.Float64(fmt.Sprintf("%s_mean", cfg.Cleaning.PrimaryMetric), primary.Mean),
				slog.Float64(fmt.Sprintf("%s_std", cfg.Cleaning.PrimaryMetric), primary.Std))
		}
		logger.InfoContext(ctx, "site summary", attrs...)
	}

	logger.InfoContext(ctx, "Processing complete",
		slog.Int("sites", len(summaries)),
		slog.Int("combined_rows", combined.Rows()),
		slog.String("combined_path", combinedPath))

	return nil
}

// processSite runs load, time features, cleaning and export for one site.
func processSite(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *infrastructure.PipelineMetrics, site config.SiteConfig) error {
	start := time.Now()
	siteLogger := logger.With(slog.String("site", site.Name))

	source := site.File
	if !filepath.IsAbs(source) {
		source = filepath.Join(cfg.Paths.RawDir, source)
	}

	validator := validation.NewFileValidator(siteLogger)
	if err := validator.ValidateSourceFile(source); err != nil {
		return err
	}

	loader := dataset.NewLoader(siteLogger, cfg.Cleaning.TimestampColumn, cfg.SiteLayout(site))
	frame, err := loader.Load(ctx, source)
	if err != nil {
		return err
	}

	frame, err = cleaning.AddTimeFeatures(frame)
	if err != nil {
		return err
	}

	// clean the configured metric columns, not the derived calendar features
	var metricColumns []string
	for _, col := range cfg.Cleaning.Metrics {
		if frame.HasColumn(col) {
			metricColumns = append(metricColumns, col)
		}
	}

	cleaner := cleaning.NewCleaner(siteLogger, frame)
	cleaned, err := cleaner.Clean(cleaning.CleanOptions{
		NumericColumns:   metricColumns,
		ImputationMethod: cleaning.Method(cfg.Cleaning.ImputationMethod),
		ZThreshold:       cfg.Cleaning.ZThreshold,
		MissingThreshold: cfg.Cleaning.MissingThreshold,
	})
	if err != nil {
		return err
	}
	report := cleaner.Report()

	exp := exporter.NewCSVExporter(siteLogger, cfg.Cleaning.TimestampLayout)
	cleanPath := cfg.Paths.CleanFilePath(site.Name)
	if err := exp.Export(ctx, exporter.RemoveTempColumns(cleaned), cleanPath); err != nil {
		return err
	}
	if err := exp.WriteReport(ctx, report, cfg.Paths.ReportFilePath(site.Name)); err != nil {
		return err
	}

	metrics.RecordCleanRun(ctx, site.Name,
		cleaned.Rows(), report.TotalImputed, report.TotalOutliers, time.Since(start))
	metrics.RecordExport(ctx, site.Name, 2)

	siteLogger.InfoContext(ctx, "site processed",
		slog.Int("rows", cleaned.Rows()),
		slog.Int("values_imputed", report.TotalImputed),
		slog.Int("outliers", report.TotalOutliers),
		slog.String("clean_path", cleanPath),
		slog.Duration("duration", time.Since(start)))

	return nil
}
