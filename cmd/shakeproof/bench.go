package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/langshake/shake-proof/internal/config"
	"github.com/langshake/shake-proof/internal/database"
	"github.com/langshake/shake-proof/internal/extract"
	"github.com/langshake/shake-proof/internal/fetch"
	"github.com/langshake/shake-proof/internal/log"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/pipeline"
	"github.com/langshake/shake-proof/internal/progress"
	"github.com/langshake/shake-proof/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errAborted is returned when at least one domain aborted.
var errAborted = errors.New("benchmark aborted")

// NewBenchCmd creates the bench command.
func NewBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [domain]...",
		Short: "Benchmark LangShake domains",
		Long: `Bench runs the LangShake benchmark against one or more domains.

For every domain it:
- fetches the manifest at /.well-known/llm.json
- fetches each module, verifies its checksum and computes the Merkle root
- extracts JSON-LD from each module's page the traditional way
- compares both sides page by page and reports the metrics of each phase

Domains are benchmarked one after another. A domain whose manifest cannot be
fetched or parsed is reported as aborted and the command exits non-zero.

Examples:
  # Benchmark a single domain
  shakeproof bench example.com

  # Render pages in headless Chromium and keep the extracted records
  shakeproof bench --render --artifacts ./out example.com

  # Write a Markdown report
  shakeproof bench --markdown -o report.md example.com

Configuration file (.shakeproof) example:
  domains:
    staging.example.com:
      manifest: langshake.json
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runBenchCmd,
	}

	// Fetch behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Concurrent fetches per phase")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch attempt")
	cmd.Flags().IntP("attempts", "a", config.DefaultAttempts,
		"Attempts per request, including the first")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Pause between attempts")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second (0 disables rate limiting)")
	cmd.Flags().String("manifest", config.DefaultManifestName,
		"Manifest file name under /.well-known/")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Rendering flags
	cmd.Flags().Bool("render", false,
		"Render reference pages in headless Chromium")
	cmd.Flags().Bool("stealth", false,
		"Hide headless browser fingerprints (requires --render)")
	cmd.Flags().String("browser-bin", "",
		"Chromium binary (default: auto-detect or download)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .shakeproof in current or home directory)")

	// Output flags
	cmd.Flags().String("artifacts", "",
		"Directory for the records extracted by both phases")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-progress", false,
		"Disable the progress display")
	cmd.Flags().Bool("no-save", false,
		"Do not store results in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")

	return cmd
}

func runBenchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runBench(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Attempts, err = flags.GetInt("attempts"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.ManifestName, err = flags.GetString("manifest"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.Stealth, err = flags.GetBool("stealth"); err != nil {
		return nil, err
	}
	if cfg.BrowserBin, err = flags.GetString("browser-bin"); err != nil {
		return nil, err
	}
	if cfg.ArtifactsDir, err = flags.GetString("artifacts"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoProgress, err = flags.GetBool("no-progress"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit path must exist; the default lookup may find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.Targets = args
	return cfg, nil
}

// setupLogger creates the redacting logger selected by the configuration.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// newReporter draws progress on an interactive stderr and logs it otherwise.
func newReporter(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) progress.Reporter {
	if cfg.NoProgress {
		return progress.NewLogReporter(logger)
	}
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return progress.NewTerminalReporter(f)
	}
	return progress.NewLogReporter(logger)
}

func runBench(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	var db *database.BenchDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	reporter := newReporter(cmd, cfg, logger)

	aborted := 0
	for _, target := range cfg.Targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		dcfg := cfg.ForDomain(target, cmd.Flags().Changed)
		result, err := benchmarkDomain(ctx, dcfg, cfg.Headers(target), target, reporter, logger)
		if err != nil {
			aborted++
			logger.Error("benchmark aborted", "domain", target, "error", err)
		}
		if result == nil {
			continue
		}

		if err := writeReport(output, cfg, result); err != nil {
			logger.Error("report failed", "domain", target, "error", err)
		}
		if err := saveResult(ctx, db, result, logger); err != nil {
			logger.Error("failed to save result", "domain", target, "error", err)
		}
	}

	if aborted > 0 {
		return fmt.Errorf("%w: %d of %d domains", errAborted, aborted, len(cfg.Targets))
	}
	return nil
}

// benchmarkDomain runs one domain with its merged configuration. A headless
// browser, when requested, lives only for this domain.
func benchmarkDomain(ctx context.Context, cfg *config.Config, headers map[string]string, target string, reporter progress.Reporter, logger *slog.Logger) (*model.DomainBenchmarkResult, error) {
	client := newFetchClient(cfg, headers, logger)

	opts := []pipeline.BenchmarkOption{
		pipeline.WithClient(client),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithManifestName(cfg.ManifestName),
		pipeline.WithReporter(reporter),
		pipeline.WithBenchmarkLogger(logger),
	}

	if cfg.ArtifactsDir != "" {
		opts = append(opts, pipeline.WithArtifacts(artifactsDir(cfg.ArtifactsDir, target)))
	}

	if cfg.Render {
		source, err := extract.NewRodSource(extract.RodConfig{
			BrowserBin: cfg.BrowserBin,
			MaxPages:   cfg.Concurrency,
			Stealth:    cfg.Stealth,
			Timeout:    cfg.Timeout,
			Headers:    headers,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		defer func() {
			if err := source.Close(); err != nil {
				logger.Warn("failed to close browser", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithExtractor(
			extract.NewHTMLExtractor(source, extract.WithLogger(logger))))
	}

	start := time.Now()
	result, err := pipeline.NewBenchmark(opts...).Run(ctx, target)
	logger.Info("benchmark finished", "domain", target, "elapsed", time.Since(start).Round(time.Millisecond))
	return result, err
}

// newFetchClient builds the client shared by the manifest, module and static
// page fetches of one domain.
func newFetchClient(cfg *config.Config, headers map[string]string, logger *slog.Logger) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithRetryPolicy(fetch.RetryPolicy{
			MaxAttempts:       cfg.Attempts,
			PerAttemptTimeout: cfg.Timeout,
			Delay:             cfg.RetryDelay,
		}),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if len(headers) > 0 {
		opts = append(opts, fetch.WithHeaders(headers))
	}
	return fetch.NewClient(opts...)
}

// artifactsDir gives each domain its own directory under base.
func artifactsDir(base, target string) string {
	root, err := pipeline.NormalizeDomainRoot(target)
	if err != nil {
		return filepath.Join(base, "invalid")
	}
	u, err := url.Parse(root)
	if err != nil {
		return filepath.Join(base, "invalid")
	}
	name := strings.ReplaceAll(u.Host, ":", "_")
	if p := strings.Trim(u.Path, "/"); p != "" {
		name += "_" + strings.ReplaceAll(p, "/", "_")
	}
	return filepath.Join(base, name)
}

// openOutput returns the report destination. Reports may carry staging URLs,
// so files are created owner-readable only.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// writeReport outputs the result in the requested format.
func writeReport(w io.Writer, cfg *config.Config, result *model.DomainBenchmarkResult) error {
	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(w)
	default:
		writer = report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
	_, err := writer.Write(result)
	return err
}

// saveResult stores the result when a database is open.
func saveResult(ctx context.Context, db *database.BenchDB, result *model.DomainBenchmarkResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	id, err := db.SaveResult(ctx, result)
	if err != nil {
		return err
	}
	logger.Debug("result saved", "domain", result.DomainRoot, "id", id, "run_id", result.RunID)
	return nil
}
