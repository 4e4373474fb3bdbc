package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/fetchr/api"
	"github.com/s0up4200/fetchr/config"
	"github.com/s0up4200/fetchr/filter"
	"github.com/s0up4200/fetchr/prompt"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
	client    *api.Client
	filters   *filter.Manager

	// Global flags
	baseURL  string
	verbose  int
	noPrompt bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fetchr",
	Short: "Fetch and inspect JSON from HTTP APIs",
	Long: `fetchr issues GET requests against a JSON API, prints the responses and
lets you iterate, filter and transform them.

When the network is unreachable and a terminal is attached, fetchr asks
whether to retry the request instead of giving up.`,
	SilenceUsage:       true,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&baseURL, "url", "u", "", "API base URL (overrides api.url)")
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 1, "API log verbosity, 0-3 (overrides api.verbose)")
	rootCmd.PersistentFlags().BoolVar(&noPrompt, "no-prompt", false, "never ask to retry after a connection failure")
}

// initializeApp loads the configuration and builds the logger, client and filters
func initializeApp(cmd *cobra.Command, args []string) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("url") {
		overrides["api.url"] = baseURL
	}
	if cmd.Flags().Changed("verbose") {
		overrides["api.verbose"] = verbose
	}

	var err error
	cfg, err = config.Load(cfgFile, overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err = setupLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	userAgent := cfg.API.UserAgent
	if userAgent == "" {
		userAgent = "fetchr/" + appVersion
	}

	opts := []api.Option{}
	if !noPrompt && prompt.Interactive(os.Stdin, os.Stderr) {
		opts = append(opts, api.WithHook(prompt.NewTerminal(os.Stdin, os.Stderr)))
	}

	client, err = api.NewClient(api.Config{
		BaseURL:                cfg.API.URL,
		Verbose:                cfg.API.Verbose,
		Timeout:                cfg.API.Timeout,
		RetryMax:               cfg.API.RetryMax,
		MaxConnectivityRetries: cfg.API.MaxConnectivityRetries,
		UserAgent:              userAgent,
	}, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	evaluatorOpts := []filter.EvaluatorOption{}
	if cfg.Filter.Workers > 0 {
		evaluatorOpts = append(evaluatorOpts, filter.WithWorkers(cfg.Filter.Workers))
	}
	filters = filter.NewManager(
		filter.WithCompiler(filter.NewExprCompiler(filter.WithCache(cfg.Filter.CacheSize))),
		filter.WithEvaluator(filter.NewConcurrentEvaluator(evaluatorOpts...)),
	)
	if err := filters.RegisterFilters(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	logger.Debug().
		Str("url", cfg.API.URL).
		Int("verbose", cfg.API.Verbose).
		Int("filters", len(cfg.Filters)).
		Msg("Initialized")

	return nil
}

// shutdownApp releases what initializeApp acquired
func shutdownApp(cmd *cobra.Command, args []string) error {
	if filters != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := filters.Close(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop filter workers")
		}
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// setupLogger configures the zerolog logger. When cfg.File is set, JSON
// lines are also written to a rotating log file.
func setupLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var console io.Writer = out
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    !cfg.Color,
		}
	}

	if cfg.File == "" {
		return zerolog.New(console).With().Timestamp().Logger(), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	writer := zerolog.MultiLevelWriter(console, file)
	return zerolog.New(writer).With().Timestamp().Logger(), file, nil
}
