package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"ted2transcript/internal/config"
	"ted2transcript/internal/modules/extractor"
	"ted2transcript/internal/modules/fetcher"
	"ted2transcript/internal/modules/filereader"
	"ted2transcript/internal/modules/mainloop"
	"ted2transcript/internal/modules/persistence"
	"ted2transcript/internal/modules/pipeline"
	"ted2transcript/internal/modules/state"
	"ted2transcript/internal/modules/view"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	text       string
	fromStdin  bool
	stateFile  string
	restore    bool
	batchPath  string
	header     bool
	outputDir  string
	language   string
	timeout    time.Duration
	workers    int
	logLevel   string
}

var opts options

// newHTTPClient is replaced in tests to point the fetcher at a local server.
var newHTTPClient = func() *http.Client { return &http.Client{} }

var rootCmd = &cobra.Command{
	Use:   "ted2transcript [shared text...]",
	Short: "Print the transcript of a shared TED talk",
	Long: `Find a go.ted.com short link in shared text, resolve it to the talk page and
print the talk's English transcript followed by the talk URL.

The displayed transcript and talk URL can be saved with --state-file and shown
again later with --restore, without touching the network.

With --batch, every line of a file is handled as its own shared text and the
transcripts are written to --output-dir.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. level is adjusted once the configuration is loaded.
func Execute(ctx context.Context, logger *zap.Logger, level zap.AtomicLevel) error {
	if err := execute(ctx, logger, level); err != nil {
		logger.Error("execution failed", zap.Error(err))
		return err
	}
	return nil
}

func execute(ctx context.Context, logger *zap.Logger, level zap.AtomicLevel) error {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(ctx, cmd, args, logger, level)
	}
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file")
	flags.StringVarP(&opts.text, "text", "t", "", "Shared text containing a go.ted.com link")
	flags.BoolVar(&opts.fromStdin, "stdin", false, "Read the shared text from standard input")
	flags.StringVarP(&opts.stateFile, "state-file", "s", "", "Save the displayed transcript and talk URL to this file")
	flags.BoolVarP(&opts.restore, "restore", "r", false, "Show the state saved in --state-file instead of fetching")
	flags.StringVarP(&opts.batchPath, "batch", "b", "", "File with one shared text per line (- for stdin)")
	flags.BoolVar(&opts.header, "header", false, "Skip the first line of the batch file")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for batch transcripts")
	flags.StringVarP(&opts.language, "language", "l", "", "Transcript language")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Per-request HTTP timeout (0 keeps the client default)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Concurrent fetches in batch mode")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pflag.CommandLine.AddFlagSet(flags)
	rootCmd.MarkFlagsMutuallyExclusive("batch", "restore")
	rootCmd.MarkFlagsMutuallyExclusive("batch", "stdin")
	rootCmd.MarkFlagsMutuallyExclusive("restore", "stdin")
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("language") {
		cfg.Language = opts.language
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = opts.timeout.String()
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers = opts.workers
	}
	if flags.Changed("output-dir") {
		cfg.Batch.OutputDir = opts.outputDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cmd *cobra.Command, args []string, logger *zap.Logger, level zap.AtomicLevel) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	level.SetLevel(cfg.GetLogLevel().Level())

	f := fetcher.New(
		fetcher.WithHTTPClient(newHTTPClient()),
		fetcher.WithTimeout(cfg.GetHTTPTimeout()),
		fetcher.WithLanguage(cfg.Language),
		fetcher.WithMaxWorkers(cfg.Batch.Workers),
		fetcher.WithRateLimit(cfg.Batch.RateLimit, cfg.Batch.Burst),
		fetcher.WithLogger(logger),
	)

	if opts.batchPath != "" {
		return runBatch(ctx, cfg, f, logger)
	}
	return runSingle(ctx, cmd, args, f, logger)
}

func sharedText(cmd *cobra.Command, args []string) (string, error) {
	if opts.fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	parts := args
	if opts.text != "" {
		parts = append([]string{opts.text}, args...)
	}
	return strings.Join(parts, " "), nil
}

func runSingle(ctx context.Context, cmd *cobra.Command, args []string, f *fetcher.Fetcher, logger *zap.Logger) error {
	var saved *state.Bundle
	if opts.restore {
		if opts.stateFile == "" {
			return errors.New("--restore needs --state-file")
		}
		b, err := state.Load(opts.stateFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("no saved state, fetching", zap.String("path", opts.stateFile))
		case err != nil:
			return err
		default:
			saved = b
		}
	}

	text, err := sharedText(cmd, args)
	if err != nil {
		return err
	}

	loop := mainloop.New()
	v := view.New(cmd.OutOrStdout(), f, loop, logger)

	loop.Post(func() {
		v.OnCreate(ctx, saved, text)
	})
	go func() {
		select {
		case <-v.Done():
			loop.Stop()
		case <-ctx.Done():
		}
	}()

	if err := loop.Run(ctx); err != nil {
		logger.Warn("main loop stopped", zap.Error(err))
		return err
	}

	if opts.stateFile != "" && !v.Restored() {
		b := state.NewBundle()
		v.OnSaveInstanceState(b)
		if err := state.Save(opts.stateFile, b); err != nil {
			return err
		}
		logger.Debug("saved instance state", zap.String("path", opts.stateFile))
	}

	return v.Err()
}

func runBatch(ctx context.Context, cfg *config.Config, f *fetcher.Fetcher, logger *zap.Logger) error {
	logger.Info("starting batch", zap.String("path", opts.batchPath), zap.String("output_dir", cfg.Batch.OutputDir))

	persister := persistence.New(cfg.Batch.OutputDir)

	p := pipeline.New(logger)
	p.AddStage(filereader.New(opts.batchPath, opts.header))
	p.AddStage(extractor.New())
	p.AddStage(f)
	p.AddStage(persister)

	input := make(chan interface{})
	close(input)

	if err := p.Run(ctx, input); err != nil {
		return err
	}

	logger.Info("batch finished",
		zap.Int64("saved", persister.Succeeded()),
		zap.Int64("failed", persister.Failed()))
	if persister.Failed() > 0 {
		return fmt.Errorf("%d of %d shares failed", persister.Failed(), persister.Failed()+persister.Succeeded())
	}
	return nil
}
