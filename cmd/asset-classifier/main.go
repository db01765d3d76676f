package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/asset-classifier/internal/auth"
	"github.com/fpang/asset-classifier/internal/chat"
	"github.com/fpang/asset-classifier/internal/cli"
	"github.com/fpang/asset-classifier/internal/config"
	"github.com/fpang/asset-classifier/internal/logging"
	"github.com/fpang/asset-classifier/internal/metrics"
	"github.com/fpang/asset-classifier/internal/pipeline"
	"github.com/fpang/asset-classifier/internal/retry"
	"github.com/fpang/asset-classifier/internal/s3util"
)

// envEMF enables CloudWatch EMF metric lines on stderr when set to 1.
const envEMF = "ASSET_CLASSIFIER_EMF"

// flags holds the values bound to the root command.
type flags struct {
	dir          string
	output       string
	model        string
	maxAttempts  int
	retryDelay   time.Duration
	maxDimension int
	configPath   string
	s3Bucket     string
	s3Prefix     string
}

// publisher uploads the results file after a run.
type publisher interface {
	Publish(ctx context.Context, runID, localPath string) (string, error)
}

// app carries the external dependencies of a run so tests can replace them.
type app struct {
	stdout io.Writer
	stderr io.Writer

	getAPIKey     func(ctx context.Context) (string, error)
	newClassifier func(ctx context.Context, apiKey, model string) (pipeline.Classifier, error)
	newPublisher  func(ctx context.Context, bucket, prefix string) (publisher, error)
	sleeper       func(time.Duration)
}

func defaultApp() *app {
	return &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		getAPIKey: auth.GetAPIKey,
		newClassifier: func(ctx context.Context, apiKey, model string) (pipeline.Classifier, error) {
			client, err := cli.InitGeminiClient(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			c := chat.NewClassifier(client.Models, chat.WithModel(model))
			log.Info().Str("model", c.ModelName()).Msg("Classifier ready")
			return c, nil
		},
		newPublisher: func(ctx context.Context, bucket, prefix string) (publisher, error) {
			return s3util.NewPublisher(ctx, bucket, prefix)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "asset-classifier [filter-tag]",
		Short: "Classify game-asset images with Gemini vision",
		Long: `asset-classifier sends every .png, .jpg, and .jpeg image in a directory to
Gemini, which returns a category, a main theme, and three production tags for
each asset. Results are written to asset_classification_results.json and
printed, optionally filtered by a tag, category, or theme.

A filter matches a record when it equals one of the record's tags exactly, or
when it appears (ignoring case) in the record's category or main theme.

Exit status:
  0  the run finished, including when no API key was found, the directory
     holds no images, every asset was skipped, or the results file could
     not be written (each case is reported on stderr)
  1  bad arguments, flags, or config, a missing or unreadable directory,
     or an interrupt (Ctrl-C / SIGTERM)

Examples:
  asset-classifier                      # classify ./ and print everything
  asset-classifier "Pixel Art"          # print only Pixel Art assets
  asset-classifier -d ./sprites -o sprites.json
  asset-classifier --max-attempts 5 --retry-delay 2s
  asset-classifier --s3-bucket my-results --s3-prefix classifier`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.dir, "dir", "d", ".", "Directory containing the asset images")
	fl.StringVarP(&f.output, "output", "o", config.DefaultOutputFile, "Path of the JSON results file")
	fl.StringVarP(&f.model, "model", "m", chat.DefaultModelName, "Gemini model to use")
	fl.IntVar(&f.maxAttempts, "max-attempts", retry.DefaultMaxAttempts, "Attempts per asset before it is skipped")
	fl.DurationVar(&f.retryDelay, "retry-delay", retry.DefaultDelay, "Delay between attempts")
	fl.IntVar(&f.maxDimension, "max-dimension", 0, "Downscale images whose longest side exceeds this many pixels (0 = send originals)")
	fl.StringVar(&f.configPath, "config", "", "Path to a TOML config file")
	fl.StringVar(&f.s3Bucket, "s3-bucket", "", "Upload the results file to this S3 bucket")
	fl.StringVar(&f.s3Prefix, "s3-prefix", "", "Key prefix for the S3 upload")
	return cmd
}

func main() {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("dir") {
		cfg.Assets.Dir = f.dir
	}
	if fl.Changed("output") {
		cfg.Output.Path = f.output
	}
	if fl.Changed("model") {
		cfg.Gemini.Model = f.model
	}
	if fl.Changed("max-attempts") {
		cfg.Retry.MaxAttempts = f.maxAttempts
	}
	if fl.Changed("retry-delay") {
		cfg.SetRetryDelay(f.retryDelay)
	}
	if fl.Changed("max-dimension") {
		cfg.Assets.MaxDimension = f.maxDimension
	}
	if fl.Changed("s3-bucket") {
		cfg.Output.S3Bucket = f.s3Bucket
	}
	if fl.Changed("s3-prefix") {
		cfg.Output.S3Prefix = strings.Trim(f.s3Prefix, "/")
	}
	return cfg.Validate()
}

func (a *app) run(cmd *cobra.Command, f *flags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, cfgPath, cfgExists, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, f, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	filter := ""
	if len(args) == 1 {
		filter = strings.TrimSpace(args[0])
	}
	if filter != "" {
		fmt.Fprintf(a.stderr, "\n[Filter tag set: %q]\n", filter)
	}

	runID := uuid.NewString()
	emf := os.Getenv(envEMF) == "1"
	metrics.SetRunID(runID)

	rl := logging.NewRunLogger(runID).
		Version(commitHash).
		Config("buildTime", buildTime).
		Config("dir", cfg.Assets.Dir).
		Config("model", cfg.Gemini.Model).
		Config("maxAttempts", strconv.Itoa(cfg.Retry.MaxAttempts)).
		Config("retryDelay", cfg.RetryPolicy().Delay.String()).
		Config("output", cfg.Output.Path).
		Resource("s3Bucket", cfg.Output.S3Bucket).
		Resource("ssmParam", os.Getenv(auth.EnvSSMParam)).
		Feature("filter", filter != "").
		Feature("downscale", cfg.Assets.MaxDimension > 0).
		Feature("s3Publish", cfg.Output.S3Bucket != "").
		Feature("emf", emf)
	if cfgExists {
		rl.Resource("configFile", cfgPath)
	}
	rl.Log()

	apiKey, err := a.getAPIKey(ctx)
	if err != nil {
		log.Error().Err(err).Msg("No Gemini API key available; nothing was processed")
		fmt.Fprintf(a.stderr, "ERROR: %v\n", err)
		return nil
	}

	dir, err := cli.ValidateAndResolveDirectory(cfg.Assets.Dir)
	if err != nil {
		return err
	}

	classifier, err := a.newClassifier(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return err
	}

	var retryOpts []retry.Option
	if a.sleeper != nil {
		retryOpts = append(retryOpts, retry.WithSleeper(a.sleeper))
	}
	runner := pipeline.NewRunner(classifier, retry.NewController(cfg.RetryPolicy(), retryOpts...),
		pipeline.WithOutput(a.stderr),
		pipeline.WithMaxDimension(cfg.Assets.MaxDimension),
		pipeline.WithMetrics(emf),
	)

	fmt.Fprintln(a.stderr, "\n--- Generative AI asset classification started ---")
	report, runErr := runner.Run(ctx, dir)
	if report == nil {
		return runErr
	}
	if len(report.Assets) == 0 {
		return runErr
	}

	fmt.Fprintln(a.stderr, "\n--- Processing complete ---")
	if summary := cli.RenderSummary(report); summary != "" {
		fmt.Fprintln(a.stderr, summary)
	}

	if report.Results.Len() == 0 {
		log.Warn().Int("assets", len(report.Assets)).Msg("No asset was classified; results file not written")
		return runErr
	}

	if err := report.Results.Write(cfg.Output.Path); err != nil {
		log.Error().Err(err).Msg("Results could not be written")
		fmt.Fprintf(a.stderr, "ERROR: %v\n", err)
	} else {
		fmt.Fprintf(a.stderr, "\nAll %d results saved to %q.\n", report.Results.Len(), cfg.Output.Path)
		a.publish(ctx, cfg, runID)
	}

	if err := report.Results.Display(a.stdout, filter); err != nil {
		return err
	}
	return runErr
}

// publish uploads the results file when a bucket is configured. Failures are logged only.
func (a *app) publish(ctx context.Context, cfg *config.Config, runID string) {
	if cfg.Output.S3Bucket == "" {
		return
	}
	p, err := a.newPublisher(ctx, cfg.Output.S3Bucket, cfg.Output.S3Prefix)
	if err != nil {
		log.Warn().Err(err).Msg("S3 publishing unavailable")
		return
	}
	uri, err := p.Publish(ctx, runID, cfg.Output.Path)
	if err != nil {
		log.Warn().Err(err).Str("bucket", cfg.Output.S3Bucket).Msg("Results upload failed")
		return
	}
	fmt.Fprintf(a.stderr, "Results published to %s\n", uri)
}
