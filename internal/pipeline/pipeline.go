// Package pipeline runs a classification pass over a directory: it lists the
// eligible assets, drives each through the retry controller, and aggregates
// the successful results.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fpang/asset-classifier/internal/chat"
	"github.com/fpang/asset-classifier/internal/filehandler"
	"github.com/fpang/asset-classifier/internal/logging"
	"github.com/fpang/asset-classifier/internal/metrics"
	"github.com/fpang/asset-classifier/internal/progress"
	"github.com/fpang/asset-classifier/internal/results"
	"github.com/fpang/asset-classifier/internal/retry"
	"github.com/rs/zerolog/log"
)

// Classifier turns one encoded image into a classification. *chat.Classifier satisfies it.
type Classifier interface {
	Classify(ctx context.Context, img *filehandler.EncodedImage) (*chat.ClassificationResult, error)
}

// AssetReport is the outcome of one asset.
type AssetReport struct {
	Name     string
	Size     int64
	State    retry.State
	Attempts int
	Err      error
	Category string
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	Dir      string
	Assets   []AssetReport
	Results  *results.Set
	Duration time.Duration
}

// Succeeded returns the number of assets that produced a record.
func (r *Report) Succeeded() int {
	return r.count(retry.Succeeded)
}

// Exhausted returns the number of assets skipped after all attempts failed.
func (r *Report) Exhausted() int {
	return r.count(retry.Exhausted)
}

func (r *Report) count(state retry.State) int {
	n := 0
	for _, a := range r.Assets {
		if a.State == state {
			n++
		}
	}
	return n
}

// Runner processes assets sequentially.
type Runner struct {
	classifier Classifier
	retry      *retry.Controller
	encode     filehandler.EncodeOptions
	out        io.Writer
	emf        bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMaxDimension downscales images whose longest side exceeds px before upload. 0 disables.
func WithMaxDimension(px int) Option {
	return func(r *Runner) {
		r.encode.MaxDimension = px
	}
}

// WithOutput sets where the progress bar, notices, and logs are written during the run.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithMetrics routes EMF documents through the progress writer for the duration of the run.
func WithMetrics(enabled bool) Option {
	return func(r *Runner) {
		r.emf = enabled
	}
}

// NewRunner wires a classifier and retry controller into a Runner.
func NewRunner(classifier Classifier, controller *retry.Controller, opts ...Option) *Runner {
	r := &Runner{
		classifier: classifier,
		retry:      controller,
		out:        os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run classifies every eligible image in dir. A directory with no images
// yields an empty report and a notice, and never calls the classifier.
// If ctx is cancelled, the report covers the assets handled so far and the
// context error is returned with it.
func (r *Runner) Run(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()
	report := &Report{Dir: dir, Results: results.NewSet()}

	files, err := filehandler.ListAssets(dir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			abs = dir
		}
		fmt.Fprintf(r.out, "\nNo image files (.png, .jpg, .jpeg) found to process. Add files to %q.\n", abs)
		report.Duration = time.Since(start)
		return report, nil
	}

	bar := progress.New(r.out, len(files), "Classifying")
	logging.SetOutput(bar.Writer())
	defer logging.SetOutput(r.out)
	if r.emf {
		metrics.SetOutput(bar.Writer())
		defer metrics.SetOutput(r.out)
	}

	policy := r.retry.Policy()
	log.Info().
		Int("assets", len(files)).
		Str("dir", dir).
		Int("max_attempts", policy.MaxAttempts).
		Dur("retry_delay", policy.Delay).
		Msg("Starting asset classification")

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		bar.Describe(f.Name)
		report.Assets = append(report.Assets, r.processAsset(ctx, f, report.Results, bar))
		bar.Increment()
	}
	bar.Finish()

	report.Duration = time.Since(start)
	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("exhausted", report.Exhausted()).
		Dur("duration", report.Duration).
		Msg("Processing complete")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("classification interrupted: %w", err)
	}
	return report, nil
}

func (r *Runner) processAsset(ctx context.Context, f *filehandler.AssetFile, set *results.Set, bar *progress.Bar) AssetReport {
	start := time.Now()
	var result *chat.ClassificationResult

	outcome := r.retry.Run(ctx, f.Name, func(ctx context.Context) error {
		img, err := filehandler.Encode(f.Path, r.encode)
		if err != nil {
			return err
		}
		res, err := r.classifier.Classify(ctx, img)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	ar := AssetReport{
		Name:     f.Name,
		Size:     f.Size,
		State:    outcome.State,
		Attempts: outcome.Attempts,
		Err:      outcome.Err,
		Duration: time.Since(start),
	}

	if outcome.State == retry.Succeeded && result != nil {
		set.Add(*result)
		ar.Category = result.Category
		log.Info().
			Str("file", f.Name).
			Str("category", result.Category).
			Str("main_theme", result.MainTheme).
			Int("attempts", outcome.Attempts).
			Msg("Asset classified")
		return ar
	}

	bar.Println(fmt.Sprintf("%q could not be processed after %d attempts, skipping", f.Name, outcome.Attempts))
	return ar
}
