package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/FranksOps/stockists/internal/brands"
	"github.com/FranksOps/stockists/internal/config"
	"github.com/FranksOps/stockists/internal/metrics"
	"github.com/FranksOps/stockists/internal/report"
	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/serp"
	"github.com/FranksOps/stockists/internal/storage"
	"github.com/FranksOps/stockists/pkg/ratelimit"
)

// Pipeline runs one lookup: load brands, search each one in turn, clean the
// aggregated results and hand them to the backend.
type Pipeline struct {
	Config   *config.Config
	FS       afero.Fs
	Provider serp.Provider
	Backend  storage.Backend
	Pacer    *ratelimit.Pacer
	Logger   *slog.Logger
	// Progress receives the per-query progress lines. Nil discards them.
	Progress io.Writer
	// Output names where Backend writes, for the summary only.
	Output string
}

func (p *Pipeline) validate() error {
	var missing []string
	if p.Config == nil {
		missing = append(missing, "Config")
	}
	if p.FS == nil {
		missing = append(missing, "FS")
	}
	if p.Provider == nil {
		missing = append(missing, "Provider")
	}
	if p.Backend == nil {
		missing = append(missing, "Backend")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline: %s not set", strings.Join(missing, ", "))
	}
	return nil
}

// Run executes the lookup. Failed requests and unreadable result entries are
// logged and skipped. Errors loading the brand list or saving the output end
// the run; nothing is searched when the brand list cannot be read. The
// returned Summary is complete even when saving fails.
func (p *Pipeline) Run(ctx context.Context) (report.Summary, error) {
	summary := report.Summary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		Dropped:   map[string]int{},
	}
	finish := func() report.Summary {
		summary.EndTime = time.Now()
		summary.Elapsed = summary.EndTime.Sub(summary.StartTime)
		return summary
	}

	if err := p.validate(); err != nil {
		return finish(), err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := p.Progress
	if progress == nil {
		progress = io.Discard
	}
	pacer := p.Pacer
	if pacer == nil {
		pacer = ratelimit.NewPacer(ratelimit.Fixed(p.Config.Delay), p.Config.Jitter)
	}

	names, err := brands.Load(p.FS, p.Config.BaseDir, p.Config.InputFile)
	if err != nil {
		return finish(), err
	}
	queries := brands.BuildQueries(names, p.Config.QuerySuffix)
	summary.Brands = len(names)
	summary.Queries = len(queries)

	fmt.Fprintf(progress, "Processing %d brand queries...\n", len(queries))

	var all []results.ResultRecord
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		fmt.Fprintf(progress, "Searching: %s (%d of %d)\n", strings.TrimSpace(query), i+1, len(queries))

		resp, err := p.Provider.Search(ctx, query)
		if err != nil {
			summary.FailedRequests++
			var rf *serp.RequestFailure
			if errors.As(err, &rf) {
				logger.Warn("search request failed", "query", query, "kind", rf.Kind, "status", rf.StatusCode, "err", rf.Err)
			} else {
				logger.Warn("search request failed", "query", query, "err", err)
			}
		} else {
			recs, faults := results.Extract(resp, query)
			for _, f := range faults {
				logger.Warn("skipping search result", "query", query, "err", f)
			}
			summary.ExtractionFaults += len(faults)
			metrics.ExtractionFaults.Add(float64(len(faults)))
			metrics.RecordsTotal.WithLabelValues(metrics.StageExtracted).Add(float64(len(recs)))
			all = append(all, recs...)
		}

		if i < len(queries)-1 {
			if err := pacer.Wait(ctx, i+1); err != nil {
				return finish(), err
			}
		}
	}
	summary.Extracted = len(all)

	if len(all) == 0 {
		fmt.Fprintln(progress, "No results found!")
		return finish(), nil
	}

	cleaned, stats := results.Clean(all, results.Rules{
		TargetPosition: p.Config.TargetPosition,
		HomepageDepth:  p.Config.HomepageDepth,
	})
	summary.Dropped = stats.Dropped
	metrics.RecordDrops(stats.Dropped)
	logger.Debug("cleaned results", "in", stats.In, "out", stats.Out, "dropped", stats.Dropped)

	if len(cleaned) == 0 {
		return finish(), nil
	}

	err = p.Backend.Save(ctx, storage.Batch{
		RunID:     summary.RunID,
		CreatedAt: time.Now().UTC(),
		Records:   cleaned,
	})
	if err != nil {
		summary.SaveError = err.Error()
		return finish(), err
	}
	metrics.RecordsTotal.WithLabelValues(metrics.StageCleaned).Add(float64(len(cleaned)))

	summary.Saved = len(cleaned)
	summary.Output = p.Output
	return finish(), nil
}
