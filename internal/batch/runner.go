package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dnv-opensource/WindFarmer-automation/internal/atmos"
	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

const (
	RoleFull    = "full"
	RoleSubject = "subject"
)

// Calculator runs one AEP calculation. *windfarmer.Client satisfies it.
type Calculator interface {
	Calculate(ctx context.Context, payload any, turbines int) (*model.AepResultSet, error)
}

// Recorder persists job and summary progress. *store.Store satisfies it.
type Recorder interface {
	SaveJob(ctx context.Context, j model.JobRecord) (model.JobRecord, error)
	UpdateJob(ctx context.Context, j model.JobRecord) error
	SaveSummary(ctx context.Context, r store.SummaryRecord) error
}

// Atmosphere attaches atmospheric conditions to every scenario when set.
type Atmosphere struct {
	Source  atmos.DistributionSource
	Presets atmos.Presets
}

type Options struct {
	Models       request.ModelSelection
	Atmosphere   *Atmosphere
	OutputDir    string
	Concurrency  int
	Retries      int
	RetryBackoff time.Duration

	// Recorder and RunID are optional; without them nothing is persisted.
	Recorder Recorder
	RunID    string

	Logger *slog.Logger
	Now    func() time.Time
}

type Runner struct {
	calc   Calculator
	opts   Options
	logger *slog.Logger
}

func NewRunner(calc Calculator, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{calc: calc, opts: opts, logger: logger.With(slog.String("module", "batch"))}
}

// Discover lists the scenario JSON files of dir in name order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario folder: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ScenarioName is the file name without its extension.
func ScenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run processes every scenario file. A failing scenario is reported and does not stop the others;
// the returned error is only set when the context ends the run or outputs cannot be written.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{Results: make([]Result, len(paths))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, p := range paths {
		i, p := i, p
		name := ScenarioName(p)
		g.Go(func() error {
			req, err := request.Load(p)
			if err != nil {
				report.Results[i] = r.failed(name, err)
				return nil
			}
			report.Results[i] = r.RunScenario(gctx, name, req)
			return nil
		})
	}
	_ = g.Wait()

	if err := r.writeOutputs(report); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// RunScenario prepares one request, runs the full calculation and, when the scenario has
// neighbouring farms, the subject-only calculation alongside it, then decomposes the losses.
func (r *Runner) RunScenario(ctx context.Context, name string, req *request.Request) Result {
	logger := r.logger.With(slog.String("scenario", name))
	started := r.opts.Now()

	prepared, err := r.prepare(req)
	if err != nil {
		return r.failed(name, err)
	}
	cctx, err := prepared.Context()
	if err != nil {
		return r.failed(name, err)
	}

	hasNeighbours := prepared.HasNeighbours()
	var full, subject *model.AepResultSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		full, err = r.calculate(gctx, name, RoleFull, prepared)
		return err
	})
	if hasNeighbours {
		g.Go(func() error {
			var err error
			subject, err = r.calculate(gctx, name, RoleSubject, prepared.SubjectOnly())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return r.failed(name, err)
	}

	b, err := efficiency.New(cctx, full, subject, hasNeighbours)
	if err != nil {
		return r.failed(name, err)
	}

	if r.opts.Recorder != nil && r.opts.RunID != "" {
		effs := b.Efficiencies()
		sum := b.Summary()
		sum.Scenario = name
		err := r.opts.Recorder.SaveSummary(ctx, store.SummaryRecord{
			RunID:        r.opts.RunID,
			Scenario:     name,
			Summary:      sum,
			Efficiencies: &effs,
		})
		if err != nil {
			logger.Warn("could not store summary", slog.Any("error", err))
		}
	}

	res := Result{Scenario: name, Status: StatusSuccess, Breakdown: b, Full: full, Subject: subject}
	res.Elapsed = r.opts.Now().Sub(started)
	logger.Info("scenario complete",
		slog.Float64("full_yield_gwh", b.FullYieldGWh()),
		slog.Duration("elapsed", res.Elapsed))
	return res
}

func (r *Runner) prepare(req *request.Request) (*request.Request, error) {
	out, err := req.WithModelSettings(r.opts.Models)
	if err != nil {
		return nil, err
	}
	out = out.WithoutFlowMatrixExport()
	if a := r.opts.Atmosphere; a != nil {
		out, err = out.AtmosphericConditions(a.Source, a.Presets)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// calculate runs one calculation with transport retries and mirrors its progress into the recorder.
func (r *Runner) calculate(ctx context.Context, scenario, role string, req *request.Request) (*model.AepResultSet, error) {
	rec := model.JobRecord{
		RunID:       r.opts.RunID,
		Scenario:    scenario,
		Role:        role,
		Status:      model.JobSubmitted,
		SubmittedAt: r.opts.Now(),
	}
	if r.opts.Recorder != nil {
		saved, err := r.opts.Recorder.SaveJob(ctx, rec)
		if err != nil {
			r.logger.Warn("could not record job", slog.String("scenario", scenario), slog.Any("error", err))
		} else {
			rec = saved
		}
	}

	if r.opts.Recorder != nil && rec.ID != "" {
		ctx = windfarmer.WithJobObserver(ctx, func(j windfarmer.Job) {
			if j.ID == rec.RemoteJobID && j.Status == rec.Status && j.Progress == rec.Progress {
				return
			}
			rec.RemoteJobID = j.ID
			rec.Status = j.Status
			if j.Progress != "" {
				rec.Progress = j.Progress
			}
			if uerr := r.opts.Recorder.UpdateJob(context.WithoutCancel(ctx), rec); uerr != nil {
				r.logger.Warn("could not update job", slog.String("job_id", rec.ID), slog.Any("error", uerr))
			}
		})
	}

	var results *model.AepResultSet
	err := windfarmer.RetryTransport(ctx, r.opts.Retries, r.opts.RetryBackoff, func(ctx context.Context) error {
		var err error
		results, err = r.calc.Calculate(ctx, req, req.TurbineCount())
		return err
	})
	if err == nil && results == nil {
		err = errors.New("calculation returned no results")
	}

	if r.opts.Recorder != nil && rec.ID != "" {
		finished := r.opts.Now()
		rec.Status = StatusOf(err)
		rec.FinishedAt = &finished
		var failed *windfarmer.CalculationFailedError
		if errors.As(err, &failed) {
			rec.RemoteJobID = failed.JobID
		}
		if err != nil {
			rec.Error = err.Error()
		}
		// the parent context may already be cancelled; the record must still be closed
		if uerr := r.opts.Recorder.UpdateJob(context.WithoutCancel(ctx), rec); uerr != nil {
			r.logger.Warn("could not update job", slog.String("job_id", rec.ID), slog.Any("error", uerr))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s calculation: %w", role, err)
	}
	return results, nil
}

// StatusOf maps a calculation error onto the job state it leaves behind.
func StatusOf(err error) model.JobStatus {
	switch {
	case err == nil:
		return model.JobSucceeded
	case errors.Is(err, windfarmer.ErrTimedOut):
		return model.JobTimedOut
	case errors.Is(err, windfarmer.ErrCancelled), errors.Is(err, context.Canceled):
		return model.JobCancelled
	default:
		return model.JobFailed
	}
}

func (r *Runner) failed(name string, err error) Result {
	r.logger.Error("scenario failed", slog.String("scenario", name), slog.Any("error", err))
	return Result{Scenario: name, Status: StatusFail, Err: err}
}

// writeOutputs saves each successful scenario's raw results plus the combined CSVs and report.
func (r *Runner) writeOutputs(report *Report) error {
	dir := r.opts.OutputDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output folder: %w", err)
	}

	var summaries []efficiency.Summary
	var scenarios []efficiency.Scenario
	for _, res := range report.Results {
		if res.Status != StatusSuccess {
			continue
		}
		if err := writeJSON(filepath.Join(dir, res.Scenario+".full.json"), res.Full); err != nil {
			return err
		}
		if res.Subject != nil {
			if err := writeJSON(filepath.Join(dir, res.Scenario+".subject.json"), res.Subject); err != nil {
				return err
			}
		}
		sum := res.Breakdown.Summary()
		sum.Scenario = res.Scenario
		summaries = append(summaries, sum)
		scenarios = append(scenarios, efficiency.Scenario{Name: res.Scenario, Breakdown: res.Breakdown})
	}

	if len(summaries) > 0 {
		if err := efficiency.WriteSummaryCSV(filepath.Join(dir, "summary.csv"), summaries); err != nil {
			return fmt.Errorf("writing summary csv: %w", err)
		}
		if err := efficiency.WriteEfficienciesCSV(filepath.Join(dir, "efficiencies.csv"), scenarios); err != nil {
			return fmt.Errorf("writing efficiencies csv: %w", err)
		}
	}
	return os.WriteFile(filepath.Join(dir, "report.txt"), []byte(report.String()), 0o644)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
