// Package pipeline runs extraction end to end: list jobs, fetch each job's
// payload, extract, aggregate, export, and record the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
	"github.com/blewis-maker/Katapult-Automation/internal/config"
	"github.com/blewis-maker/Katapult-Automation/internal/export"
	"github.com/blewis-maker/Katapult-Automation/internal/extract"
	"github.com/blewis-maker/Katapult-Automation/internal/model"
	"github.com/blewis-maker/Katapult-Automation/internal/store"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// Pipeline wires the retrieval client, the extractor, the exporters, and the
// optional run log.
type Pipeline struct {
	cfg    *config.Config
	client katapult.Client
	store  store.Store
	opts   extract.Options
}

// New creates a Pipeline. st may be nil, in which case nothing is recorded and
// replay is unavailable.
func New(cfg *config.Config, client katapult.Client, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		client: client,
		store:  st,
		opts:   extract.DefaultOptions(cfg.Extract.Height.Company, cfg.Extract.Height.CableType),
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID       string
	Jobs        []katapult.Job
	Outcomes    []model.JobRun
	Collections aggregate.Collections
	Files       []string
}

// Abandoned returns the number of jobs that produced no records.
func (r *Result) Abandoned() int {
	var n int
	for _, o := range r.Outcomes {
		if o.Outcome == model.JobOutcomeAbandoned {
			n++
		}
	}
	return n
}

// loadFunc produces the payload of the job at position i.
type loadFunc func(ctx context.Context, i int, job katapult.Job) (*katapult.JobData, error)

// jobResult is what one worker hands back for its position.
type jobResult struct {
	res      *extract.JobResult
	err      error
	duration time.Duration
}

// Run lists jobs, fetches and extracts each selected job, aggregates the
// records in job-list order, and writes the configured exports. A job that
// cannot be fetched is abandoned and the run continues; only a failed job
// listing or a failed export fails the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.client == nil {
		return nil, eris.New("pipeline: no katapult client")
	}

	run, err := p.startRun(ctx, model.RunSourceAPI, "")
	if err != nil {
		return nil, err
	}
	result := &Result{RunID: run}
	start := time.Now()

	listed, err := p.client.ListJobs(ctx)
	if err != nil {
		err = eris.Wrap(err, "pipeline: list jobs")
		p.failRun(ctx, run, result, start, err)
		return result, err
	}

	jobs := SelectJobs(listed, p.cfg.Extract.JobIDs, p.cfg.Extract.Limit)
	result.Jobs = jobs
	zap.L().Info("pipeline: jobs selected",
		zap.String("run_id", run),
		zap.Int("listed", len(listed)),
		zap.Int("selected", len(jobs)),
		zap.Int("concurrency", p.concurrency()),
	)

	fetch := func(ctx context.Context, i int, job katapult.Job) (*katapult.JobData, error) {
		data, err := p.client.GetJob(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		if p.store != nil && run != "" && p.cfg.Store.ArchivePayloads {
			if aErr := p.store.ArchivePayload(ctx, run, i, job, data.Bytes()); aErr != nil {
				zap.L().Warn("pipeline: failed to archive payload", zap.String("job_id", job.ID), zap.Error(aErr))
			}
		}
		return data, nil
	}

	if err := p.process(ctx, run, listed, jobs, p.concurrency(), fetch, result); err != nil {
		p.failRun(ctx, run, result, start, err)
		return result, err
	}
	if err := p.finish(ctx, run, result, start); err != nil {
		return result, err
	}
	return result, nil
}

// Replay re-extracts the payloads archived by an earlier run, without any
// network access. The replay is recorded as a new run.
func (p *Pipeline) Replay(ctx context.Context, sourceRunID string) (*Result, error) {
	if p.store == nil {
		return nil, eris.New("pipeline: replay requires a run store")
	}

	payloads, err := p.store.LoadPayloads(ctx, sourceRunID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load payloads for run %s", sourceRunID)
	}
	if len(payloads) == 0 {
		return nil, eris.Errorf("pipeline: run %s has no archived payloads", sourceRunID)
	}

	run, err := p.startRun(ctx, model.RunSourceReplay, sourceRunID)
	if err != nil {
		return nil, err
	}
	result := &Result{RunID: run}
	start := time.Now()

	jobs := make([]katapult.Job, len(payloads))
	for i, pl := range payloads {
		jobs[i] = pl.Job
	}
	result.Jobs = jobs

	load := func(_ context.Context, i int, job katapult.Job) (*katapult.JobData, error) {
		return katapult.ParseStoredJobData(payloads[i].Body)
	}

	// Archived payloads are local; there is nothing to pace.
	if err := p.process(ctx, run, jobs, jobs, 1, load, result); err != nil {
		p.failRun(ctx, run, result, start, err)
		return result, err
	}
	if err := p.finish(ctx, run, result, start); err != nil {
		return result, err
	}
	return result, nil
}

// process loads and extracts every job with at most concurrency in flight,
// then aggregates and records the outcomes strictly in job order.
func (p *Pipeline) process(ctx context.Context, run string, listed, jobs []katapult.Job, concurrency int, load loadFunc, result *Result) error {
	results := make([]jobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			started := time.Now()
			res, err := p.loadAndExtract(gctx, i, job, load)
			results[i] = jobResult{res: res, err: err, duration: time.Since(started)}
			return nil // a failed job never aborts the batch
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: process jobs")
	}

	agg := aggregate.New(listed)
	for i, job := range jobs {
		jr := results[i]
		outcome := model.JobRun{
			RunID:      run,
			JobID:      job.ID,
			JobName:    job.Name,
			JobStatus:  job.Status,
			Position:   i,
			DurationMs: jr.duration.Milliseconds(),
		}

		if jr.err != nil {
			outcome.Outcome = model.JobOutcomeAbandoned
			outcome.Error = jr.err.Error()
			zap.L().Warn("pipeline: job abandoned",
				zap.String("job_id", job.ID),
				zap.String("job_name", job.Name),
				zap.Error(jr.err),
			)
		} else {
			agg.Add(jr.res)
			outcome.Outcome = model.JobOutcomeOK
			outcome.Poles = len(jr.res.Poles)
			outcome.Anchors = len(jr.res.Anchors)
			outcome.Connections = len(jr.res.Connections)
			outcome.Stats = jr.res.Stats
			zap.L().Info("pipeline: job extracted",
				zap.String("job_id", job.ID),
				zap.Int("poles", outcome.Poles),
				zap.Int("anchors", outcome.Anchors),
				zap.Int("connections", outcome.Connections),
			)
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if p.store != nil && run != "" {
			if err := p.store.RecordJob(ctx, outcome); err != nil {
				zap.L().Warn("pipeline: failed to record job", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}

	result.Collections = agg.Collections()
	return nil
}

// loadAndExtract isolates one job: a panic while extracting is turned into an
// error so the rest of the batch still runs.
func (p *Pipeline) loadAndExtract(ctx context.Context, i int, job katapult.Job, load loadFunc) (res *extract.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = eris.Errorf("pipeline: extract job %s panicked: %v", job.ID, r)
		}
	}()

	data, err := load(ctx, i, job)
	if err != nil {
		return nil, err
	}
	return extract.ExtractJob(job, data, p.opts), nil
}

// finish exports the aggregated layers and closes the run record.
func (p *Pipeline) finish(ctx context.Context, run string, result *Result, start time.Time) error {
	p.setStatus(ctx, run, model.RunStatusExporting)

	layers := result.Collections.Layers()
	if len(p.cfg.Export.Formats) > 0 {
		files, err := export.Write(p.cfg.Export.Dir, p.cfg.Export.Formats, layers)
		result.Files = files
		if err != nil {
			err = eris.Wrap(err, "pipeline: export")
			p.failRun(ctx, run, result, start, err)
			return err
		}
	}

	if p.store != nil && run != "" {
		if _, err := p.store.SaveFeatures(ctx, run, layers); err != nil {
			zap.L().Warn("pipeline: failed to save features", zap.String("run_id", run), zap.Error(err))
		}
		if err := p.store.FinishRun(ctx, run, model.RunStatusComplete, summarize(result, start, nil)); err != nil {
			zap.L().Warn("pipeline: failed to finish run", zap.String("run_id", run), zap.Error(err))
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", run),
		zap.Int("jobs", len(result.Jobs)),
		zap.Int("abandoned", result.Abandoned()),
		zap.Int("poles", len(result.Collections.Poles)),
		zap.Int("anchors", len(result.Collections.Anchors)),
		zap.Int("connections", len(result.Collections.Connections)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) startRun(ctx context.Context, source model.RunSource, replayOf string) (string, error) {
	if p.store == nil {
		return "", nil
	}
	run, err := p.store.CreateRun(ctx, source, replayOf)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create run")
	}
	return run.ID, nil
}

func (p *Pipeline) setStatus(ctx context.Context, run string, status model.RunStatus) {
	if p.store == nil || run == "" {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, run, status); err != nil {
		zap.L().Warn("pipeline: failed to update status", zap.String("run_id", run), zap.Error(err))
	}
}

func (p *Pipeline) failRun(ctx context.Context, run string, result *Result, start time.Time, cause error) {
	zap.L().Error("pipeline: run failed", zap.String("run_id", run), zap.Error(cause))
	if p.store == nil || run == "" {
		return
	}
	if err := p.store.FinishRun(ctx, run, model.RunStatusFailed, summarize(result, start, cause)); err != nil {
		zap.L().Warn("pipeline: failed to finish run", zap.String("run_id", run), zap.Error(err))
	}
}

func (p *Pipeline) concurrency() int {
	if p.cfg.Extract.Concurrency < 1 {
		return 1
	}
	return p.cfg.Extract.Concurrency
}

func summarize(result *Result, start time.Time, cause error) *model.RunResult {
	rr := &model.RunResult{
		JobsTotal:   len(result.Jobs),
		Poles:       len(result.Collections.Poles),
		Anchors:     len(result.Collections.Anchors),
		Connections: len(result.Collections.Connections),
		Files:       result.Files,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	rr.JobsAbandoned = result.Abandoned()
	rr.JobsOK = len(result.Outcomes) - rr.JobsAbandoned
	if cause != nil {
		rr.Error = cause.Error()
	}
	return rr
}
