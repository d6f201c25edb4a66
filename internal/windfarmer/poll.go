package windfarmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

// Unbounded disables the per-job wall-clock limit.
const Unbounded time.Duration = 0

const (
	defaultInitialDelay = 5 * time.Second
	defaultJitter       = time.Second

	perTurbineCalcTime = 1200 * time.Millisecond
	pollSafetyFactor   = 5

	msgNoResults = "job succeeded without results"
)

// PollPolicy controls the timing of PollUntilTerminal.
type PollPolicy struct {
	// InitialDelay is waited (plus jitter) before the first status request.
	InitialDelay time.Duration
	// Jitter is the upper bound of the random delay added to every wait.
	Jitter time.Duration
	// MaxDuration bounds the time since submission; Unbounded polls until the job finishes.
	MaxDuration time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialDelay: defaultInitialDelay,
		Jitter:       defaultJitter,
		MaxDuration:  Unbounded,
	}
}

// Clock abstracts time so the poll loop can be driven by tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MinPollInterval estimates how long to wait between polls for a farm of the given size.
func MinPollInterval(turbines int) time.Duration {
	if turbines <= 0 {
		return 0
	}
	return time.Duration(turbines) * perTurbineCalcTime / pollSafetyFactor
}

// Job is one in-flight remote calculation. It is owned by the goroutine that submitted it.
type Job struct {
	ID          string
	Status      model.JobStatus
	Progress    string
	Message     string
	Results     *model.AepResultSet
	SubmittedAt time.Time
	Polls       int
}

func newJob(id string, now time.Time) *Job {
	return &Job{ID: id, Status: model.JobSubmitted, SubmittedAt: now}
}

// observe applies one poll response. Terminal jobs never change again.
func (j *Job) observe(p *Poll) bool {
	if j.Status.IsTerminal() {
		return false
	}
	j.Polls++
	if p.Progress != "" {
		j.Progress = p.Progress
	}
	j.Message = p.Message

	switch p.Status {
	case model.JobSucceeded:
		j.Status = model.JobSucceeded
		j.Results = p.Results
	case model.JobFailed:
		j.Status = model.JobFailed
	case model.JobPending, model.JobRunning:
		j.Status = p.Status
	default:
		// Unknown states are treated as still running.
		if j.Status == model.JobSubmitted {
			j.Status = model.JobPending
		}
	}
	return true
}

func (j *Job) finish(s model.JobStatus) {
	if !j.Status.IsTerminal() {
		j.Status = s
	}
}

// Outcome is the terminal state of a polled job.
type Outcome struct {
	JobID   string
	Status  model.JobStatus
	Results *model.AepResultSet
	Message string
	Polls   int
	Elapsed time.Duration
}

func (j *Job) outcome(elapsed time.Duration) *Outcome {
	return &Outcome{
		JobID:   j.ID,
		Status:  j.Status,
		Results: j.Results,
		Message: j.Message,
		Polls:   j.Polls,
		Elapsed: elapsed,
	}
}

// PollUntilTerminal waits for job to leave PENDING/RUNNING.
//
// The returned Outcome is non-nil for every terminal state, including FAILED (with a
// *CalculationFailedError; a SUCCESS that carries no results counts as FAILED), TIMED_OUT (ErrTimedOut) and CANCELLED (ErrCancelled wrapping the
// context error). Transport and rejection errors while polling abort with a nil Outcome.
func (c *Client) PollUntilTerminal(ctx context.Context, job *Job, minInterval time.Duration) (*Outcome, error) {
	if job == nil {
		return nil, errors.New("poll: nil job")
	}
	logger := c.logger.With(slog.String("jobId", job.ID))
	start := job.SubmittedAt
	if start.IsZero() {
		start = c.clock.Now()
	}
	elapsed := func() time.Duration { return c.clock.Now().Sub(start) }

	delay := c.poll.InitialDelay + c.jitter()
	for {
		if err := c.wait(ctx, start, delay); err != nil {
			switch {
			case errors.Is(err, ErrTimedOut):
				job.finish(model.JobTimedOut)
				logger.Warn("job timed out", slog.Duration("elapsed", elapsed()), slog.Int("polls", job.Polls))
			default:
				job.finish(model.JobCancelled)
				logger.Info("job polling cancelled", slog.Duration("elapsed", elapsed()))
			}
			notify(ctx, job)
			return job.outcome(elapsed()), err
		}

		p, err := c.JobStatus(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				job.finish(model.JobCancelled)
				notify(ctx, job)
				return job.outcome(elapsed()), fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return nil, err
		}
		job.observe(p)
		if job.Status == model.JobSucceeded && job.Results == nil {
			job.Status = model.JobFailed
			job.Message = msgNoResults
		}
		logger.Info("job status", slog.String("status", string(job.Status)), slog.String("progress", job.Progress))
		notify(ctx, job)

		switch job.Status {
		case model.JobSucceeded:
			return job.outcome(elapsed()), nil
		case model.JobFailed:
			return job.outcome(elapsed()), &CalculationFailedError{JobID: job.ID, Message: job.Message}
		}
		delay = minInterval + c.jitter()
	}
}

// wait sleeps for d, cut short by the policy deadline or the context.
func (c *Client) wait(ctx context.Context, start time.Time, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	timesOut := false
	if c.poll.MaxDuration != Unbounded {
		remaining := c.poll.MaxDuration - c.clock.Now().Sub(start)
		if remaining <= 0 {
			return ErrTimedOut
		}
		if d >= remaining {
			d = remaining
			timesOut = true
		}
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-c.clock.After(d):
	}
	if timesOut {
		return ErrTimedOut
	}
	return nil
}

func (c *Client) jitter() time.Duration {
	if c.poll.Jitter <= 0 {
		return 0
	}
	return time.Duration(c.random() * float64(c.poll.Jitter))
}

// CalculateAsync submits payload and polls it to completion, pacing polls by turbine count.
func (c *Client) CalculateAsync(ctx context.Context, payload any, turbines int) (*model.AepResultSet, error) {
	job, err := c.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}
	out, err := c.PollUntilTerminal(ctx, job, MinPollInterval(turbines))
	if err != nil {
		return nil, err
	}
	if out.Results == nil {
		return nil, &CalculationFailedError{JobID: out.JobID, Message: msgNoResults}
	}
	return out.Results, nil
}

// Calculate picks the synchronous endpoint for small farms and the async one otherwise.
// Successful results are kept in the client's cache, if it has one.
func (c *Client) Calculate(ctx context.Context, payload any, turbines int) (*model.AepResultSet, error) {
	var key string
	if c.cache != nil {
		k, err := CacheKey(payload)
		if err != nil {
			return nil, err
		}
		if rs, ok := c.cache.Get(k); ok {
			c.logger.Debug("cache hit", slog.String("key", k[:12]), slog.Int("turbines", turbines))
			return rs, nil
		}
		key = k
	}

	var rs *model.AepResultSet
	var err error
	if c.syncTurbineLimit > 0 && turbines > 0 && turbines <= c.syncTurbineLimit {
		rs, err = c.CalculateSync(ctx, payload)
	} else {
		rs, err = c.CalculateAsync(ctx, payload, turbines)
	}
	if err == nil && rs == nil {
		err = errors.New("calculation returned no results")
	}
	if err == nil && key != "" {
		c.cache.Set(key, rs)
	}
	return rs, err
}

// RetryTransport calls fn up to attempts times, retrying only on *TransportError with a
// linearly growing backoff. Any other error is returned immediately.
func RetryTransport(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !IsTransport(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
