// Package scheduler runs scheduling passes over a set of policy files, one
// worker per policy, and hosts the long-running daemon.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nbsynth/nbsynth/internal/alert"
	"github.com/nbsynth/nbsynth/internal/cmn/backoff"
	"github.com/nbsynth/nbsynth/internal/cmn/config"
	"github.com/nbsynth/nbsynth/internal/cmn/fileutil"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/cmn/telemetry"
	"github.com/nbsynth/nbsynth/internal/core"
	"github.com/nbsynth/nbsynth/internal/core/spec"
	"github.com/nbsynth/nbsynth/internal/netbackup"
	"github.com/nbsynth/nbsynth/internal/output"
	"github.com/nbsynth/nbsynth/internal/persis/filepolicystate"
	"github.com/nbsynth/nbsynth/internal/rotation"
	"github.com/samber/lo"
)

// MasterLogName is the coordinator log file inside the log directory.
const MasterLogName = "master.log"

// Backend runs and queries NetBackup jobs.
type Backend interface {
	rotation.Invoker
	rotation.JobQuery
}

// BackendFactory creates the backend of one worker. Command output is
// written to w.
type BackendFactory func(w io.Writer) Backend

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBackend replaces the NetBackup command line backend.
func WithBackend(f BackendFactory) Option {
	return func(c *Coordinator) {
		c.newBackend = f
	}
}

// WithAlerter sets the alert destination. Defaults to alert.Nop.
func WithAlerter(a alert.Alerter) Option {
	return func(c *Coordinator) {
		c.alerter = a
	}
}

// WithClock sets the clock used by the rotation engine.
func WithClock(clock rotation.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithWait sets the function used to wait between retries.
func WithWait(wait backoff.WaitFunc) Option {
	return func(c *Coordinator) {
		c.wait = wait
	}
}

// WithLoggerOptions adds options to every logger the coordinator creates.
func WithLoggerOptions(opts ...logger.Option) Option {
	return func(c *Coordinator) {
		c.logOpts = append(c.logOpts, opts...)
	}
}

// Coordinator loads policy files and runs one worker per policy.
type Coordinator struct {
	cfg        *config.Config
	loader     *spec.Loader
	store      *filepolicystate.Store
	alerter    alert.Alerter
	newBackend BackendFactory
	clock      rotation.Clock
	wait       backoff.WaitFunc
	logOpts    []logger.Option
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		loader:  spec.NewLoader(spec.WithBasePolicy(cfg.Paths.BasePolicy)),
		store:   filepolicystate.New(cfg.Paths.StateDir),
		alerter: alert.Nop{},
	}
	c.newBackend = func(w io.Writer) Backend {
		return netbackup.New(cfg.NetBackup.BinDir, netbackup.WithOutput(w))
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.logOpts) == 0 {
		c.logOpts = c.defaultLogOptions()
	}
	return c
}

func (c *Coordinator) defaultLogOptions() []logger.Option {
	opts := []logger.Option{logger.WithFormat(c.cfg.Core.LogFormat)}
	if c.cfg.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	return opts
}

// PolicyResult is the result of one worker.
type PolicyResult struct {
	File   string
	Policy *core.Policy
	// Result is nil when the policy never reached the engine.
	Result *rotation.Result
	Err    error
}

// Summary is the result of a scheduling pass over all policy files.
type Summary struct {
	RunID   string
	Results []PolicyResult
}

// ExitCode returns the most severe exit code of all workers.
func (s *Summary) ExitCode() int {
	code := core.ExitOK
	for _, r := range s.Results {
		code = max(code, core.ExitCode(r.Err))
	}
	return code
}

// Err joins the errors of all workers.
func (s *Summary) Err() error {
	return errors.Join(lo.FilterMap(s.Results, func(r PolicyResult, _ int) (error, bool) {
		return r.Err, r.Err != nil
	})...)
}

// Policies returns the policies that were loaded successfully.
func (s *Summary) Policies() []*core.Policy {
	return lo.FilterMap(s.Results, func(r PolicyResult, _ int) (*core.Policy, bool) {
		return r.Policy, r.Policy != nil
	})
}

// SummaryRows converts the results of the workers that loaded a policy
// into output rows.
func (s *Summary) SummaryRows() []output.SummaryRow {
	return lo.FilterMap(s.Results, func(r PolicyResult, _ int) (output.SummaryRow, bool) {
		if r.Policy == nil {
			return output.SummaryRow{}, false
		}
		row := output.SummaryRow{Policy: r.Policy, Err: r.Err}
		if r.Result != nil {
			row.Decision = r.Result.Decision
			row.Executed = r.Result.Executed
			row.Outcome = r.Result.Outcome
		}
		return row, true
	})
}

// Run performs one scheduling pass over the policy files matched by
// patterns. Every policy runs in its own goroutine and Run returns once all
// of them finished. The returned error is only set when no worker could be
// started; per-policy errors are in the summary.
func (c *Coordinator) Run(ctx context.Context, patterns []string, ov rotation.Override) (*Summary, error) {
	if err := ov.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}
	summary := &Summary{RunID: id.String()}

	masterLog, err := fileutil.OpenOrCreateFile(filepath.Join(c.cfg.Paths.LogDir, MasterLogName))
	if err != nil {
		return nil, fmt.Errorf("failed to open master log: %w", err)
	}
	defer func() {
		_ = masterLog.Close()
	}()

	lg := logger.NewLogger(append(c.logOpts, logger.WithWriter(masterLog))...)
	ctx = logger.WithLogger(ctx, lg.With(tag.RunID(summary.RunID)))

	files, err := c.loader.ResolveFiles(patterns)
	if err != nil {
		logger.Error(ctx, "Failed to resolve policy files", tag.Error(err))
		c.sendAlert(ctx, alert.Alert{Message: "failed to resolve policy files", Err: err})
		return nil, err
	}
	logger.Info(ctx, "Starting scheduling pass", tag.Count(len(files)), tag.Action(ov.String()))

	summary.Results = c.loadPolicies(ctx, files)

	var wg sync.WaitGroup
	for i := range summary.Results {
		r := &summary.Results[i]
		if r.Err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Result, r.Err = c.runWorker(ctx, summary.RunID, r.Policy, ov, masterLog)
		}()
	}
	wg.Wait()

	c.writeMetrics(ctx, summary.Policies())
	logger.Info(ctx, "Scheduling pass finished", tag.ExitCode(summary.ExitCode()))
	return summary, nil
}

// writeMetrics exports the state of the policies to the configured
// Prometheus textfile. Failures are logged and do not fail the pass.
func (c *Coordinator) writeMetrics(ctx context.Context, policies []*core.Policy) {
	file := c.cfg.Metrics.Textfile
	if file == "" {
		return
	}
	registry := telemetry.NewRegistry(telemetry.NewCollector(config.Version, policies, c.store))
	if err := telemetry.WriteTextfile(file, registry); err != nil {
		logger.Warn(ctx, "Failed to write metrics", tag.File(file), tag.Error(err))
		return
	}
	logger.Debug(ctx, "Metrics written", tag.File(file))
}

// loadPolicies loads every file. A file that fails to load, or that names a
// policy/client pair already claimed by an earlier file, gets an error
// result and no worker.
func (c *Coordinator) loadPolicies(ctx context.Context, files []string) []PolicyResult {
	results := make([]PolicyResult, 0, len(files))
	owners := make(map[string]string)

	for _, file := range files {
		p, err := c.loader.Load(file)
		if err == nil {
			if owner, ok := owners[p.StateKey()]; ok {
				err = fmt.Errorf("%w: %s: policy %s client %s is already defined in %s",
					core.ErrConfig, file, p.PolicyName, p.ClientName, owner)
			} else {
				owners[p.StateKey()] = file
			}
		}
		if err != nil {
			logger.Error(ctx, "Failed to load policy file", tag.PolicyFile(file), tag.Error(err))
			c.sendAlert(ctx, alert.Alert{PolicyFile: file, Message: "invalid policy file", Err: err})
			results = append(results, PolicyResult{File: file, Err: err})
			continue
		}
		results = append(results, PolicyResult{File: file, Policy: p})
	}
	return results
}

// Report loads the state of every policy without changing anything and
// without writing log files or sending alerts. A file that fails to load
// gets a row carrying the error instead of hiding the other policies.
func (c *Coordinator) Report(ctx context.Context, patterns []string) ([]output.ReportRow, error) {
	files, err := c.loader.ResolveFiles(patterns)
	if err != nil {
		return nil, err
	}

	engine := rotation.NewEngine(rotation.EngineConfig{Store: c.store})
	rows := make([]output.ReportRow, 0, len(files))
	for _, file := range files {
		p, err := c.loader.Load(file)
		if err != nil {
			rows = append(rows, output.ReportRow{File: file, Err: err})
			continue
		}
		st, err := engine.Report(ctx, p)
		rows = append(rows, output.ReportRow{
			File:      file,
			Policy:    p,
			State:     st,
			StatePath: c.store.Path(p),
			Err:       err,
		})
	}
	return rows, nil
}

func (c *Coordinator) sendAlert(ctx context.Context, a alert.Alert) {
	if err := c.alerter.Alert(ctx, a); err != nil {
		logger.Warn(ctx, "Failed to send alert", tag.Error(err))
	}
}

func (c *Coordinator) policyLogFile(p *core.Policy) string {
	return filepath.Join(c.cfg.Paths.LogDir, fileutil.SafeName(p.Name)+".log")
}

func closeFile(ctx context.Context, f *os.File) {
	if err := f.Close(); err != nil {
		logger.Warn(ctx, "Failed to close log file", tag.File(f.Name()), tag.Error(err))
	}
}
