// Package netbackup runs the NetBackup command line tools.
package netbackup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/nbsynth/nbsynth/internal/cmn/cmdutil"
	"github.com/nbsynth/nbsynth/internal/cmn/logger"
	"github.com/nbsynth/nbsynth/internal/cmn/logger/tag"
	"github.com/nbsynth/nbsynth/internal/core"
)

// Client runs bpbackup and bpdbjobs from a NetBackup installation.
type Client struct {
	binDir string
	output io.Writer
}

// Option configures a Client.
type Option func(*Client)

// WithOutput sends the output of bpbackup to w, e.g. a policy log file.
func WithOutput(w io.Writer) Option {
	return func(c *Client) {
		c.output = w
	}
}

// New creates a Client for the NetBackup bin directory, usually
// /usr/openv/netbackup/bin.
func New(binDir string, opts ...Option) *Client {
	c := &Client{binDir: binDir, output: io.Discard}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunBackup starts a manual backup of the policy with the given schedule and
// waits for it to finish. It returns the exit status of bpbackup. An error is
// returned only when bpbackup could not be run or ctx ended.
func (c *Client) RunBackup(ctx context.Context, policy, schedule string) (int, error) {
	bin := filepath.Join(c.binDir, "bpbackup")
	cmd := exec.CommandContext(ctx, bin, "-i", "-p", policy, "-s", schedule, "-w") // nolint:gosec
	cmd.Stdout = c.output
	cmd.Stderr = c.output
	cmdutil.BindContext(cmd)

	logger.Debug(ctx, "Running bpbackup", tag.File(bin), tag.Schedule(schedule))
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to run %s: %w", bin, err)
}

// FindRunning returns the last queued, active or requeued job of the
// policy/client pair reported by bpdbjobs, or nil.
func (c *Client) FindRunning(ctx context.Context, policy, client string) (*core.RunningJob, error) {
	jobs, err := c.listJobs(ctx)
	if err != nil {
		return nil, err
	}
	return FindRunning(jobs, policy, client), nil
}

func (c *Client) listJobs(ctx context.Context) ([]Job, error) {
	bin := filepath.Join(c.binDir, "admincmd", "bpdbjobs")
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-most_columns") // nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmdutil.BindContext(cmd)

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("bpdbjobs failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("bpdbjobs failed: %w", err)
	}
	return ParseJobs(&stdout)
}
