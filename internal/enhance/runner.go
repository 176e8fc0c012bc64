// Package enhance runs the external image-enhancement program, one process
// per request.
package enhance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout = 30 * time.Second
	// maxStderrLog caps how much process stderr is written to the log.
	maxStderrLog = 2 << 10
	// maxOutput caps what is kept of each process stream.
	maxOutput = 64 << 10
)

// ErrOutputTooLarge is wrapped in a Failure when stdout exceeds maxOutput.
var ErrOutputTooLarge = errors.New("enhancement output too large")

// Failure is returned when the process cannot be started, exits non-zero, or
// is killed at the deadline. Stderr is for operators only.
type Failure struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("enhancement process failed (exit %d): %v", f.ExitCode, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Runner spawns Command with the image URL appended as its last argument.
type Runner struct {
	command []string
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// NewRunner creates a Runner. maxConcurrent <= 0 means no limit on
// simultaneous processes; a zero timeout selects the default.
func NewRunner(command []string, timeout time.Duration, maxConcurrent int) *Runner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &Runner{
		command: command,
		timeout: timeout,
		logger:  slog.Default(),
	}
	if maxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return r
}

// Run enhances imageURL and returns the trimmed stdout of the process.
func (r *Runner) Run(ctx context.Context, imageURL string) (string, error) {
	if len(r.command) == 0 {
		return "", errors.New("no enhancement command configured")
	}
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("waiting for enhancement slot: %w", err)
		}
		defer r.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), imageURL)
	cmd := exec.CommandContext(ctx, r.command[0], args...)
	cmd.WaitDelay = time.Second

	stdout := &cappedBuffer{limit: maxOutput}
	stderr := &cappedBuffer{limit: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		f := &Failure{ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			f.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			f.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		r.logger.WarnContext(ctx, "enhancement process failed",
			"command", r.command[0],
			"exit_code", f.ExitCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr", truncate(f.Stderr, maxStderrLog),
			"error", err,
		)
		return "", f
	}

	if stderr.Len() > 0 {
		r.logger.DebugContext(ctx, "enhancement process stderr", "stderr", truncate(stderr.String(), maxStderrLog))
	}
	if stdout.truncated {
		r.logger.WarnContext(ctx, "enhancement output discarded",
			"command", r.command[0],
			"limit_bytes", maxOutput,
		)
		return "", &Failure{ExitCode: 0, Stderr: stderr.String(), Err: ErrOutputTooLarge}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// cappedBuffer keeps the first limit bytes written to it and drops the rest.
// Writes always report success.
type cappedBuffer struct {
	bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Len()
	if len(p) > room {
		b.truncated = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

// Outcome classifies a Run result for metrics.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var f *Failure
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &f):
		return "failed"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
