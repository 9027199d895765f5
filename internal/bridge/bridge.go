// Package bridge drives the external ledger submitter process.
//
// The submitter is an independently versioned binary that builds,
// signs and broadcasts the actual ledger transaction. The bridge's job
// is to turn one invocation of it into a typed result: spawn it,
// capture its output, extract the transaction ID, and bound how long
// the caller can possibly wait.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	// ErrSpawn reports that the submitter binary could not be started
	// at all (missing, not executable). No timers run in this case.
	ErrSpawn = errors.New("bridge: submitter could not be started")

	// ErrTimeout reports the hard-timeout path: the process was killed
	// and the submission outcome is unknown. Retrying may create a
	// second ledger transaction; at-most-once is the caller's problem.
	ErrTimeout = errors.New("bridge: submission timed out")
)

// Result is the outcome of one submitter invocation. Err is non-nil on
// every failure path and wraps ErrSpawn/ErrTimeout where applicable;
// there is no silent fallback to success.
type Result struct {
	Success       bool
	TransactionID string
	Err           error
	RawOutput     string
	Stderr        string
}

// stderrExcerptLimit bounds how much captured stderr lands in error
// messages. Full output stays in Result.Stderr.
const stderrExcerptLimit = 512

// Bridge runs the external submitter. Each Submit call owns one child
// process; concurrent calls are independent. The only shared state is
// the request counter, which exists purely for log correlation.
type Bridge struct {
	binPath     string
	softTimeout time.Duration
	hardTimeout time.Duration
	logger      *slog.Logger
	seq         atomic.Uint64
}

func New(binPath string, softTimeout, hardTimeout time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		binPath:     binPath,
		softTimeout: softTimeout,
		hardTimeout: hardTimeout,
		logger:      logger,
	}
}

// Submit spawns the submitter with args and waits for it to exit.
//
// Two timers bound the wait. The soft timer only logs: large-payload
// anchoring is legitimately slow and a warning is not a failure. The
// hard timer kills the process group and returns ErrTimeout, so no
// caller ever blocks indefinitely on a wedged submitter.
func (b *Bridge) Submit(ctx context.Context, args []string, label string) Result {
	seq := b.seq.Add(1)
	logger := b.logger.With("op", label, "req", seq)

	ctx, cancel := context.WithTimeout(ctx, b.hardTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Own process group, killed as a group on timeout. Without Setpgid
	// children spawned by the submitter survive the kill and keep the
	// pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		logger.Error("submitter spawn failed", "bin", b.binPath, "error", err)
		return Result{Err: fmt.Errorf("%w: %v", ErrSpawn, err)}
	}
	logger.Info("submitter started", "pid", cmd.Process.Pid, "bin", b.binPath)

	softWarn := time.AfterFunc(b.softTimeout, func() {
		logger.Warn("submitter still running past soft timeout",
			"elapsed", b.softTimeout, "hard_timeout", b.hardTimeout)
	})
	defer softWarn.Stop()

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	result := Result{
		RawOutput: stdout.String(),
		Stderr:    stderr.String(),
	}

	if waitErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			logger.Error("submitter killed after hard timeout", "elapsed", elapsed)
			result.Err = fmt.Errorf("%w after %s", ErrTimeout, b.hardTimeout)
			return result
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			logger.Error("submitter exited with failure",
				"code", code, "elapsed", elapsed, "stderr", excerpt(result.Stderr))
			result.Err = fmt.Errorf("submitter exit code %d: %s", code, excerpt(result.Stderr))
			return result
		}

		logger.Error("submitter wait failed", "error", waitErr, "elapsed", elapsed)
		result.Err = fmt.Errorf("wait for submitter: %w", waitErr)
		return result
	}

	result.Success = true
	txID, found := ExtractTransactionID(result.RawOutput)
	if !found {
		// Exit 0 without a result marker: the transaction may still
		// have been broadcast. Anomalous but not fatal.
		logger.Warn("submitter succeeded without emitting a transaction id", "elapsed", elapsed)
	} else {
		result.TransactionID = txID
		logger.Info("submission confirmed", "txid", txID, "elapsed", elapsed)
	}
	return result
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrExcerptLimit {
		return s[:stderrExcerptLimit] + "..."
	}
	return s
}
