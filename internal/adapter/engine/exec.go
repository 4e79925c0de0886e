// Package engine invokes the external batch-transformation engine as a
// subprocess. The engine is an external collaborator: it reads the raw
// snapshot, materializes the industry-scoped staging and fact models
// into the target store, and exits.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/mekarlab/payrollgate/internal/domain"
)

// waitDelay bounds how long Wait may linger after cancellation when a
// grandchild process inherited our stderr pipe and keeps it open.
const waitDelay = 3 * time.Second

// Exec runs the engine binary once per job. A fresh process per job
// keeps engine state from leaking between tenants.
type Exec struct {
	bin        string
	projectDir string
	logger     *slog.Logger
}

// New creates an Exec adapter for the engine binary at bin, run inside
// projectDir.
func New(bin, projectDir string, logger *slog.Logger) *Exec {
	return &Exec{bin: bin, projectDir: projectDir, logger: logger}
}

// Run implements domain.TransformEngine. It blocks until the engine
// exits or ctx is cancelled; cancellation kills the subprocess.
func (e *Exec) Run(ctx context.Context, job domain.EngineJob) error {
	args := e.commandArgs(job)
	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Dir = e.projectDir
	cmd.Env = append(os.Environ(),
		"PAYROLLGATE_RAW_PATH="+job.RawPath,
		"PAYROLLGATE_STORE_PATH="+job.StorePath,
		"PAYROLLGATE_CLIENT_ID="+job.ClientID,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// The engine is a CLI that spawns worker children. Run it in its
	// own process group and cancel by killing the group, so a timeout
	// takes down the whole tree, not just the direct child. WaitDelay
	// keeps Wait from blocking on a stderr pipe a straggler still holds.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	e.logger.Info("invoking transformation engine",
		"client_id", job.ClientID, "industry", job.Industry,
		"raw", job.RawPath, "store", job.StorePath)

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("engine timed out: %w", ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("engine run: %w: %s", err, detail)
		}
		return fmt.Errorf("engine run: %w", err)
	}
	return nil
}

// commandArgs selects only the models scoped to the job's industry and
// forces re-materialization: the raw snapshot is always new, so letting
// the engine skip "unchanged" models would serve stale data.
func (e *Exec) commandArgs(job domain.EngineJob) []string {
	return []string{
		"run",
		"--no-prompts",
		"--force",
		"--select-model", "stg_" + job.Industry,
		"--select-model", "fct_" + job.Industry,
	}
}
