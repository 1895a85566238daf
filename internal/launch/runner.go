package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"cfts/internal/config"
	"cfts/internal/fileutil"
	"cfts/internal/logging"
	"cfts/internal/session"
)

// Environment variables passed to the experiment command.
const (
	EnvPlan       = "CFTS_PLAN"
	EnvSessionDir = "CFTS_SESSION_DIR"
	EnvParadigm   = "CFTS_PARADIGM"
	EnvStarship   = "CFTS_STARSHIP"
)

// PlanFileName is the plan snapshot written into each session directory.
const PlanFileName = "plan.json"

var commandContext = exec.CommandContext

// Runner starts experiment sessions one at a time per rig.
type Runner struct {
	Command     string
	Args        []string
	LockPath    string
	LockTimeout time.Duration
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
}

// NewRunner builds a runner from the [experiment] section.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		Command:     cfg.Experiment.Command,
		Args:        append([]string(nil), cfg.Experiment.Args...),
		LockPath:    cfg.LockPath(),
		LockTimeout: time.Duration(cfg.Experiment.LockTimeoutSec) * time.Second,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Logger:      logger,
	}
}

// Prepare creates the session directory and writes the plan and the
// calibration snapshots. It returns the plan file path.
func (r *Runner) Prepare(plan *Plan) (string, error) {
	if err := os.MkdirAll(plan.SessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	snapshots := map[string]string{}
	refs := []struct {
		role string
		ref  CalibrationRef
	}{
		{"starship", plan.StarshipCalibration},
		{"microphone", plan.MicrophoneCalibration},
	}
	for _, c := range refs {
		src := c.ref.Attrs.CalibrationFile
		if src == "" {
			continue
		}
		dst := filepath.Join(plan.SessionDir, "calibration", c.role, filepath.Base(src))
		if _, err := fileutil.CopyPathVerified(src, dst); err != nil {
			return "", fmt.Errorf("snapshot %s calibration: %w", c.role, err)
		}
		snapshots[c.role] = dst
	}
	if plan.SettingsPath != "" {
		dst := filepath.Join(plan.SessionDir, "settings"+filepath.Ext(plan.SettingsPath))
		if err := fileutil.CopyFileVerified(plan.SettingsPath, dst); err != nil {
			return "", fmt.Errorf("snapshot settings: %w", err)
		}
		snapshots["settings"] = dst
	}
	plan.Snapshots = snapshots

	planPath := filepath.Join(plan.SessionDir, PlanFileName)
	if err := WritePlan(planPath, plan); err != nil {
		return "", err
	}
	return planPath, nil
}

// Run holds the rig lock while the experiment command runs. The command's
// exit error is returned unchanged.
func (r *Runner) Run(ctx context.Context, plan *Plan) error {
	ctx = session.WithRunID(ctx, plan.SessionID)
	ctx = session.WithStarship(ctx, plan.Starship.ID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "launch"))

	if r.Command == "" {
		return errors.New("no experiment command configured")
	}
	unlock, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	planPath, err := r.Prepare(plan)
	if err != nil {
		return err
	}
	logger.Info("session prepared",
		logging.String("paradigm", plan.Paradigm),
		logging.String("session_dir", plan.SessionDir),
	)

	cmd := commandContext(ctx, r.Command, r.Args...) //nolint:gosec
	cmd.Dir = plan.SessionDir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = append(os.Environ(),
		EnvPlan+"="+planPath,
		EnvSessionDir+"="+plan.SessionDir,
		EnvParadigm+"="+plan.Paradigm,
		EnvStarship+"="+plan.Starship.ID,
	)

	started := time.Now()
	logger.Info("experiment starting", logging.String("command", r.Command))
	if err := cmd.Run(); err != nil {
		logging.ErrorWithContext(logger, "experiment exited with error", "experiment_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "see the experiment output above"),
		)
		return fmt.Errorf("run %s: %w", r.Command, err)
	}
	logger.Info("experiment finished", logging.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) acquire(ctx context.Context) (func(), error) {
	if r.LockPath == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(r.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(r.LockPath)
	var (
		ok  bool
		err error
	)
	if r.LockTimeout > 0 {
		lockCtx, cancel := context.WithTimeout(ctx, r.LockTimeout)
		defer cancel()
		ok, err = lock.TryLockContext(lockCtx, 250*time.Millisecond)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	} else {
		ok, err = lock.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("acquire rig lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another session holds %s", ErrRigBusy, r.LockPath)
	}
	return func() { _ = lock.Unlock() }, nil
}
