// Package launcher wraps an application run with the sync lifecycle: pull
// before the application starts, push after it exits. This is the
// process-lifecycle collaborator the engine itself stays ignorant of.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/tabsync/tabsync/internal/engine"
	"github.com/tabsync/tabsync/internal/logging"
	"github.com/tabsync/tabsync/internal/ui"
)

// Run pulls, executes argv with inherited stdio, waits for it to exit, and
// pushes. A failed pull never blocks the application from starting (it
// proceeds with the stale local configuration); a failed push is a hard
// error since it risks losing the session's changes.
func Run(ctx context.Context, eng *engine.Engine, argv []string) error {
	if len(argv) == 0 {
		return errors.New("run requires a command to execute")
	}

	if _, err := eng.Pull(ctx); err != nil {
		logging.Warn("pull failed, starting with local configuration", logging.Err(err))
		fmt.Fprintln(os.Stderr, ui.StatusWarning("pull failed, using local configuration: "+err.Error()))
	}

	runErr := runCommand(ctx, argv)

	if _, err := eng.Push(ctx); err != nil {
		if runErr != nil {
			return fmt.Errorf("push failed after command error (%v): %w", runErr, err)
		}
		return fmt.Errorf("push failed: %w", err)
	}

	return runErr
}

func runCommand(ctx context.Context, argv []string) error {
	// #nosec G204 - the command comes from the user's own invocation
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", argv[0], err)
	}
	return nil
}
