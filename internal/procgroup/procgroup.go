// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup runs camera helper processes (ffmpeg) in their own process
// group so a stopped stream never leaves orphaned grandchildren behind.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/ManuGH/partybooth/internal/metrics"
)

// Set makes cmd lead a new process group. Call it before Start.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate sends SIGTERM to the group of cmd and waits up to grace for
// waitCh. A group still alive after that gets SIGKILL. The result of waitCh is
// returned. A nil or unstarted cmd is a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd, syscall.SIGTERM)
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case err := <-waitCh:
		return err
	case <-timer.C:
	}

	logger := log.WithComponent("procgroup")
	logger.Warn().
		Int("pid", cmd.Process.Pid).
		Dur("grace", grace).
		Msg("process group ignored SIGTERM, killing")
	signalGroup(cmd, syscall.SIGKILL)
	return <-waitCh
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGKILL: "SIGKILL",
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	result := "sent"
	if err := kill(cmd, sig); err != nil {
		result = "error"
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
			result = "esrch"
		}
	}
	metrics.RecordProcTerminate(signalNames[sig], result)
}
