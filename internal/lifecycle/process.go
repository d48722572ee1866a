package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// Identity names a spawned companion process in a way that survives across
// invocations of the binary.
type Identity struct {
	PID int
}

// ProcessManager abstracts how the companion server process is spawned,
// probed and terminated. Start and Terminate typically run in different
// invocations, so implementations persist whatever they need to find the
// process again.
type ProcessManager interface {
	Start(ctx context.Context) (Identity, error)
	Resolve() (Identity, bool)
	IsAlive(id Identity) bool
	Terminate(id Identity) error
	Forget()
}

// PidFileManager spawns the server detached in its own session and records
// the pid in a file. Termination targets exactly that recorded pid, never a
// process matched by name, so a stale pid file risks at most one signal to
// a pid that is probed for liveness first.
type PidFileManager struct {
	PidFile string
	LogFile string
	Command string
	Args    []string

	log *zap.Logger
}

func NewPidFileManager(pidFile, logFile, command string, args []string, log *zap.Logger) *PidFileManager {
	return &PidFileManager{PidFile: pidFile, LogFile: logFile, Command: command, Args: args, log: log}
}

func (m *PidFileManager) Start(ctx context.Context) (Identity, error) {
	if ctx.Err() != nil {
		return Identity{}, ctx.Err()
	}

	cmd := exec.Command(m.Command, m.Args...)
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if m.LogFile != "" {
		out, err := os.OpenFile(m.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Identity{}, fmt.Errorf("open server log: %w", err)
		}
		defer out.Close()
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		return Identity{}, err
	}
	id := Identity{PID: cmd.Process.Pid}

	if err := os.WriteFile(m.PidFile, []byte(strconv.Itoa(id.PID)), 0o644); err != nil {
		m.log.Warn("pid file not written; stop will not find this process", zap.Error(err))
	}
	// The CLI exits right after start; the server must not die with it.
	if err := cmd.Process.Release(); err != nil {
		return id, err
	}
	return id, nil
}

func (m *PidFileManager) Resolve() (Identity, bool) {
	raw, err := os.ReadFile(m.PidFile)
	if err != nil {
		return Identity{}, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return Identity{}, false
	}
	return Identity{PID: pid}, true
}

func (m *PidFileManager) IsAlive(id Identity) bool {
	if id.PID <= 0 {
		return false
	}
	proc, err := os.FindProcess(id.PID)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (m *PidFileManager) Terminate(id Identity) error {
	if id.PID <= 0 {
		return nil
	}
	proc, err := os.FindProcess(id.PID)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	return nil
}

func (m *PidFileManager) Forget() {
	if err := os.Remove(m.PidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn("pid file not removed", zap.String("path", m.PidFile), zap.Error(err))
	}
}
