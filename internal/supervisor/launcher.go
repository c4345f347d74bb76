package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// ExecLauncher starts tenant workers as child processes of the router,
// re-invoking this binary's worker subcommand. Bin overrides the executable
// path; empty means the running binary.
type ExecLauncher struct {
	Bin     string
	DataDir string
}

func (l *ExecLauncher) Launch(_ context.Context, tenantID, addr string) (Process, error) {
	bin := l.Bin
	if bin == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving worker binary: %w", err)
		}
		bin = exe
	}
	if err := os.MkdirAll(l.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	dbPath := filepath.Join(l.DataDir, tenantID+".db")

	cmd := exec.Command(bin, "worker",
		"--tenant", tenantID,
		"--listen", addr,
		"--db", dbPath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

// Stop asks the worker to shut down gracefully, then kills it if it is still
// running after five seconds.
func (p *execProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
		return p.cmd.Process.Kill()
	}
}
