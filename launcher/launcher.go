// Package launcher runs the API server and the web UI process with
// signal-based shutdown.
package launcher

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/api"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "launcher")

// Mode selects which components to run.
type Mode string

const (
	// ModeAPI runs only the HTTP API server.
	ModeAPI Mode = "api"
	// ModeWeb runs only the web UI process.
	ModeWeb Mode = "web"
	// ModeBoth runs the API server and the web UI.
	ModeBoth Mode = "both"
)

// DefaultGracePeriod bounds cooperative shutdown before processes are killed.
const DefaultGracePeriod = 10 * time.Second

// WebConfig describes the web UI command run as a supervised OS process.
type WebConfig struct {
	// Command is the executable to run, for example "streamlit".
	Command string `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env is appended to the current process environment.
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Config configures the launcher.
type Config struct {
	Mode Mode      `json:"mode" yaml:"mode"`
	Web  WebConfig `json:"web,omitempty" yaml:"web,omitempty"`
	// GracePeriod bounds cooperative shutdown. Default 10s.
	GracePeriod time.Duration `json:"grace_period,omitempty" yaml:"grace_period,omitempty"`
}

// Launcher runs the configured components until a termination signal.
type Launcher struct {
	cfg       Config
	apiServer *api.Server
}

// New creates a Launcher. apiServer may be nil when the mode is ModeWeb.
func New(cfg Config, apiServer *api.Server) (*Launcher, error) {
	switch cfg.Mode {
	case ModeAPI, ModeBoth:
		if apiServer == nil {
			return nil, errors.Newf("mode %q requires an API server", cfg.Mode)
		}
	case ModeWeb:
		if cfg.Web.Command == "" {
			return nil, errors.New("mode \"web\" requires a web command")
		}
	default:
		return nil, errors.Newf("unsupported mode: %q", cfg.Mode)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Launcher{
		cfg:       cfg,
		apiServer: apiServer,
	}, nil
}

// Run starts the components and blocks until a SIGINT/SIGTERM is received or
// a component fails. A failed component stops the others.
func (l *Launcher) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	running := 0

	if l.cfg.Mode == ModeAPI || l.cfg.Mode == ModeBoth {
		running++
		go func() {
			errCh <- l.runAPI(ctx)
		}()
	}
	if l.cfg.Mode == ModeWeb || l.cfg.Mode == ModeBoth {
		running++
		go func() {
			errCh <- l.runWeb(ctx)
		}()
	}

	var firstErr error
	for i := 0; i < running; i++ {
		err := <-errCh
		if err != nil && firstErr == nil {
			firstErr = err
		}
		// a failed component takes the rest down
		stop()
	}
	return firstErr
}

func (l *Launcher) runAPI(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.apiServer.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.cfg.GracePeriod)
	defer cancel()
	return l.apiServer.Shutdown(shutdownCtx)
}

// runWeb starts the web UI command and monitors it. On shutdown the process
// gets SIGTERM, then SIGKILL after the grace period.
func (l *Launcher) runWeb(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, l.cfg.Web.Command, l.cfg.Web.Args...)
	cmd.Dir = l.cfg.Web.Dir
	cmd.Env = append(os.Environ(), l.cfg.Web.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.cfg.GracePeriod

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start web UI: %s", l.cfg.Web.Command)
	}
	logger.KV(xlog.INFO, "status", "web_started", "command", l.cfg.Web.Command, "pid", cmd.Process.Pid)

	err := cmd.Wait()
	if ctx.Err() != nil {
		// expected exit during shutdown
		logger.KV(xlog.INFO, "status", "web_stopped")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "web UI exited")
	}
	return errors.New("web UI exited unexpectedly")
}
