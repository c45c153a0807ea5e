// Package runwrapper is the single place external packaging tools are
// run from. Every tool goes through the Runner interface, so a failing
// tool fails the pipeline, and tests can swap in a Recorder.
package runwrapper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/pkg/errors"
)

// Runner runs name with args in dir and waits for it. A non-zero exit
// status is an error.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

type execOptions struct {
	dir     string        // Working directory. (default: the process's)
	timeout time.Duration // Execution timeout. (default: none)
	output  io.Writer     // Also copy stdout and stderr here

	simulated       bool
	simulatedStdout string
	simulatedStderr string
	simulatedErr    error
}

type Option func(*execOptions)

// WithSimulatedResponse returns the given output instead of
// executing. Used for testing callers.
func WithSimulatedResponse(stdout, stderr string, err error) Option {
	return func(eo *execOptions) {
		eo.simulated = true
		eo.simulatedStdout = stdout
		eo.simulatedStderr = stderr
		eo.simulatedErr = err
	}
}

// WithTimeout sets the execution timeout. Builds can be slow, so there
// is none by default.
func WithTimeout(t time.Duration) Option {
	return func(eo *execOptions) {
		eo.timeout = t
	}
}

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(eo *execOptions) {
		eo.dir = dir
	}
}

// WithOutput streams the command's stdout and stderr to w as well as
// capturing them.
func WithOutput(w io.Writer) Option {
	return func(eo *execOptions) {
		eo.output = w
	}
}

// Exec runs arg0 and returns its trimmed stdout and stderr. On failure
// the error carries both.
func Exec(ctx context.Context, arg0 string, args []string, opts ...Option) (string, string, error) {
	execOptions := &execOptions{}

	for _, opt := range opts {
		opt(execOptions)
	}

	if execOptions.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, execOptions.timeout)
		defer cancel()
	}

	logger := ctxlog.FromContext(ctx)

	if execOptions.simulated {
		level.Debug(logger).Log("msg", "Returning simulated response")
		return execOptions.simulatedStdout, execOptions.simulatedStderr, execOptions.simulatedErr
	}

	level.Debug(logger).Log(
		"msg", "execing",
		"cmd", arg0,
		"args", strings.Join(args, " "),
		"dir", execOptions.dir,
	)

	cmd := exec.CommandContext(ctx, arg0, args...)
	cmd.Dir = execOptions.dir

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if execOptions.output != nil {
		cmd.Stdout = io.MultiWriter(stdout, execOptions.output)
		cmd.Stderr = io.MultiWriter(stderr, execOptions.output)
	}

	if err := cmd.Run(); err != nil {
		level.Info(logger).Log(
			"msg", "exec failed",
			"cmd", arg0,
			"args", fmt.Sprintf("%v", args),
			"stdout", strings.TrimSpace(stdout.String()),
			"stderr", strings.TrimSpace(stderr.String()),
			"err", err,
		)
		return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()),
			errors.Wrapf(err, "run command %s %v, stderr=%s", arg0, args, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), nil
}

type execRunner struct {
	opts []Option
}

// New returns a Runner backed by Exec. opts apply to every command;
// the directory passed to Run overrides WithDir.
func New(opts ...Option) Runner {
	return &execRunner{opts: opts}
}

func (r *execRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	opts := append(append([]Option{}, r.opts...), WithDir(dir))
	_, _, err := Exec(ctx, name, args, opts...)
	return err
}
