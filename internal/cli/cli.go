// Package cli implements the livediff command line.
package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	qcli "github.com/codalotl/livediff/internal/q/cli"
	"github.com/codalotl/livediff/internal/q/health"
)

// Version is the livediff version. It is a var so builds can override it with -ldflags "-X .../internal/cli.Version=1.2.3".
var Version = "0.3.0"

// RunOptions override standard I/O. Nil fields use os.Stdin, os.Stdout, and os.Stderr.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run runs the CLI with args (typically os.Args).
//
// It returns a recommended exit code and the error, if any:
//   - 0: err == nil
//   - 1: the command failed
//   - 2: args could not be parsed (unknown command or flag, wrong number of arguments, invalid flag value)
//
// On error, Run has already printed a message to the error writer.
func Run(args []string, opts *RunOptions) (int, error) {
	env := &cmdEnv{in: os.Stdin, out: os.Stdout, err: os.Stderr, config: processConfigEnv()}
	if opts != nil {
		if opts.In != nil {
			env.in = opts.In
		}
		if opts.Out != nil {
			env.out = opts.Out
		}
		if opts.Err != nil {
			env.err = opts.Err
		}
	}
	return env.run(args)
}

// cmdEnv is the I/O and environment of one Run.
type cmdEnv struct {
	in     io.Reader
	out    io.Writer
	err    io.Writer
	config configEnv

	failure error // last error returned by a command handler
}

func (env *cmdEnv) run(args []string) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var stderr bytes.Buffer
	code := qcli.Run(context.Background(), newRootCommand(env), qcli.Options{
		Args: argv,
		In:   env.in,
		Out:  env.out,
		Err:  io.MultiWriter(env.err, &stderr),
	})
	if code == 0 {
		return 0, nil
	}
	if env.failure != nil {
		return code, env.failure
	}

	msg, _, _ := strings.Cut(strings.TrimSpace(stderr.String()), "\n")
	msg = strings.TrimPrefix(msg, "Error: ")
	if msg == "" {
		msg = "command failed"
	}
	return code, errors.New(msg)
}

// action adapts a livediff command to a qcli.RunFunc. It loads the configuration (flags included) before calling run, and turns run's errors into messages for
// the user: invalid flag values are usage errors, and other failures print health.UserMessage.
func (env *cmdEnv) action(run func(c *qcli.Context, cfg Config) error) qcli.RunFunc {
	return func(c *qcli.Context) error {
		err := env.loadAndRun(c, run)
		if err == nil {
			return nil
		}
		env.failure = err

		var ec qcli.ExitCoder
		if errors.As(err, &ec) {
			return err
		}
		return qcli.ExitError{Code: 1, Err: errors.New(health.UserMessage(err))}
	}
}

func (env *cmdEnv) loadAndRun(c *qcli.Context, run func(c *qcli.Context, cfg Config) error) error {
	// Without flags first, so a broken config file is a failure rather than a usage error.
	if _, err := loadConfig(env.config, nil); err != nil {
		return err
	}
	cfg, err := loadConfig(env.config, c.Flags)
	if err != nil {
		return qcli.UsageError{Message: err.Error()}
	}
	return run(c, cfg)
}
