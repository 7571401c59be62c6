package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Options controls a single Run.
type Options struct {
	Args []string // without the program name

	// Nil streams use os.Stdin, os.Stdout, and os.Stderr.
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run selects the command named by the leading non-flag tokens of opts.Args, parses the rest as its flags and args, and runs it. It returns the process exit code:
//   - 0: success, or help was requested with -h/--help
//   - 1: the handler failed (or the code of an ExitCoder it returned)
//   - 2: usage error; the message and the command's help are printed to Err
func Run(ctx context.Context, root *Command, opts Options) int {
	if root == nil {
		panic("cli: Run called with nil root")
	}
	if root.Name == "" {
		panic("cli: Run called with root.Name empty")
	}

	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	selected, fs, parseErr := parseArgv(root, opts.Args)
	if errors.Is(parseErr, pflag.ErrHelp) {
		writeHelp(out, root, selected)
		return 0
	}
	if parseErr != nil {
		printUsageError(root, selected, parseErr, errOut)
		return 2
	}
	args := fs.Args()

	if selected.Run == nil {
		if len(args) == 0 {
			printUsageError(root, selected, usageErrorf("missing required subcommand"), errOut)
			return 2
		}
		printUsageError(root, selected, usageErrorf("unknown subcommand: %s", args[0]), errOut)
		return 2
	}

	if selected.Args != nil {
		if err := selected.Args(args); err != nil {
			return exitForHandlerError(root, selected, err, errOut)
		}
	}

	c := &Context{
		Context: ctx,
		Command: selected,
		Args:    args,
		Flags:   fs,
		In:      in,
		Out:     out,
		Err:     errOut,
	}
	if err := selected.Run(c); err != nil {
		return exitForHandlerError(root, selected, err, errOut)
	}
	return 0
}

// parseArgv descends into subcommands while the leading tokens name them, then parses the remaining tokens with the selected command's flags.
func parseArgv(root *Command, argv []string) (*Command, *pflag.FlagSet, error) {
	selected := root
	i := 0
	for ; i < len(argv) && !strings.HasPrefix(argv[i], "-"); i++ {
		child := selected.childByToken(argv[i])
		if child == nil {
			break
		}
		selected = child
	}

	fs := selected.flags
	if fs == nil {
		fs = newFlagSet(selected.Name)
	}
	if err := fs.Parse(argv[i:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return selected, fs, err
		}
		return selected, fs, UsageError{Message: err.Error()}
	}
	return selected, fs, nil
}

func exitForHandlerError(root, cmd *Command, err error, errOut io.Writer) int {
	code := 1
	var ec ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	switch code {
	case 0:
		return 0
	case 2:
		printUsageError(root, cmd, err, errOut)
		return 2
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(errOut, "Error: %s\n", msg)
	}
	return code
}

func printUsageError(root, cmd *Command, err error, errOut io.Writer) {
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(errOut, "Error: %s\n\n", msg)
	}
	writeHelp(errOut, root, cmd)
}
