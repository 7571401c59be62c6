// Package cli runs a tree of subcommands: it selects the command named by the leading tokens, parses its flags with pflag, validates positional args, and maps
// handler errors to exit codes (0 ok, 1 failure, 2 usage).
package cli

import (
	"context"
	"io"

	"github.com/spf13/pflag"
)

// RunFunc is a command handler.
type RunFunc func(c *Context) error

// ArgsFunc validates positional args. It should return a UsageError for user-facing usage mistakes.
type ArgsFunc func(args []string) error

// Command defines one CLI command in a command tree.
type Command struct {
	// Name is the token used to invoke this command (e.g. "diff" in "livediff diff").
	Name string

	Short   string
	Long    string
	Example string

	Args ArgsFunc // optional
	Run  RunFunc  // optional; a command without Run only groups children

	parent   *Command
	children []*Command
	flags    *pflag.FlagSet
}

// Context is passed to a RunFunc.
type Context struct {
	context.Context

	Command *Command
	Args    []string

	// Flags holds the parsed flags of Command. Flag.Changed reports which were given on the command line.
	Flags *pflag.FlagSet

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// AddCommand adds child commands under c.
func (c *Command) AddCommand(children ...*Command) {
	for _, child := range children {
		if child == nil {
			panic("cli: AddCommand called with nil child")
		}
		if child.parent != nil {
			panic("cli: AddCommand called with a child already attached to a parent")
		}
		if child.Name == "" {
			panic("cli: AddCommand called with a child with empty Name")
		}
		c.children = append(c.children, child)
		child.parent = c
	}
}

// Commands returns the direct children of c.
func (c *Command) Commands() []*Command {
	out := make([]*Command, len(c.children))
	copy(out, c.children)
	return out
}

// Flags returns c's flags. Define them before calling Run.
func (c *Command) Flags() *pflag.FlagSet {
	if c.flags == nil {
		c.flags = newFlagSet(c.Name)
	}
	return c.flags
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = true
	return fs
}

func (c *Command) childByToken(token string) *Command {
	for _, child := range c.children {
		if child.Name == token {
			return child
		}
	}
	return nil
}

func (c *Command) pathFromRoot() []*Command {
	var reversed []*Command
	for cur := c; cur != nil; cur = cur.parent {
		reversed = append(reversed, cur)
	}
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return reversed
}
