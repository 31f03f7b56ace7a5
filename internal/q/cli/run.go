package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Options configure Run.
type Options struct {
	Args []string // argv without the program name

	// In, Out, and Err default to the process's standard streams.
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Context is passed to a command handler. Flag values are read through the pointers returned when the flags were declared.
type Context struct {
	context.Context

	Command *Command
	Args    []string

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

var errHelp = errors.New("help requested")

// Run parses opts.Args against the tree rooted at root, runs the selected command, and returns the process exit code.
func Run(ctx context.Context, root *Command, opts Options) int {
	if root == nil || root.Name == "" {
		panic("cli: Run needs a named root command")
	}
	c := &Context{Context: ctx, In: opts.In, Out: opts.Out, Err: opts.Err}
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Err == nil {
		c.Err = os.Stderr
	}

	cmd, args, err := parse(root, opts.Args)
	if errors.Is(err, errHelp) {
		writeHelp(c.Out, cmd)
		return 0
	}
	if err != nil {
		return fail(c.Err, cmd, err, 2)
	}

	if cmd.Run == nil {
		if len(args) == 0 {
			return fail(c.Err, cmd, usageErrorf("missing required subcommand"), 2)
		}
		return fail(c.Err, cmd, usageErrorf("unknown subcommand: %s", args[0]), 2)
	}
	if cmd.Args != nil {
		if err := cmd.Args(args); err != nil {
			return fail(c.Err, cmd, err, 2)
		}
	}

	c.Command, c.Args = cmd, args
	if err := cmd.Run(c); err != nil {
		return fail(c.Err, cmd, err, 1)
	}
	return 0
}

// parse selects the deepest command named by the leading non-flag tokens and collects flags and positional args. Flags may appear anywhere; "--" ends flag
// parsing.
func parse(root *Command, argv []string) (*Command, []string, error) {
	cmd := root
	selecting := true
	var args []string

	for i := 0; i < len(argv); i++ {
		token := argv[i]
		switch {
		case token == "--":
			return cmd, append(args, argv[i+1:]...), nil
		case token == "-h" || token == "--help":
			return cmd, nil, errHelp
		case strings.HasPrefix(token, "-") && token != "-":
			n, err := cmd.activeFlags().parseFlag(argv, i)
			if err != nil {
				return cmd, nil, err
			}
			i += n
		default:
			if selecting {
				if child := cmd.child(token); child != nil {
					cmd = child
					continue
				}
				selecting = false
			}
			args = append(args, token)
		}
	}
	return cmd, args, nil
}

// fail reports err and returns its exit code. Errors without a code get def. Usage errors (code 2) are followed by the command's help.
func fail(w io.Writer, cmd *Command, err error, def int) int {
	code := def
	var ec ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	if code == 0 {
		return 0
	}

	msg := err.Error()
	var ee ExitError
	if errors.As(err, &ee) && ee.Err == nil {
		msg = ""
	}
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	if code == 2 {
		if msg != "" {
			fmt.Fprintln(w)
		}
		writeHelp(w, cmd)
	}
	return code
}
