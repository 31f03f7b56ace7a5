// Package cli implements the blockdiff command line: diffing documents, editing a persisted session with undo/redo, named snapshots, and the review server.
package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	qcli "github.com/codalotl/blockdiff/internal/q/cli"
)

// Version is the blockdiff version. It is a var so release builds can set it with -ldflags "-X .../internal/cli.Version=...".
var Version = "0.3.0"

// RunOptions override standard I/O. Nil fields use the process's streams.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Context is canceled to stop long-running commands (serve). Defaults to context.Background().
	Context context.Context
}

// Run runs the CLI with args (typically os.Args) and returns an exit code:
//   - 0: success; err is nil.
//   - 1: the command failed.
//   - 2: usage error (bad flags or args).
//
// On failure Run has already written a message to the error stream; err carries the same text.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var (
		in   io.Reader = os.Stdin
		out  io.Writer = os.Stdout
		errW io.Writer = os.Stderr
		ctx            = context.Background()
	)
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
		if opts.Context != nil {
			ctx = opts.Context
		}
	}

	// qcli.Run returns only a code; tee stderr to build the error.
	var stderrBuf bytes.Buffer
	code := qcli.Run(ctx, newRootCommand(out), qcli.Options{
		Args: argv,
		In:   in,
		Out:  out,
		Err:  io.MultiWriter(errW, &stderrBuf),
	})
	if code == 0 {
		return 0, nil
	}

	msg := strings.TrimSpace(stderrBuf.String())
	if msg == "" {
		msg = "command failed"
	}
	return code, errors.New(msg)
}
