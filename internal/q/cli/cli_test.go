package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(root *Command, args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := Run(context.Background(), root, Options{Args: args, Out: &out, Err: &errOut})
	return code, out.String(), errOut.String()
}

func TestRun_SelectsDeepestCommandWithInterspersedFlags(t *testing.T) {
	root := &Command{Name: "prog"}
	verbose := root.PersistentFlags().Bool("verbose", 'v', false, "verbose output")

	group := &Command{Name: "snapshot", Short: "Named snapshots"}
	create := &Command{Name: "create", Aliases: []string{"new"}, Args: ExactArgs(1)}
	desc := create.Flags().String("description", 'd', "", "description")
	max := create.Flags().Int("max", 0, 3, "max")
	wait := create.Flags().Duration("wait", 0, 0, "wait")
	format := create.Flags().Enum("format", 'f', "text", []string{"text", "json"}, "output format")

	var got []string
	create.Run = func(c *Context) error {
		got = c.Args
		return nil
	}
	group.AddCommand(create)
	root.AddCommand(group)

	code, stdout, stderr := runCLI(root, "-v", "snapshot", "new", "v1", "--description=first", "--max", "7", "-wait=2s", "-f", "json")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.True(t, *verbose)
	assert.Equal(t, "first", *desc)
	assert.Equal(t, 7, *max)
	assert.Equal(t, 2*time.Second, *wait)
	assert.Equal(t, "json", *format)
	assert.Equal(t, []string{"v1"}, got)
}

func TestRun_SelectionStopsAtFirstPositional(t *testing.T) {
	root := &Command{Name: "prog"}
	show := &Command{Name: "show"}
	sub := &Command{Name: "sub", Run: func(*Context) error { return errors.New("should not run") }}
	var got []string
	show.Run = func(c *Context) error {
		got = c.Args
		return nil
	}
	show.AddCommand(sub)
	root.AddCommand(show)

	code, _, stderr := runCLI(root, "show", "file", "sub")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, []string{"file", "sub"}, got)
}

func TestRun_DashDashEndsFlags(t *testing.T) {
	root := &Command{Name: "prog"}
	b := root.Flags().Bool("b", 0, false, "")
	var got []string
	root.Run = func(c *Context) error {
		got = c.Args
		return nil
	}

	code, _, _ := runCLI(root, "--b", "--", "--b", "-x")
	require.Equal(t, 0, code)
	assert.True(t, *b)
	assert.Equal(t, []string{"--b", "-x"}, got)
}

func TestRun_BoolFlagConsumesOnlyBoolValues(t *testing.T) {
	root := &Command{Name: "prog"}
	b := root.Flags().Bool("color", 0, true, "")
	var got []string
	root.Run = func(c *Context) error {
		got = c.Args
		return nil
	}

	code, _, _ := runCLI(root, "--color", "false", "file")
	require.Equal(t, 0, code)
	assert.False(t, *b)
	assert.Equal(t, []string{"file"}, got)

	code, _, _ = runCLI(root, "--color", "file")
	require.Equal(t, 0, code)
	assert.True(t, *b)
	assert.Equal(t, []string{"file"}, got)
}

func TestRun_UsageErrors(t *testing.T) {
	newRoot := func() *Command {
		root := &Command{Name: "prog"}
		root.Flags().Int("n", 'n', 0, "count")
		root.Flags().Enum("format", 0, "text", []string{"text", "json"}, "")
		group := &Command{Name: "group"}
		group.AddCommand(&Command{Name: "leaf", Args: NoArgs, Run: func(*Context) error { return nil }})
		root.AddCommand(group)
		root.Run = func(*Context) error { return nil }
		root.Args = RangeArgs(0, 1)
		return root
	}

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown flag", []string{"--nope"}, "unknown flag: --nope"},
		{"missing value", []string{"-n"}, "flag needs a value: -n"},
		{"value before dashdash", []string{"-n", "--"}, "flag needs a value before --: -n"},
		{"bad int", []string{"-n", "x"}, "invalid value for -n/--n"},
		{"bad enum", []string{"--format", "xml"}, "must be one of text, json"},
		{"too many args", []string{"a", "b"}, "expected 0 to 1 arg, got 2"},
		{"missing subcommand", []string{"group"}, "missing required subcommand"},
		{"unknown subcommand", []string{"group", "zzz"}, "unknown subcommand: zzz"},
		{"leaf args", []string{"group", "leaf", "x"}, "expected no args, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(newRoot(), tt.args...)
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.msg)
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestRun_HandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{"plain", errors.New("boom"), 1, "boom\n"},
		{"exit error", ExitError{Code: 3, Err: errors.New("bad")}, 3, "bad\n"},
		{"silent exit", ExitError{Code: 1}, 1, ""},
		{"exit zero", ExitError{Code: 0}, 0, ""},
		{"usage", Usagef("need %s", "x"), 2, "need x\n\nprog\n\nUsage:\n  prog [args]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := &Command{Name: "prog", Run: func(*Context) error { return tt.err }}
			code, _, stderr := runCLI(root)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestHelp(t *testing.T) {
	root := &Command{Name: "prog", Short: "Does things", Example: "prog run x\n\nprog run y"}
	root.PersistentFlags().Bool("verbose", 'v', false, "verbose output")
	run := &Command{Name: "run", Short: "Run it", Run: func(*Context) error { return nil }}
	run.Flags().Int("max", 0, 5, "limit")
	root.AddCommand(run, &Command{Name: "ls"})

	code, stdout, _ := runCLI(root, "--help")
	require.Equal(t, 0, code)
	assert.Equal(t, "prog - Does things\n"+
		"\n"+
		"Usage:\n"+
		"  prog [flags] <command>\n"+
		"\n"+
		"Commands:\n"+
		"  ls\n"+
		"  run  Run it\n"+
		"\n"+
		"Flags:\n"+
		"  -v, --verbose  verbose output\n"+
		"\n"+
		"Example:\n"+
		"  prog run x\n"+
		"\n"+
		"  prog run y\n", stdout)

	code, stdout, _ = runCLI(root, "run", "-h")
	require.Equal(t, 0, code)
	assert.Equal(t, "prog run - Run it\n"+
		"\n"+
		"Usage:\n"+
		"  prog run [flags] [args]\n"+
		"\n"+
		"Flags:\n"+
		"      --max <int>  limit (default 5)\n"+
		"  -v, --verbose    verbose output\n", stdout)
}

func TestAddCommandPanics(t *testing.T) {
	root := &Command{Name: "prog"}
	assert.Panics(t, func() { root.AddCommand(nil) })
	assert.Panics(t, func() { root.AddCommand(&Command{}) })
	child := &Command{Name: "c"}
	root.AddCommand(child)
	assert.Panics(t, func() { (&Command{Name: "other"}).AddCommand(child) })

	fs := newFlagSet()
	fs.Bool("x", 'x', false, "")
	assert.Panics(t, func() { fs.String("x", 0, "", "") })
	assert.Panics(t, func() { fs.String("y", 'x', "", "") })
}
