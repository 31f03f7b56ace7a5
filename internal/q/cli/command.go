// Package cli is a small command-tree CLI framework: nested commands, typed flags (persistent flags inherit down the tree), positional-arg validators, generated
// help, and exit codes (0 success, 1 runtime failure, 2 usage error).
package cli

import "fmt"

// RunFunc is a command handler.
type RunFunc func(c *Context) error

// ArgsFunc validates positional args. Returning a UsageError prints help and exits 2.
type ArgsFunc func(args []string) error

// Command is one node in a command tree.
type Command struct {
	Name    string   // token that selects the command (ex: "create" in "snapshot create")
	Aliases []string // other tokens that select it

	Short   string // one line, shown in the parent's command list
	Long    string
	Example string

	Args ArgsFunc // optional
	Run  RunFunc  // nil for pure groups: invoking them without a subcommand is a usage error

	parent          *Command
	children        []*Command
	localFlags      *FlagSet
	persistentFlags *FlagSet
}

// AddCommand attaches children to c. It panics on a nil, unnamed, or already attached child.
func (c *Command) AddCommand(children ...*Command) {
	for _, child := range children {
		switch {
		case child == nil:
			panic("cli: AddCommand called with nil child")
		case child.parent != nil:
			panic("cli: AddCommand called with a child already attached to a parent")
		case child.Name == "":
			panic("cli: AddCommand called with a child with empty Name")
		}
		c.children = append(c.children, child)
		child.parent = c
	}
}

// Commands returns a copy of c's children.
func (c *Command) Commands() []*Command {
	return append([]*Command(nil), c.children...)
}

// Flags returns flags that apply to c only.
func (c *Command) Flags() *FlagSet {
	if c.localFlags == nil {
		c.localFlags = newFlagSet()
	}
	return c.localFlags
}

// PersistentFlags returns flags that apply to c and every descendant.
func (c *Command) PersistentFlags() *FlagSet {
	if c.persistentFlags == nil {
		c.persistentFlags = newFlagSet()
	}
	return c.persistentFlags
}

func (c *Command) child(token string) *Command {
	for _, child := range c.children {
		if child.Name == token {
			return child
		}
		for _, alias := range child.Aliases {
			if alias == token {
				return child
			}
		}
	}
	return nil
}

// path returns the commands from the root down to c.
func (c *Command) path() []*Command {
	var p []*Command
	for cur := c; cur != nil; cur = cur.parent {
		p = append([]*Command{cur}, p...)
	}
	return p
}

// NoArgs rejects any positional args.
func NoArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	return usageErrorf("expected no args, got %d", len(args))
}

// ExactArgs requires exactly n positional args.
func ExactArgs(n int) ArgsFunc {
	return func(args []string) error {
		if len(args) == n {
			return nil
		}
		return usageErrorf("expected %s, got %d", countArgs(n), len(args))
	}
}

// MinimumArgs requires at least n positional args.
func MinimumArgs(n int) ArgsFunc {
	return func(args []string) error {
		if len(args) >= n {
			return nil
		}
		return usageErrorf("expected at least %s, got %d", countArgs(n), len(args))
	}
}

// RangeArgs requires between lo and hi positional args, inclusive.
func RangeArgs(lo, hi int) ArgsFunc {
	return func(args []string) error {
		if len(args) >= lo && len(args) <= hi {
			return nil
		}
		return usageErrorf("expected %d to %s, got %d", lo, countArgs(hi), len(args))
	}
}

func countArgs(n int) string {
	if n == 1 {
		return "1 arg"
	}
	return fmt.Sprintf("%d args", n)
}
