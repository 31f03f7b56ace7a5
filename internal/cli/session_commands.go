package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	qcli "github.com/codalotl/blockdiff/internal/q/cli"
	"github.com/codalotl/blockdiff/internal/session"
)

// rootID maps the CLI spellings of "no parent" to the empty id.
func rootID(s string) document.BlockID {
	if s == "root" || s == "-" {
		return ""
	}
	return document.BlockID(s)
}

// parseScalar reads a metadata value: true/false, a number, null, or else the string itself.
func parseScalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func newEditCommand(a *app) *qcli.Command {
	edit := &qcli.Command{
		Name:    "edit",
		Aliases: []string{"e"},
		Short:   "Apply one edit to the session and record it in history.",
		Long:    "Apply one edit to the session's current document. The edit is recorded as a new history entry, discarding any redo entries.",
	}
	message := edit.PersistentFlags().String("message", 'm', "", "history entry description (default: derived from the edit)")

	// editRun builds the edit from args and records it.
	editRun := func(build func(c *qcli.Context) (session.Edit, error)) qcli.RunFunc {
		return a.withSession(true, func(c *qcli.Context, cfg Config, s *session.Session) error {
			e, err := build(c)
			if err != nil {
				return err
			}
			entry, err := s.Apply(*message, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.Out, "#%d %s\n", s.History().CurrentIndex, entry.Description)
			return nil
		})
	}

	setContent := &qcli.Command{
		Name:    "set-content",
		Short:   "Replace a block's content. Use - to read the content from stdin.",
		Args:    qcli.ExactArgs(2),
		Example: "blockdiff edit set-content blk_000000000001 'New text'",
		Run: editRun(func(c *qcli.Context) (session.Edit, error) {
			content := c.Args[1]
			if content == "-" {
				b, err := io.ReadAll(c.In)
				if err != nil {
					return nil, err
				}
				content = strings.TrimSuffix(string(b), "\n")
			}
			return session.SetContent(document.BlockID(c.Args[0]), content), nil
		}),
	}

	insert := &qcli.Command{
		Name:  "insert",
		Short: "Insert a new block under a parent (root for a top-level block).",
		Args:  qcli.ExactArgs(2),
	}
	insertIndex := insert.Flags().Int("index", 'i', -1, "position among the parent's children (-1 appends)")
	insertType := insert.Flags().String("type", 't', string(document.ContentText), "content type")
	insert.Run = editRun(func(c *qcli.Context) (session.Edit, error) {
		if strings.TrimSpace(*insertType) == "" {
			return nil, qcli.Usagef("--type must be non-empty")
		}
		return session.Insert(rootID(c.Args[0]), *insertIndex, document.ContentType(*insertType), c.Args[1]), nil
	})

	move := &qcli.Command{
		Name:  "move",
		Short: "Move a block (and its subtree) under a new parent.",
		Args:  qcli.ExactArgs(2),
	}
	moveIndex := move.Flags().Int("index", 'i', -1, "position among the new parent's children (-1 appends)")
	move.Run = editRun(func(c *qcli.Context) (session.Edit, error) {
		return session.Move(document.BlockID(c.Args[0]), rootID(c.Args[1]), *moveIndex), nil
	})

	remove := &qcli.Command{
		Name:    "remove",
		Aliases: []string{"rm"},
		Short:   "Remove a block and its subtree.",
		Args:    qcli.ExactArgs(1),
		Run: editRun(func(c *qcli.Context) (session.Edit, error) {
			return session.Remove(document.BlockID(c.Args[0])), nil
		}),
	}

	setMeta := &qcli.Command{
		Name:  "set-meta",
		Short: "Set a metadata key on a block. Omit the value (or pass null) to delete the key.",
		Long: "Set a metadata key on a block. The value is parsed as true, false, null, or a number when it looks like one, and is a string\n" +
			"otherwise. Omitting the value deletes the key.",
		Args: qcli.RangeArgs(2, 3),
		Run: editRun(func(c *qcli.Context) (session.Edit, error) {
			var value any
			if len(c.Args) == 3 {
				value = parseScalar(c.Args[2])
			}
			return session.SetMetadata(document.BlockID(c.Args[0]), c.Args[1], value), nil
		}),
	}

	link := &qcli.Command{
		Name:    "link",
		Short:   "Add a typed edge between two blocks.",
		Args:    qcli.ExactArgs(3),
		Example: "blockdiff edit link blk_000000000004 supports blk_000000000001",
		Run: editRun(func(c *qcli.Context) (session.Edit, error) {
			return session.Link(document.BlockID(c.Args[0]), document.EdgeType(c.Args[1]), document.BlockID(c.Args[2])), nil
		}),
	}

	edit.AddCommand(setContent, insert, move, remove, setMeta, link)
	return edit
}

func newUndoCommand(a *app) *qcli.Command {
	return &qcli.Command{
		Name:  "undo",
		Short: "Step back one history entry.",
		Args:  qcli.NoArgs,
		Run: a.withSession(true, func(c *qcli.Context, cfg Config, s *session.Session) error {
			t, err := s.Undo()
			if err != nil {
				return nothingTo(err)
			}
			fmt.Fprintf(c.Out, "undo: now at %s\n", targetLabel(t))
			return nil
		}),
	}
}

func newRedoCommand(a *app) *qcli.Command {
	return &qcli.Command{
		Name:  "redo",
		Short: "Step forward one history entry.",
		Args:  qcli.NoArgs,
		Run: a.withSession(true, func(c *qcli.Context, cfg Config, s *session.Session) error {
			t, err := s.Redo()
			if err != nil {
				return nothingTo(err)
			}
			fmt.Fprintf(c.Out, "redo: now at %s\n", targetLabel(t))
			return nil
		}),
	}
}

// nothingTo turns an at-the-boundary undo/redo into a plain exit code 1 failure with its message.
func nothingTo(err error) error {
	if errors.Is(err, session.ErrNothingToUndo) || errors.Is(err, session.ErrNothingToRedo) {
		return qcli.ExitError{Code: 1, Err: err}
	}
	return err
}

func targetLabel(t history.Target) string {
	if t.Pristine() {
		return "pristine"
	}
	return fmt.Sprintf("#%d %s", t.Index, t.Entry.Description)
}

func newLogCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "log",
		Short: "List history entries. The current entry is marked with *.",
		Args:  qcli.NoArgs,
	}
	asJSON := cmd.Flags().Bool("json", 0, false, "print the history state as JSON")
	cmd.Run = a.withSession(false, func(c *qcli.Context, cfg Config, s *session.Session) error {
		st := s.History()
		if *asJSON {
			return writeJSON(c.Out, st)
		}
		writeLog(c.Out, st)
		return nil
	})
	return cmd
}

// writeLog prints the pristine state and each entry, oldest first.
func writeLog(w io.Writer, st history.State) {
	mark := func(i int) string {
		if i == st.CurrentIndex {
			return "*"
		}
		return " "
	}
	fmt.Fprintf(w, "%s %3s  pristine\n", mark(-1), "-1")
	for i, e := range st.Entries {
		fmt.Fprintf(w, "%s %3d  %s  %s\n", mark(i), i, e.Timestamp.Local().Format(time.DateTime), e.Description)
	}
}

func newChangesCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "changes",
		Short: "Diff two history states (default: pristine against current).",
		Args:  qcli.NoArgs,
	}
	from := cmd.Flags().String("from", 0, "", "history index to diff from (-1 is pristine)")
	to := cmd.Flags().String("to", 0, "", "history index to diff to (default current)")
	o := addDiffFlags(cmd)
	cmd.Run = a.withConfig(func(c *qcli.Context, cfg Config) error {
		opts, err := o.options(cfg)
		if err != nil {
			return qcli.Usagef("%v", err)
		}
		sopts, err := sessionOptions(cfg)
		if err != nil {
			return err
		}
		sopts.Diff = opts
		s, err := loadSession(cfg, sopts)
		if err != nil {
			return err
		}

		if *from == "" && *to == "" {
			d, err := s.Changes()
			if err != nil {
				return err
			}
			return o.write(c.Out, cfg, d)
		}
		fromIdx, toIdx := -1, s.History().CurrentIndex
		if *from != "" {
			if fromIdx, err = strconv.Atoi(*from); err != nil {
				return qcli.Usagef("--from: %q is not an index", *from)
			}
		}
		if *to != "" {
			if toIdx, err = strconv.Atoi(*to); err != nil {
				return qcli.Usagef("--to: %q is not an index", *to)
			}
		}
		d, err := s.Diff(fromIdx, toIdx)
		if err != nil {
			return err
		}
		return o.write(c.Out, cfg, d)
	})
	return cmd
}
