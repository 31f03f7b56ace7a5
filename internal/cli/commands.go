package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/mdimport"
	"github.com/codalotl/blockdiff/internal/q/cas"
	qcli "github.com/codalotl/blockdiff/internal/q/cli"
	"github.com/codalotl/blockdiff/internal/server"
	"github.com/codalotl/blockdiff/internal/session"
	"github.com/codalotl/blockdiff/internal/simplelogger"
)

func newRootCommand(out io.Writer) *qcli.Command {
	a := &app{}
	root := &qcli.Command{
		Name:  "blockdiff",
		Short: "Diff structured documents and edit them with undo/redo history.",
		Long: "blockdiff compares block-structured documents (JSON, or Markdown imported into blocks) and keeps an editing session with linear undo/redo\n" +
			"history and named snapshots. Session state lives in the file named by --state or the statepath config key.",
	}
	a.statePath = root.PersistentFlags().String("state", 's', "", "session state file (default from config)")
	a.color = root.PersistentFlags().Enum("color", 0, "", []string{colorAuto, colorAlways, colorNever}, "color output (default from config)")

	root.AddCommand(
		newDiffCommand(a),
		newImportCommand(a),
		newValidateCommand(),
		newInitCommand(a),
		newShowCommand(a),
		newEditCommand(a),
		newUndoCommand(a),
		newRedoCommand(a),
		newLogCommand(a),
		newChangesCommand(a),
		newSnapshotCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
		&qcli.Command{
			Name:  "version",
			Short: "Print the blockdiff version.",
			Args:  qcli.NoArgs,
			Run: func(c *qcli.Context) error {
				_, err := fmt.Fprintf(out, "blockdiff %s\n", Version)
				return err
			},
		},
	)
	return root
}

func newDiffCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "diff",
		Short: "Compare two documents.",
		Long: "Compare two documents. Each file is a JSON document or Markdown (.md, .markdown). Markdown files are imported with ids assigned in\n" +
			"document order starting from the same counter, so blocks are matched by position.",
		Example: "blockdiff diff old.md new.md\nblockdiff diff --format json a.json b.json",
		Args:    qcli.ExactArgs(2),
	}
	o := addDiffFlags(cmd)
	cmd.Run = a.withConfig(func(c *qcli.Context, cfg Config) error {
		opts, err := o.options(cfg)
		if err != nil {
			return qcli.Usagef("%v", err)
		}
		oldDoc, err := readDocument(c.Args[0], document.NewIDAllocator(0))
		if err != nil {
			return err
		}
		newDoc, err := readDocument(c.Args[1], document.NewIDAllocator(0))
		if err != nil {
			return err
		}

		select {
		case res := <-docdiff.ComputeAsync(oldDoc, newDoc, filepath.Base(c.Args[0]), filepath.Base(c.Args[1]), opts):
			if res.Err != nil {
				return res.Err
			}
			return o.write(c.Out, cfg, res.Diff)
		case <-c.Context.Done():
			return c.Context.Err()
		}
	})
	return cmd
}

func newImportCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "import",
		Short: "Convert a Markdown file into a JSON document.",
		Args:  qcli.ExactArgs(1),
	}
	output := cmd.Flags().String("output", 'o', "", "write the document to this file instead of stdout")
	start := cmd.Flags().Int("start-id", 0, 0, "first block id counter to allocate")
	cmd.Run = func(c *qcli.Context) error {
		if *start < 0 {
			return qcli.Usagef("--start-id must be >= 0")
		}
		src, err := os.ReadFile(c.Args[0])
		if err != nil {
			return err
		}
		doc, err := mdimport.Import(src, document.NewIDAllocator(uint64(*start)))
		if err != nil {
			return err
		}
		if *output == "" {
			return writeJSON(c.Out, doc)
		}
		var buf bytes.Buffer
		if err := writeJSON(&buf, doc); err != nil {
			return err
		}
		if err := cas.WriteFileAtomic(*output, buf.Bytes(), 0o644); err != nil {
			return err
		}
		simplelogger.Log("import: wrote %s (%d blocks)", *output, doc.Len())
		fmt.Fprintf(c.Out, "wrote %s (%d blocks)\n", *output, doc.Len())
		return nil
	}
	return cmd
}

func newValidateCommand() *qcli.Command {
	return &qcli.Command{
		Name:  "validate",
		Short: "Check that a document is a well-formed block tree.",
		Args:  qcli.ExactArgs(1),
		Run: func(c *qcli.Context) error {
			doc, err := readDocument(c.Args[0], document.NewIDAllocator(0))
			if err != nil {
				return qcli.ExitError{Code: 1, Err: err}
			}
			fmt.Fprintf(c.Out, "ok: %d blocks\n", doc.Len())
			return nil
		},
	}
}

func newInitCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "init",
		Short: "Start an editing session from a document.",
		Long:  "Start an editing session whose pristine state is the given document. The history starts empty.",
		Args:  qcli.ExactArgs(1),
	}
	force := cmd.Flags().Bool("force", 'f', false, "replace an existing session")
	cmd.Run = a.withConfig(func(c *qcli.Context, cfg Config) error {
		if _, err := os.Stat(cfg.StatePath); err == nil && !*force {
			return fmt.Errorf("session %s already exists (use --force to replace it)", cfg.StatePath)
		}
		doc, err := readDocument(c.Args[0], document.NewIDAllocator(0))
		if err != nil {
			return err
		}
		opts, err := sessionOptions(cfg)
		if err != nil {
			return err
		}
		s, err := session.New(doc, opts)
		if err != nil {
			return err
		}
		if err := s.Save(cfg.StatePath); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "initialized %s with %d blocks\n", cfg.StatePath, doc.Len())
		return nil
	})
	return cmd
}

func newShowCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "show",
		Short: "Print the session's document.",
		Args:  qcli.NoArgs,
	}
	format := cmd.Flags().Enum("format", 'f', "outline", []string{"outline", "json"}, "output format")
	index := cmd.Flags().Int("index", 'i', -2, "history index to show (-1 is pristine; default current)")
	cmd.Run = a.withSession(false, func(c *qcli.Context, cfg Config, s *session.Session) error {
		doc := s.Document()
		if *index != -2 {
			var err error
			doc, err = s.DocumentAt(*index)
			if err != nil {
				return err
			}
		}
		if *format == "json" {
			return writeJSON(c.Out, doc)
		}
		return writeOutline(c.Out, doc, terminalWidth(c.Out, 100))
	})
	return cmd
}

func newServeCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "serve",
		Short: "Serve the session over HTTP and WebSocket for review.",
		Long:  "Serve the session's JSON API under /api and live history events at /ws. Every change is saved to the state file.",
		Args:  qcli.NoArgs,
	}
	addr := cmd.Flags().String("addr", 'a', "", "listen address (default from config)")
	cmd.Run = a.withSession(false, func(c *qcli.Context, cfg Config, s *session.Session) error {
		listen := cfg.ListenAddr
		if *addr != "" {
			listen = *addr
		}
		srv := server.New(s, server.Options{
			OnChange: func(s *session.Session) error { return s.Save(cfg.StatePath) },
			Report:   docdiff.ReportOptions{PreviewWidth: 60},
		})
		defer srv.Close()
		fmt.Fprintf(c.Out, "serving %s on http://%s\n", cfg.StatePath, listen)
		return srv.ListenAndServe(c.Context, listen)
	})
	return cmd
}

func newConfigCommand(a *app) *qcli.Command {
	cmd := &qcli.Command{
		Name:  "config",
		Short: "Print the effective configuration.",
		Args:  qcli.NoArgs,
	}
	sources := cmd.Flags().Bool("sources", 0, false, "print where each key came from instead")
	cmd.Run = a.withConfig(func(c *qcli.Context, cfg Config) error {
		if *sources {
			writeConfigSources(c.Out, a.loader)
			return nil
		}
		return writeJSON(c.Out, cfg)
	})
	return cmd
}
