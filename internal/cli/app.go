package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/q/cascade"
	qcli "github.com/codalotl/blockdiff/internal/q/cli"
	"github.com/codalotl/blockdiff/internal/session"
	"github.com/codalotl/blockdiff/internal/simplelogger"
	"github.com/codalotl/blockdiff/internal/snapstore"
)

// app holds state shared by the commands of one Run.
type app struct {
	statePath *string // --state
	color     *string // --color

	once   sync.Once
	cfg    Config
	loader *cascade.Loader
	err    error
}

// config loads the configuration once, applying the global flag overrides.
func (a *app) config() (Config, error) {
	a.once.Do(func() {
		a.cfg, a.loader, a.err = loadConfig()
		if a.err != nil {
			return
		}
		if *a.statePath != "" {
			a.cfg.StatePath = *a.statePath
		}
		if *a.color != "" {
			a.cfg.Color = *a.color
		}
		if a.cfg.LogFile != "" {
			simplelogger.SetFile(cascade.ExpandPath(a.cfg.LogFile))
		}
	})
	if a.err != nil {
		return Config{}, qcli.ExitError{Code: 1, Err: a.err}
	}
	return a.cfg, nil
}

// withConfig adapts a handler that needs the configuration.
func (a *app) withConfig(next func(c *qcli.Context, cfg Config) error) qcli.RunFunc {
	return func(c *qcli.Context) error {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		return next(c, cfg)
	}
}

// withSession adapts a handler that works on the persisted session. If save is true, the session is written back after next succeeds.
func (a *app) withSession(save bool, next func(c *qcli.Context, cfg Config, s *session.Session) error) qcli.RunFunc {
	return a.withConfig(func(c *qcli.Context, cfg Config) error {
		s, err := openSession(cfg)
		if err != nil {
			return err
		}
		if err := next(c, cfg, s); err != nil {
			return err
		}
		if save {
			return s.Save(cfg.StatePath)
		}
		return nil
	})
}

func sessionOptions(cfg Config) (session.Options, error) {
	dopts, err := cfg.diffOptions("")
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{MaxEntries: cfg.MaxHistory, Diff: dopts}, nil
}

func openSession(cfg Config) (*session.Session, error) {
	opts, err := sessionOptions(cfg)
	if err != nil {
		return nil, err
	}
	return loadSession(cfg, opts)
}

func loadSession(cfg Config, opts session.Options) (*session.Session, error) {
	s, err := session.Load(cfg.StatePath, opts)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no session at %s (run `blockdiff init <file>` first)", cfg.StatePath)
	}
	return s, err
}

func openSnapshots(ctx context.Context, cfg Config) (snapstore.Store, error) {
	return snapstore.Open(ctx, cfg.DatabaseURL, cascade.ExpandPath(cfg.SnapshotDir))
}

// diffOutput holds the flags shared by commands that print a DocumentDiff.
type diffOutput struct {
	format      *string
	granularity *string
	width       *int
}

func addDiffFlags(cmd *qcli.Command) diffOutput {
	return diffOutput{
		format:      cmd.Flags().Enum("format", 'f', "text", []string{"text", "json", "markup"}, "output format"),
		granularity: cmd.Flags().Enum("granularity", 'g', "", []string{"word", "char"}, "text diff granularity (default from config)"),
		width:       cmd.Flags().Int("width", 0, 0, "max width of content previews (default: terminal width)"),
	}
}

func (o diffOutput) options(cfg Config) (*docdiff.Options, error) {
	return cfg.diffOptions(*o.granularity)
}

// write prints d in the selected format.
func (o diffOutput) write(w io.Writer, cfg Config, d docdiff.DocumentDiff) error {
	switch *o.format {
	case "json":
		return writeJSON(w, d)
	case "markup":
		for _, bd := range d.Changed() {
			if len(bd.ContentDiff) == 0 {
				fmt.Fprintf(w, "%s %s\n", bd.ID, bd.ChangeType)
				continue
			}
			fmt.Fprintf(w, "%s %s: %s\n", bd.ID, bd.ChangeType, docdiff.FormatTextDiff(bd.ContentDiff))
		}
		return nil
	}

	width := *o.width
	if width <= 0 {
		width = max(terminalWidth(w, 100)-30, 20)
	}
	_, err := io.WriteString(w, docdiff.RenderReport(d, docdiff.ReportOptions{Color: useColor(cfg.Color, w), PreviewWidth: width}))
	return err
}
