package cli

import (
	"fmt"
	"time"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	qcli "github.com/codalotl/blockdiff/internal/q/cli"
	"github.com/codalotl/blockdiff/internal/q/uni"
	"github.com/codalotl/blockdiff/internal/session"
	"github.com/codalotl/blockdiff/internal/snapstore"
)

// withStore adapts a snapshot handler, opening the configured store and closing it afterwards.
func (a *app) withStore(next func(c *qcli.Context, cfg Config, store snapstore.Store) error) qcli.RunFunc {
	return a.withConfig(func(c *qcli.Context, cfg Config) error {
		store, err := openSnapshots(c.Context, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return next(c, cfg, store)
	})
}

func newSnapshotCommand(a *app) *qcli.Command {
	snap := &qcli.Command{
		Name:    "snapshot",
		Aliases: []string{"snap"},
		Short:   "Manage named snapshots of the session's document.",
		Long: "Named snapshots outlive the undo history. They are stored under the snapshotdir config key, or in Postgres when databaseurl\n" +
			"is set.",
	}

	create := &qcli.Command{
		Name:  "create",
		Short: "Save the current document under a name.",
		Args:  qcli.ExactArgs(1),
	}
	desc := create.Flags().String("description", 'd', "", "snapshot description")
	create.Run = a.withStore(func(c *qcli.Context, cfg Config, store snapstore.Store) error {
		if err := snapstore.ValidateName(c.Args[0]); err != nil {
			return qcli.Usagef("%v", err)
		}
		s, err := openSession(cfg)
		if err != nil {
			return err
		}
		sn := snapstore.New(c.Args[0], *desc, s.Document())
		if err := store.Put(c.Context, sn); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "created snapshot %s (%d blocks)\n", sn.Name, sn.BlockCount)
		return nil
	})

	list := &qcli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Short:   "List snapshots, oldest first.",
		Args:    qcli.NoArgs,
	}
	listJSON := list.Flags().Bool("json", 0, false, "print as JSON")
	list.Run = a.withStore(func(c *qcli.Context, cfg Config, store snapstore.Store) error {
		infos, err := store.List(c.Context)
		if err != nil {
			return err
		}
		if *listJSON {
			if infos == nil {
				infos = []snapstore.Info{}
			}
			return writeJSON(c.Out, infos)
		}
		if len(infos) == 0 {
			fmt.Fprintln(c.Out, "no snapshots")
			return nil
		}
		nameWidth := 4
		for _, in := range infos {
			nameWidth = max(nameWidth, uni.TextWidth(in.Name, nil))
		}
		for _, in := range infos {
			fmt.Fprintf(c.Out, "%s  %s  %4d blocks  %s\n", uni.PadRight(in.Name, nameWidth, nil), in.CreatedAt.Local().Format(time.DateTime), in.BlockCount, uni.Printable(in.Description))
		}
		return nil
	})

	restore := &qcli.Command{
		Name:  "restore",
		Short: "Replace the current document with a snapshot. The restore is recorded in history and can be undone.",
		Args:  qcli.ExactArgs(1),
	}
	restore.Run = a.withStore(func(c *qcli.Context, cfg Config, store snapstore.Store) error {
		sn, err := store.Get(c.Context, c.Args[0])
		if err != nil {
			return err
		}
		s, err := openSession(cfg)
		if err != nil {
			return err
		}
		doc := sn.Document.WithSnapshotID("")
		if _, err := s.Apply("Restore snapshot "+sn.Name, session.Replace(doc, history.OpRestore, sn.Name)); err != nil {
			return err
		}
		if err := s.Save(cfg.StatePath); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "restored %s as #%d\n", sn.Name, s.History().CurrentIndex)
		return nil
	})

	del := &qcli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Short:   "Delete a snapshot.",
		Args:    qcli.ExactArgs(1),
	}
	del.Run = a.withStore(func(c *qcli.Context, cfg Config, store snapstore.Store) error {
		if err := store.Delete(c.Context, c.Args[0]); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "deleted snapshot %s\n", c.Args[0])
		return nil
	})

	diffCmd := &qcli.Command{
		Name:  "diff",
		Short: "Diff snapshot a against snapshot b, or against the current document if b is omitted.",
		Args:  qcli.RangeArgs(1, 2),
	}
	o := addDiffFlags(diffCmd)
	diffCmd.Run = a.withStore(func(c *qcli.Context, cfg Config, store snapstore.Store) error {
		opts, err := o.options(cfg)
		if err != nil {
			return qcli.Usagef("%v", err)
		}
		from, err := store.Get(c.Context, c.Args[0])
		if err != nil {
			return err
		}

		var (
			toDoc  document.Document
			toName = "current"
		)
		if len(c.Args) == 2 {
			to, err := store.Get(c.Context, c.Args[1])
			if err != nil {
				return err
			}
			toDoc, toName = to.Document, to.Name
		} else {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			toDoc = s.Document()
		}

		d, err := docdiff.ComputeDocumentDiff(from.Document, toDoc, from.Name, toName, opts)
		if err != nil {
			return err
		}
		return o.write(c.Out, cfg, d)
	})

	snap.AddCommand(create, list, restore, del, diffCmd)
	return snap
}
