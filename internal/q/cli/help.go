package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/codalotl/blockdiff/internal/q/uni"
)

func writeHelp(w io.Writer, cmd *Command) {
	name := fullName(cmd)
	if cmd.Short != "" {
		fmt.Fprintf(w, "%s - %s\n", name, cmd.Short)
	} else {
		fmt.Fprintln(w, name)
	}
	if cmd.Long != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(cmd.Long, "\n"))
	}

	flags := cmd.activeFlags().sorted()
	fmt.Fprintf(w, "\nUsage:\n  %s\n", usageLine(cmd, len(flags) > 0))

	if len(cmd.children) > 0 {
		children := cmd.Commands()
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
		rows := make([][2]string, len(children))
		for i, child := range children {
			rows[i] = [2]string{child.Name, child.Short}
		}
		fmt.Fprintln(w, "\nCommands:")
		writeColumns(w, rows)
	}

	if len(flags) > 0 {
		rows := make([][2]string, len(flags))
		for i, f := range flags {
			names := "    --" + f.name
			if f.short != 0 {
				names = fmt.Sprintf("-%c, --%s", f.short, f.name)
			}
			if f.typeName != "" {
				names += " <" + f.typeName + ">"
			}
			usage := strings.TrimSpace(f.usage)
			if f.def != "" {
				usage = strings.TrimSpace(fmt.Sprintf("%s (default %s)", usage, f.def))
			}
			rows[i] = [2]string{names, usage}
		}
		fmt.Fprintln(w, "\nFlags:")
		writeColumns(w, rows)
	}

	if cmd.Example != "" {
		fmt.Fprintln(w, "\nExample:")
		for _, line := range strings.Split(strings.TrimRight(cmd.Example, "\n"), "\n") {
			if line == "" {
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// writeColumns prints rows as two aligned columns indented by two spaces.
func writeColumns(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, uni.TextWidth(r[0], nil))
	}
	for _, r := range rows {
		if r[1] == "" {
			fmt.Fprintf(w, "  %s\n", r[0])
			continue
		}
		fmt.Fprintf(w, "  %s  %s\n", uni.PadRight(r[0], width, nil), r[1])
	}
}

func fullName(cmd *Command) string {
	var parts []string
	for _, c := range cmd.path() {
		parts = append(parts, c.Name)
	}
	return strings.Join(parts, " ")
}

func usageLine(cmd *Command, hasFlags bool) string {
	segments := []string{fullName(cmd)}
	if hasFlags {
		segments = append(segments, "[flags]")
	}
	if len(cmd.children) > 0 {
		if cmd.Run == nil {
			segments = append(segments, "<command>")
		} else {
			segments = append(segments, "[command]")
		}
	}
	if cmd.Run != nil {
		segments = append(segments, "[args]")
	}
	return strings.Join(segments, " ")
}
