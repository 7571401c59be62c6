package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

func writeHelp(w io.Writer, root, cmd *Command) {
	full := commandDisplayName(root, cmd)
	if cmd.Short != "" {
		fmt.Fprintf(w, "%s - %s\n", full, cmd.Short)
	} else {
		fmt.Fprintf(w, "%s\n", full)
	}

	if cmd.Long != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(cmd.Long, "\n"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", usageLine(root, cmd))

	if len(cmd.children) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands:")
		children := cmd.Commands()
		sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
		width := 0
		for _, child := range children {
			width = max(width, len(child.Name))
		}
		for _, child := range children {
			fmt.Fprintf(w, "  %-*s  %s\n", width, child.Name, child.Short)
		}
	}

	if cmd.flags != nil && cmd.flags.HasFlags() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fmt.Fprint(w, cmd.flags.FlagUsages())
	}

	if cmd.Example != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Example:")
		for _, line := range strings.Split(strings.TrimRight(cmd.Example, "\n"), "\n") {
			if line == "" {
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func commandDisplayName(root, cmd *Command) string {
	parts := []string{root.Name}
	if cmd != root {
		for _, node := range cmd.pathFromRoot()[1:] {
			parts = append(parts, node.Name)
		}
	}
	return strings.Join(parts, " ")
}

func usageLine(root, cmd *Command) string {
	segments := []string{commandDisplayName(root, cmd)}
	if cmd.flags != nil && cmd.flags.HasFlags() {
		segments = append(segments, "[flags]")
	}
	if len(cmd.children) > 0 {
		if cmd.Run == nil {
			segments = append(segments, "<command>")
		} else {
			segments = append(segments, "[command]")
		}
	}
	if cmd.Run != nil && cmd.Args != nil {
		segments = append(segments, "[args]")
	}
	return strings.Join(segments, " ")
}
