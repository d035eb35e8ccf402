package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/turfplot/internal/hierarchy"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the plot hierarchy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if treeDepth < 0 {
			return fmt.Errorf("--depth must not be negative")
		}
		roots, err := a.plots.Tree(cmd.Context())
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), roots, treeDepth)
		return nil
	},
}

func init() {
	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "deepest level to print, counting roots as 1 (0 prints everything)")
}

var descendantsCmd = &cobra.Command{
	Use:   "descendants PLOT_ID",
	Short: "List the ids of every plot below a plot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid plot id %q", args[0])
		}
		ids, err := a.plots.Descendants(cmd.Context(), id)
		if err != nil {
			return err
		}
		for _, d := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

// printTree writes one plot per line, indented two spaces per level, and a
// closing count line. maxDepth limits the printed levels; 0 prints all.
func printTree(w io.Writer, roots []*hierarchy.Node, maxDepth int) {
	shown := 0
	hierarchy.Walk(roots, func(n *hierarchy.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s (#%d)", strings.Repeat("  ", depth), n.Name, n.ID)
		if n.TreatmentCount > 0 {
			fmt.Fprintf(w, " [%d treatments]", n.TreatmentCount)
		}
		fmt.Fprintln(w)
		shown++
		return maxDepth == 0 || depth+1 < maxDepth
	})

	total := hierarchy.Count(roots)
	if shown < total {
		fmt.Fprintf(w, "%d of %d plots\n", shown, total)
		return
	}
	fmt.Fprintf(w, "%d plots\n", total)
}
