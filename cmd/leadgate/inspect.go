package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"leadgate/internal/sourcefile"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// newInspectCmd reports what the scan would see in each file without
// contacting the API.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Summarize contact files before scanning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := sourcefile.Load(cmd.Context(), args)
			if err != nil {
				return err
			}
			writeSummaries(cmd.OutOrStdout(), sourcefile.InspectAll(files))
			return nil
		},
	}
}

func writeSummaries(w io.Writer, summaries []sourcefile.Summary) {
	ready := 0
	for _, s := range summaries {
		if !s.Ready() {
			fmt.Fprintf(w, "%s %s %s\n", yellow("!"), bold(s.Name), gray(s.Problem))
			continue
		}
		ready++
		fmt.Fprintf(w, "%s %s\n", green("✓"), s.String())
		if len(s.Columns) > 0 {
			fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("header on line %d: %s", s.HeaderLine+1, strings.Join(s.Columns, ", "))))
		}
	}

	if ready == len(summaries) {
		fmt.Fprintln(w, green("Ready to merge & scan."))
		return
	}
	fmt.Fprintf(w, "%s\n", yellow(fmt.Sprintf("%d of %d files look usable.", ready, len(summaries))))
}
