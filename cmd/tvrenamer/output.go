package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/slipstream/tvrenamer/internal/renamer"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// useJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal.
func useJSON(cmd *cobra.Command, forced bool) bool {
	return forced || !isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type planReport struct {
	*renamer.Plan
	Summary renamer.Summary `json:"summary"`
}

// writePlan renders one row per operation: the rename, or the reason the
// file was skipped.
func writePlan(cmd *cobra.Command, forceJSON bool, plan *renamer.Plan) error {
	if useJSON(cmd, forceJSON) {
		return writeJSON(cmd, planReport{Plan: plan, Summary: plan.Summary()})
	}

	rows := make([][]string, 0, len(plan.Operations))
	for i, op := range plan.Operations {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(op.Status),
			op.Source.Name(),
			operationDetail(op),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Status", "File", "Result"},
		rows,
		[]columnAlignment{alignRight},
	))

	s := plan.Summary()
	fmt.Fprintf(out, "Plan %s: %d files, %d planned, %d applied, %d conflicts, %d failed, %d rolled back\n",
		plan.ID, s.Total, s.Planned, s.Applied, s.Conflict, s.Failed, s.RolledBack)
	return nil
}

func operationDetail(op *renamer.Operation) string {
	switch {
	case op.Reason != renamer.ReasonNone:
		detail := string(op.Reason)
		if op.ErrorDetail != "" {
			detail += ": " + op.ErrorDetail
		}
		if len(op.Candidates) > 0 {
			names := make([]string, 0, len(op.Candidates))
			for _, c := range op.Candidates {
				label := c.Title
				if c.Year > 0 {
					label += " (" + strconv.Itoa(c.Year) + ")"
				}
				names = append(names, fmt.Sprintf("%s [id %s, %.2f]", label, c.ID, c.Confidence))
			}
			detail += "\ncandidates: " + strings.Join(names, "; ")
		}
		return detail
	case op.IsNoop():
		return "already named correctly"
	default:
		return filepath.Base(op.Target)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
