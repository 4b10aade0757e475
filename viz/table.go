package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// RenderTable writes a plain-text rendering of a Snapshot to w, one row
// per fibre, indented to show tree depth — the table-based counterpart to
// visualise.py's DotRenderer, using the teacher's
// cmd/benchmark_reactively/main.go table stack
// (olekukonko/tablewriter, dustin/go-humanize) instead of graphviz.
func RenderTable(w io.Writer, snap NodeSnapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"key path", "type", "status", "revision", "result", "predecessors"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, flat := range snap.Flatten() {
		n := flat.Node
		indent := strings.Repeat("  ", flat.Depth)
		result := "<unset>"
		if n.HasResult {
			result = fmt.Sprintf("%v", n.Result)
		}
		table.Append([]string{
			indent + n.KeyPath,
			n.DescriptorType,
			n.Status,
			humanize.Comma(int64(n.Revision)),
			truncate(result, 60),
			strings.Join(n.Predecessors, ", "),
		})
	}
	table.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// Summary aggregates counts across a snapshot for a quick health check —
// how many fibres are mounted, how many carry a committed result, and the
// highest revision observed.
type Summary struct {
	FibreCount    int
	CommittedCount int
	MaxRevision   uint64
}

// Summarize walks a snapshot and tallies counts for RenderSummary.
func Summarize(snap NodeSnapshot) Summary {
	var s Summary
	snap.Walk(func(_ int, n NodeSnapshot) {
		s.FibreCount++
		if n.HasResult {
			s.CommittedCount++
		}
		if n.Revision > s.MaxRevision {
			s.MaxRevision = n.Revision
		}
	})
	return s
}

// RenderSummary writes a one-line human-readable summary, using the same
// go-humanize formatting the teacher's benchmark harnesses use for large
// counters.
func RenderSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "%s fibres, %s committed, max revision %s\n",
		humanize.Comma(int64(s.FibreCount)),
		humanize.Comma(int64(s.CommittedCount)),
		humanize.Comma(int64(s.MaxRevision)),
	)
}
