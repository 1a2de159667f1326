package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/rebalance"
	"github.com/wonny/graham/internal/reporting"
	"github.com/wonny/graham/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common formatting utilities shared by every command
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

// PrintHeader prints a boxed title
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, singleLine)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// printPlan prints the plan as key-value lines
func printPlan(w io.Writer, plan *contracts.RebalancePlan) {
	PrintKeyValue(w, "Equity target", fmt.Sprintf("%d%%", plan.EquityTargetPct), 16)
	PrintKeyValue(w, "Investable", reporting.Money(plan.InvestableTotal), 16)
	PrintKeyValue(w, "Current stock", reporting.Money(plan.CurrentStock), 16)
	PrintKeyValue(w, "Current bond", reporting.Money(plan.CurrentBond), 16)
	PrintKeyValue(w, "Target stock", reporting.Money(plan.TargetStock), 16)
	PrintKeyValue(w, "Target bond", reporting.Money(plan.TargetBond), 16)
	PrintKeyValue(w, "Stock buy/sell", reporting.Money(plan.StockDelta), 16)
	PrintKeyValue(w, "Bond buy/sell", reporting.Money(plan.BondDelta), 16)
}

// printWeights prints dollars and weight per asset class in first-seen order
func printWeights(w io.Writer, cw *rebalance.ClassWeights) {
	widths := []int{10, 16, 8}
	PrintTableHeader(w, []string{"Class", "Value", "Weight"}, widths)
	for _, class := range cw.Classes {
		PrintTableRow(w, []string{
			class,
			reporting.Money(cw.Totals[class]),
			fmt.Sprintf("%.2f%%", cw.Weights[class]),
		}, widths)
	}
	PrintSeparator(w)
	PrintKeyValue(w, "Investable", reporting.Money(cw.Investable), 10)
}

// printJobStats prints scheduler statistics sorted by job name
func printJobStats(w io.Writer, stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	widths := []int{16, 18, 6, 8, 20}
	PrintTableHeader(w, []string{"Job", "Schedule", "Runs", "Success", "Last run"}, widths)
	for _, name := range names {
		st := stats[name]
		last := "-"
		if st.LastRun != nil {
			last = st.LastRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow(w, []string{
			name,
			st.Schedule,
			fmt.Sprintf("%d", st.TotalRuns),
			fmt.Sprintf("%.0f%%", st.SuccessRate*100),
			last,
		}, widths)
	}
}
