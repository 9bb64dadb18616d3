package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Liquidity Activity Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Events Logged | %d |\n", r.Summary.EventsLogged))
	sb.WriteString(fmt.Sprintf("| Total Minted | %s |\n", r.Summary.TotalMinted.Dec()))
	sb.WriteString(fmt.Sprintf("| Open Positions | %d |\n", r.Summary.OpenPositions))
	sb.WriteString(fmt.Sprintf("| Open Liquidity | %s |\n", r.Summary.OpenLiquidity.Dec()))
	if r.Summary.Pool != "" {
		sb.WriteString(fmt.Sprintf("| Pool | %s |\n", r.Summary.Pool))
		sb.WriteString(fmt.Sprintf("| Pool Price | %s |\n", r.Summary.PoolPrice))
	}
	sb.WriteString(fmt.Sprintf("| First Event At (ms) | %d |\n", r.Summary.FirstEventAt))
	sb.WriteString(fmt.Sprintf("| Last Event At (ms) | %d |\n", r.Summary.LastEventAt))
	sb.WriteString("\n")

	// Event Counts
	sb.WriteString("## Events by Kind\n\n")
	if len(r.EventCounts) > 0 {
		sb.WriteString("| Kind | Count |\n")
		sb.WriteString("|------|-------|\n")
		for _, row := range r.EventCounts {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Kind, row.Count))
		}
	} else {
		sb.WriteString("The event log is empty.\n")
	}
	sb.WriteString("\n")

	// Account Activity
	sb.WriteString("## Account Activity\n\n")
	if len(r.AccountActivity) > 0 {
		sb.WriteString("| Account | Adds | Removes | Token In | Base In | Token Out | Base Out | Open Positions | Open Liquidity |\n")
		sb.WriteString("|---------|------|---------|----------|---------|-----------|----------|----------------|----------------|\n")
		for _, row := range r.AccountActivity {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s | %d | %s |\n",
				row.Account, row.Adds, row.Removes,
				row.TokenDeposited.Dec(), row.BaseDeposited.Dec(),
				row.TokenWithdrawn.Dec(), row.BaseWithdrawn.Dec(),
				row.OpenPositions, row.OpenLiquidity.Dec()))
		}
	} else {
		sb.WriteString("No liquidity activity recorded.\n")
	}
	sb.WriteString("\n")

	// Open Positions
	sb.WriteString("## Open Positions\n\n")
	if len(r.OpenPositions) > 0 {
		sb.WriteString("| ID | Owner | Liquidity | Tick Lower | Tick Upper |\n")
		sb.WriteString("|----|-------|-----------|------------|------------|\n")
		for _, row := range r.OpenPositions {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d |\n",
				row.ID, row.Owner, row.Liquidity.Dec(), row.TickLower, row.TickUpper))
		}
	} else {
		sb.WriteString("No open positions.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
