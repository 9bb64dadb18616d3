package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders account activity rows as CSV string.
func RenderCSV(rows []AccountActivityRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("account,adds,removes,token_deposited,base_deposited,")
	sb.WriteString("token_withdrawn,base_withdrawn,open_positions,open_liquidity\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%s,%d,%s\n",
			r.Account,
			r.Adds,
			r.Removes,
			r.TokenDeposited.Dec(),
			r.BaseDeposited.Dec(),
			r.TokenWithdrawn.Dec(),
			r.BaseWithdrawn.Dec(),
			r.OpenPositions,
			r.OpenLiquidity.Dec(),
		))
	}

	return sb.String()
}
