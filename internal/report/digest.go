package report

import (
	"fmt"
	"strings"

	"github.com/akramov/reportflow/internal/models"
)

// RenderDigest builds the daily status summary sent to the approver. An
// empty map renders a quiet-day message.
func RenderDigest(counts map[string]int64) string {
	total := int64(0)
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return "Daily report digest\n\nNo reports recorded yet."
	}

	var b strings.Builder
	b.WriteString("Daily report digest\n\n")
	fmt.Fprintf(&b, "Pending: %d\n", counts[models.StatusPending])
	fmt.Fprintf(&b, "Confirmed: %d\n", counts[models.StatusConfirmed])
	fmt.Fprintf(&b, "Rejected: %d\n", counts[models.StatusRejected])
	fmt.Fprintf(&b, "\nTotal: %d", total)
	return b.String()
}
