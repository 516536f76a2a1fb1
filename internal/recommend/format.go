package recommend

import (
	"fmt"
	"sort"
	"strings"

	"finassist/internal/models"
)

// FormatBlock renders recommendations as the plain-text block appended to
// chat answers. Returns "" when there is nothing to show.
func FormatBlock(recs *Recommendations) string {
	if recs == nil || (len(recs.Offers) == 0 && len(recs.Strategies) == 0) {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\nPersonalized Recommendations:\n")

	if len(recs.Offers) > 0 {
		sb.WriteString("\nOffers for you:\n")
		for _, offer := range recs.Offers {
			fmt.Fprintf(&sb, "- %s: %s\n", offer.Name, offer.Description)
			fmt.Fprintf(&sb, "  Type: %s, ", offer.Type)
			if offer.DiscountValue != (models.DiscountValue{}) {
				fmt.Fprintf(&sb, "Discount: %g%s, ", offer.DiscountValue.Value, offer.DiscountValue.Type)
			}
			fmt.Fprintf(&sb, "Min. Amount: ₹%g\n", offer.MinimumTransactionAmount)
		}
	}

	if len(recs.Strategies) > 0 {
		sb.WriteString("\nInvestment Strategies:\n")
		for _, strategy := range recs.Strategies {
			fmt.Fprintf(&sb, "- %s\n", strategy.Name)
			fmt.Fprintf(&sb, "  Risk Profile: %s, ", strategy.RiskProfile)
			fmt.Fprintf(&sb, "Time Horizon: %s, ", strategy.TimeHorizon)
			fmt.Fprintf(&sb, "Target Return: %g%%\n", strategy.TargetAnnualReturn)
			if len(strategy.AllocationBlueprint) > 0 {
				sb.WriteString("  Allocation: ")
				keys := make([]string, 0, len(strategy.AllocationBlueprint))
				for k := range strategy.AllocationBlueprint {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					parts = append(parts, fmt.Sprintf("%s: %g%%", k, strategy.AllocationBlueprint[k]))
				}
				sb.WriteString(strings.Join(parts, ", ") + "\n")
			}
		}
	}
	return sb.String()
}
