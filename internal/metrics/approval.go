package metrics

import "math"

// Tier is one cost-based escalation bracket. MaxCost is exclusive; the
// final bracket carries an unbounded maximum so every cost resolves.
type Tier struct {
	MaxCost   float64
	Approvers []string
	Label     string
}

// AutoApproved reports whether the tier requires no sign-off.
func (t Tier) AutoApproved() bool {
	return len(t.Approvers) == 0
}

var approvalTiers = []Tier{
	{MaxCost: 1200, Approvers: nil, Label: "Auto-Approved"},
	{MaxCost: 1500, Approvers: []string{"Micah Molin"}, Label: "$1,200-$1,500"},
	{MaxCost: 1700, Approvers: []string{"Micah Molin", "Eric VanDyke"}, Label: "$1,500-$1,700"},
	{MaxCost: 2000, Approvers: []string{"Eric VanDyke"}, Label: "$1,700-$2,000"},
	{MaxCost: math.Inf(1), Approvers: []string{"Eric VanDyke", "Greg Lashbrook"}, Label: "$2,000+"},
}

// ApprovalTier resolves the escalation bracket for a repair cost. The
// scan is over an ascending list whose final bracket is a catch-all, so
// it always returns a tier.
func ApprovalTier(cost float64) Tier {
	for _, tier := range approvalTiers {
		if cost < tier.MaxCost {
			return tier
		}
	}
	return approvalTiers[len(approvalTiers)-1]
}

// Tiers returns the full ordered bracket list for display.
func Tiers() []Tier {
	out := make([]Tier, len(approvalTiers))
	copy(out, approvalTiers)
	return out
}
