package badges

import (
	"fmt"

	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

// Stat selects which field of the stats snapshot a definition thresholds on
type Stat string

const (
	StatTotalUptoes   Stat = "total_uptoes"
	StatFollowerCount Stat = "follower_count"
)

// Definition is one declarative badge rule: the badge is earned once the
// selected stat reaches the threshold. ID is the stable identity persisted in
// the registry; Label and Color are display-only.
type Definition struct {
	ID        string
	Label     string
	Color     string
	Stat      Stat
	Threshold int
}

// Satisfied reports whether the stats snapshot meets this definition's
// threshold. Thresholds are cumulative: a user at 100 uptoes satisfies the
// 10, 50 and 100 tiers alike.
func (d Definition) Satisfied(stats models.UserStats) bool {
	switch d.Stat {
	case StatTotalUptoes:
		return stats.TotalUptoes >= d.Threshold
	case StatFollowerCount:
		return stats.FollowerCount >= d.Threshold
	default:
		return false
	}
}

// DefaultDefinitions is the fixed badge table, evaluated top to bottom.
var DefaultDefinitions = []Definition{
	{ID: "uptoe_10", Label: "10 Uptoes", Color: "#f1c40f", Stat: StatTotalUptoes, Threshold: 10},
	{ID: "uptoe_50", Label: "50 Uptoes", Color: "#e67e22", Stat: StatTotalUptoes, Threshold: 50},
	{ID: "uptoe_100", Label: "100 Uptoes", Color: "#e74c3c", Stat: StatTotalUptoes, Threshold: 100},
	{ID: "follower_5", Label: "5 Followers", Color: "#3498db", Stat: StatFollowerCount, Threshold: 5},
	{ID: "follower_20", Label: "20 Followers", Color: "#9b59b6", Stat: StatFollowerCount, Threshold: 20},
}

// ValidateDefinitions rejects tables with duplicate ids or labels. The
// registry correlates rows by these, so a duplicate would make two rules
// collide on one row.
func ValidateDefinitions(defs []Definition) error {
	ids := make(map[string]bool, len(defs))
	labels := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.ID == "" || def.Label == "" {
			return fmt.Errorf("definition %q must have id and label", def.ID)
		}
		if ids[def.ID] {
			return fmt.Errorf("duplicate definition id %q", def.ID)
		}
		if labels[def.Label] {
			return fmt.Errorf("duplicate definition label %q", def.Label)
		}
		ids[def.ID] = true
		labels[def.Label] = true
	}
	return nil
}

// Satisfied returns the definitions met by the stats snapshot, in table order
func Satisfied(defs []Definition, stats models.UserStats) []Definition {
	var satisfied []Definition
	for _, def := range defs {
		if def.Satisfied(stats) {
			satisfied = append(satisfied, def)
		}
	}
	return satisfied
}
