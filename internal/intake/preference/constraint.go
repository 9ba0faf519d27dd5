package preference

import "internship-intake/internal/models"

// SelectableOption is a location option annotated for display.
type SelectableOption struct {
	models.Option
	Disabled bool `json:"disabled"`
}

// ClaimedLocations returns the locations already chosen by other slots that
// share the current slot's category and role. current is 1-based. The set
// is empty unless the current slot has both category and role.
func ClaimedLocations(slots []models.PreferenceSlot, current int) map[string]struct{} {
	claimed := make(map[string]struct{})
	if current < 1 || current > len(slots) {
		return claimed
	}
	cur := slots[current-1]
	if cur.Category == nil || cur.Role == nil {
		return claimed
	}

	for i, s := range slots {
		if i == current-1 || s.Location == nil || s.Category == nil || s.Role == nil {
			continue
		}
		if s.Category.Value == cur.Category.Value && s.Role.Value == cur.Role.Value {
			claimed[s.Location.Value] = struct{}{}
		}
	}
	return claimed
}

// Selectable marks claimed options disabled, preserving order.
func Selectable(options []models.Option, claimed map[string]struct{}) []SelectableOption {
	out := make([]SelectableOption, 0, len(options))
	for _, o := range options {
		_, taken := claimed[o.Value]
		out = append(out, SelectableOption{Option: o, Disabled: taken})
	}
	return out
}
