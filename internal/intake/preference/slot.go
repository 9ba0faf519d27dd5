// Package preference edits the five ranked preference slots and enforces
// the cascade and cross-slot uniqueness rules.
package preference

import (
	"internship-intake/internal/common/errors"
	"internship-intake/internal/models"
)

// Slot returns the slot at the 1-based index.
func Slot(ps *models.PreferenceSet, index int) (*models.PreferenceSlot, error) {
	if index < 1 || index > models.PreferenceSlotCount {
		return nil, errors.NewSlotOutOfRangeError(index)
	}
	return &ps.Slots[index-1], nil
}

// SetCategory sets or clears (nil) the slot's category. A different value
// clears role and location.
func SetCategory(ps *models.PreferenceSet, index int, category *models.Option) error {
	slot, err := Slot(ps, index)
	if err != nil {
		return err
	}
	if sameValue(slot.Category, category) {
		return nil
	}
	slot.Category = copyOption(category)
	slot.Role = nil
	slot.Location = nil
	return nil
}

// SetRole sets or clears the slot's role. A different value clears the
// location. Setting a role on a slot without a category fails.
func SetRole(ps *models.PreferenceSet, index int, role *models.Option) error {
	slot, err := Slot(ps, index)
	if err != nil {
		return err
	}
	if role != nil && slot.Category == nil {
		return errors.NewDependentFieldUnsetError("role", "category")
	}
	if sameValue(slot.Role, role) {
		return nil
	}
	slot.Role = copyOption(role)
	slot.Location = nil
	return nil
}

// SetLocation sets or clears the slot's location. The location must not be
// claimed by another slot with the same category and role.
func SetLocation(ps *models.PreferenceSet, index int, location *models.Option) error {
	slot, err := Slot(ps, index)
	if err != nil {
		return err
	}
	if location == nil {
		slot.Location = nil
		return nil
	}
	if slot.Role == nil {
		return errors.NewDependentFieldUnsetError("location", "role")
	}
	if _, taken := ClaimedLocations(ps.Slots[:], index)[location.Value]; taken {
		return errors.NewLocationClaimedError(index, location.Value)
	}
	slot.Location = copyOption(location)
	return nil
}

// ClearSlot empties the slot at index.
func ClearSlot(ps *models.PreferenceSet, index int) error {
	slot, err := Slot(ps, index)
	if err != nil {
		return err
	}
	*slot = models.PreferenceSlot{Index: index}
	return nil
}

// HasComplete reports whether any slot has category, role and location.
func HasComplete(ps models.PreferenceSet) bool {
	for _, s := range ps.Slots {
		if s.Complete() {
			return true
		}
	}
	return false
}

// SubmissionView lists the slots with category and role set, in rank
// order. Location may be blank.
func SubmissionView(ps models.PreferenceSet) []models.SubmittedPreference {
	out := make([]models.SubmittedPreference, 0, models.PreferenceSlotCount)
	for _, s := range ps.Slots {
		if !s.Submittable() {
			continue
		}
		out = append(out, models.SubmittedPreference{
			Sector:   s.Category.Value,
			Role:     s.Role.Value,
			Location: s.Location.ValueOrEmpty(),
		})
	}
	return out
}

func sameValue(a, b *models.Option) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Value == b.Value
}

func copyOption(o *models.Option) *models.Option {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
