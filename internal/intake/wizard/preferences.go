package wizard

import (
	"context"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/intake/preference"
	"internship-intake/internal/models"
)

// SetCategory selects a category for slot index, or clears it when value
// is empty. The value must be offered by the catalog.
func (c *Controller) SetCategory(ctx context.Context, index int, value string) error {
	if value == "" {
		return c.editPreferences(func(ps *models.PreferenceSet) error {
			return preference.SetCategory(ps, index, nil)
		})
	}
	if _, err := c.slot(index); err != nil {
		return err
	}

	var opt models.Option
	if err := c.external(ctx, func(ctx context.Context) error {
		var ok bool
		if opt, ok = models.FindOption(c.deps.Catalog.Categories(ctx), value); !ok {
			return errors.NewOptionUnavailableError("category", value)
		}
		return nil
	}); err != nil {
		return err
	}

	return c.editPreferences(func(ps *models.PreferenceSet) error {
		return preference.SetCategory(ps, index, &opt)
	})
}

// SetRole selects a role offered under the slot's category, or clears it.
func (c *Controller) SetRole(ctx context.Context, index int, value string) error {
	if value == "" {
		return c.editPreferences(func(ps *models.PreferenceSet) error {
			return preference.SetRole(ps, index, nil)
		})
	}
	slot, err := c.slot(index)
	if err != nil {
		return err
	}
	if slot.Category == nil {
		return errors.NewDependentFieldUnsetError("role", "category")
	}
	category := slot.Category.Value

	var opt models.Option
	if err := c.external(ctx, func(ctx context.Context) error {
		var ok bool
		if opt, ok = models.FindOption(c.deps.Catalog.Roles(ctx, category), value); !ok {
			return errors.NewOptionUnavailableError("role", value)
		}
		return nil
	}); err != nil {
		return err
	}

	return c.editPreferences(func(ps *models.PreferenceSet) error {
		if ps.Slots[index-1].Category.ValueOrEmpty() != category {
			return errors.NewOptionUnavailableError("role", value)
		}
		return preference.SetRole(ps, index, &opt)
	})
}

// SetLocation selects a location offered under the slot's category and
// role, or clears it. Locations claimed by a sibling slot are rejected.
func (c *Controller) SetLocation(ctx context.Context, index int, value string) error {
	if value == "" {
		return c.editPreferences(func(ps *models.PreferenceSet) error {
			return preference.SetLocation(ps, index, nil)
		})
	}
	slot, err := c.slot(index)
	if err != nil {
		return err
	}
	if slot.Role == nil {
		return errors.NewDependentFieldUnsetError("location", "role")
	}
	category, role := slot.Category.Value, slot.Role.Value

	var opt models.Option
	if err := c.external(ctx, func(ctx context.Context) error {
		var ok bool
		if opt, ok = models.FindOption(c.deps.Catalog.Locations(ctx, category, role), value); !ok {
			return errors.NewOptionUnavailableError("location", value)
		}
		return nil
	}); err != nil {
		return err
	}

	return c.editPreferences(func(ps *models.PreferenceSet) error {
		s := ps.Slots[index-1]
		if s.Category.ValueOrEmpty() != category || s.Role.ValueOrEmpty() != role {
			return errors.NewOptionUnavailableError("location", value)
		}
		return preference.SetLocation(ps, index, &opt)
	})
}

func (c *Controller) ClearSlot(index int) error {
	return c.editPreferences(func(ps *models.PreferenceSet) error {
		return preference.ClearSlot(ps, index)
	})
}

// SelectableLocations lists the catalog locations for slot index with the
// ones claimed by sibling slots marked disabled. It is empty until the
// slot has a category and a role.
func (c *Controller) SelectableLocations(ctx context.Context, index int) ([]preference.SelectableOption, error) {
	slot, err := c.slot(index)
	if err != nil {
		return nil, err
	}
	if slot.Category == nil || slot.Role == nil {
		return []preference.SelectableOption{}, nil
	}

	options := c.deps.Catalog.Locations(ctx, slot.Category.Value, slot.Role.Value)

	var claimed map[string]struct{}
	c.read(func(r *models.IntakeRecord) {
		claimed = preference.ClaimedLocations(r.Preferences.Slots[:], index)
	})
	return preference.Selectable(options, claimed), nil
}

// slot returns a copy of slot index.
func (c *Controller) slot(index int) (models.PreferenceSlot, error) {
	var out models.PreferenceSlot
	var err error
	c.read(func(r *models.IntakeRecord) {
		var s *models.PreferenceSlot
		if s, err = preference.Slot(&r.Preferences, index); err == nil {
			out = s.Clone()
		}
	})
	return out, err
}

func (c *Controller) editPreferences(fn func(ps *models.PreferenceSet) error) error {
	return c.edit(func(r *models.IntakeRecord) error {
		return fn(&r.Preferences)
	})
}
