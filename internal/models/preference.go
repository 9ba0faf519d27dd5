package models

const PreferenceSlotCount = 5

// PreferenceSlot is one ranked (category, role, location) choice. A role is
// only set with a category and a location only with a role.
type PreferenceSlot struct {
	Index    int     `json:"index"`
	Category *Option `json:"category,omitempty"`
	Role     *Option `json:"role,omitempty"`
	Location *Option `json:"location,omitempty"`
}

func (s PreferenceSlot) Complete() bool {
	return s.Category != nil && s.Role != nil && s.Location != nil
}

// Submittable reports whether the slot belongs in the submission view.
func (s PreferenceSlot) Submittable() bool {
	return s.Category != nil && s.Role != nil
}

func (s PreferenceSlot) Empty() bool {
	return s.Category == nil && s.Role == nil && s.Location == nil
}

func (s PreferenceSlot) Clone() PreferenceSlot {
	return PreferenceSlot{
		Index:    s.Index,
		Category: cloneOption(s.Category),
		Role:     cloneOption(s.Role),
		Location: cloneOption(s.Location),
	}
}

// PreferenceSet holds the five slots in rank order.
type PreferenceSet struct {
	Slots [PreferenceSlotCount]PreferenceSlot `json:"slots"`
}

func NewPreferenceSet() PreferenceSet {
	var ps PreferenceSet
	for i := range ps.Slots {
		ps.Slots[i].Index = i + 1
	}
	return ps
}

func (ps PreferenceSet) Clone() PreferenceSet {
	var c PreferenceSet
	for i, s := range ps.Slots {
		c.Slots[i] = s.Clone()
	}
	return c
}

// SubmittedPreference is the wire shape of one submitted slot. Location
// may be empty.
type SubmittedPreference struct {
	Sector   string `json:"sector"`
	Role     string `json:"role"`
	Location string `json:"location"`
}
