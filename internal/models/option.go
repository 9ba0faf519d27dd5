package models

// Option is one entry of a category, role or location list.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// NewOption builds an option whose label equals its value, which is how
// the platform and the static table describe every list.
func NewOption(v string) Option {
	return Option{Value: v, Label: v}
}

func OptionsFromValues(values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, NewOption(v))
	}
	return out
}

// FindOption returns the option in opts with the given value.
func FindOption(opts []Option, value string) (Option, bool) {
	for _, o := range opts {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

func (o *Option) ValueOrEmpty() string {
	if o == nil {
		return ""
	}
	return o.Value
}

func cloneOption(o *Option) *Option {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
