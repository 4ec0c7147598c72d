package project

// Option is one selectable enum member.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog lists every choice a caller can make, with defaults.
type Catalog struct {
	Languages []Option          `json:"language,omitempty"`
	Testing   []Option          `json:"testing,omitempty"`
	Logging   []Option          `json:"logging,omitempty"`
	Licenses  []Option          `json:"license,omitempty"`
	Defaults  map[string]string `json:"defaults"`
}

func toOptions[T interface {
	~string
	Label() string
}](members []T) []Option {
	out := make([]Option, 0, len(members))
	for _, m := range members {
		out = append(out, Option{Value: string(m), Label: m.Label()})
	}
	return out
}

// Options returns the catalog restricted to the named groups
// ("language", "testing", "logging", "license"); no names means all groups.
func Options(groups ...string) Catalog {
	want := func(name string) bool {
		if len(groups) == 0 {
			return true
		}
		for _, g := range groups {
			if g == name {
				return true
			}
		}
		return false
	}

	c := Catalog{Defaults: map[string]string{
		"version": DefaultVersion,
		"testing": string(TestingNone),
		"logging": string(LoggingNone),
		"license": string(LicenseNone),
	}}
	if want("language") {
		c.Languages = toOptions(Languages)
	}
	if want("testing") {
		c.Testing = toOptions(TestingFrameworks)
	}
	if want("logging") {
		c.Logging = toOptions(LoggingFrameworks)
	}
	if want("license") {
		c.Licenses = toOptions(Licenses)
	}
	return c
}
