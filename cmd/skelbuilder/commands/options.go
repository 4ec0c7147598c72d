package commands

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// OptionsCmd prints the option catalog served by GET /options.
type OptionsCmd struct {
	Group []string `short:"g" help:"Restrict output to these groups (language, testing, logging, license)"`
	JSON  bool     `help:"Print the catalog as JSON"`
}

func (o *OptionsCmd) Run(g *Global) error {
	catalog := project.Options(o.Group...)
	if o.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	section := func(title string, opts []project.Option) {
		if len(opts) == 0 {
			return
		}
		_, _ = fmt.Fprintf(g.Out, "%s:\n", title)
		for _, opt := range opts {
			_, _ = fmt.Fprintf(g.Out, "  %-10s %s\n", opt.Value, opt.Label)
		}
	}
	section("Languages", catalog.Languages)
	section("Testing", catalog.Testing)
	section("Logging", catalog.Logging)
	section("Licenses", catalog.Licenses)

	keys := make([]string, 0, len(catalog.Defaults))
	for k := range catalog.Defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+catalog.Defaults[k])
	}
	_, _ = fmt.Fprintf(g.Out, "Defaults: %s\n", strings.Join(pairs, " "))
	return nil
}
