package commands

import (
	"fmt"

	"git.home.luguber.info/inful/skelbuilder/internal/version"
)

// VersionCmd prints build metadata.
type VersionCmd struct{}

func (VersionCmd) Run(g *Global) error {
	_, _ = fmt.Fprintln(g.Out, version.String())
	return nil
}
