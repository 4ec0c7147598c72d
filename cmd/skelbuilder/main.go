package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/skelbuilder/cmd/skelbuilder/commands"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

func main() {
	cli := &commands.CLI{}
	global := commands.NewGlobal()

	parser := kong.Must(cli,
		kong.Name("skelbuilder"),
		kong.Description("Builds downloadable Gradle project skeletons."),
		kong.UsageOnError(),
		kong.Bind(global),
		kong.Vars{"defaultVersion": project.DefaultVersion},
	)
	ctx, err := parser.Parse(nil)
	parser.FatalIfErrorf(err)

	err = ctx.Run(global, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
