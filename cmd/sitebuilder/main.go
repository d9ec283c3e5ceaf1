package main

import (
	"log/slog"

	"github.com/alecthomas/kong"
	"go.uber.org/automaxprocs/maxprocs"

	"git.home.luguber.info/inful/sitebuilder/cmd/sitebuilder/commands"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case the
	// runtime default stands.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sitebuilder"),
		kong.Description("Build static websites from a tree of markdown content."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	foundation.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
