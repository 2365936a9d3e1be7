package main

import (
	"context"
	"os"

	"github.com/kovetskiy/exomesh/util"
	"github.com/reconquest/pkg/log"
	"github.com/urfave/cli/v3"
)

var (
	version     = "0.1.0"
	commit      = "HEAD"
	usage       = "A tool for reading meshes and results out of Exodus II and Nemesis files."
	description = `exomesh opens Exodus II files, or sets of Nemesis part files given as a glob pattern, and prints their mesh, time axis and variable values. Snapshots can be exported as CBOR or JSON for plotting tools.`
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "exomesh",
		Usage:                 usage,
		Description:           description,
		Version:               version + "@" + commit,
		Flags:                 util.Flags,
		Before:                util.Setup,
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "prints a YAML summary of every file.",
				ArgsUsage: "<file|pattern>...",
				Action:    util.RunInfo,
			},
			{
				Name:      "mesh",
				Usage:     "prints node, element and block counts.",
				ArgsUsage: "<file|pattern>...",
				Action:    util.RunMesh,
			},
			{
				Name:      "times",
				Usage:     "prints the time axis.",
				ArgsUsage: "<file|pattern>...",
				Action:    util.RunTimes,
			},
			{
				Name:      "values",
				Usage:     "prints the values of a variable at one step.",
				ArgsUsage: "<file|pattern>...",
				Flags:     util.ValuesFlags(),
				Before:    util.CheckTimeSelection,
				Action:    util.RunValues,
			},
			{
				Name:      "export",
				Usage:     "writes per-element coordinates and values of a variable at one time.",
				ArgsUsage: "<file|pattern>",
				Flags:     util.ExportFlags(),
				Action:    util.RunExport,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
