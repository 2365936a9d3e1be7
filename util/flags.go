package util

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	altsrctoml "github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var filename string

var Flags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "continue-on-error",
		Value:   false,
		Usage:   "don't exit if an error occurs while reading a file, continue with remaining files.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("EXOMESH_CONTINUE_ON_ERROR"), altsrctoml.TOML("continue-on-error", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		Usage:   "number of Nemesis part files opened at once, 0 means one per CPU.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("EXOMESH_CONCURRENCY"), altsrctoml.TOML("concurrency", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:  "color",
		Value: "auto",
		Usage: "display logs in color. Possible values: auto, never.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("EXOMESH_COLOR"),
			altsrctoml.TOML("color", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		Usage:   "set the log level. Possible values: TRACE, DEBUG, INFO, WARNING, ERROR, FATAL.",
		Sources: cli.NewValueSourceChain(cli.EnvVar("EXOMESH_LOG_LEVEL"), altsrctoml.TOML("log-level", altsrc.NewStringPtrSourcer(&filename))),
	},
	&cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Value:       ConfigFilePath(),
		Usage:       "use the specified configuration file.",
		TakesFile:   true,
		Sources:     cli.NewValueSourceChain(cli.EnvVar("EXOMESH_CONFIG")),
		Destination: &filename,
	},
}

// flags hold their parsed values, every command gets its own instances

func variableFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "var",
		Usage:    "name of the nodal, elemental or global variable.",
		Required: true,
	}
}

func timeFlag(required bool) cli.Flag {
	return &cli.FloatFlag{
		Name:     "time",
		Aliases:  []string{"t"},
		Usage:    "simulation time to read, matched against stored times with a relative tolerance of 1e-5.",
		Required: required,
	}
}

func ValuesFlags() []cli.Flag {
	return []cli.Flag{
		variableFlag(),
		&cli.IntFlag{
			Name:    "step",
			Aliases: []string{"s"},
			Usage:   "zero-based time step to read.",
		},
		timeFlag(false),
		&cli.BoolFlag{
			Name:    "element-average",
			Aliases: []string{"a"},
			Usage:   "average nodal values over the nodes of each element.",
		},
	}
}

func ExportFlags() []cli.Flag {
	return []cli.Flag{
		variableFlag(),
		timeFlag(true),
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Value:     "-",
			Usage:     "file to write the snapshot to, - for standard output.",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    "encoding",
			Aliases: []string{"e"},
			Value:   "cbor",
			Usage:   "snapshot encoding. Possible values: cbor, json.",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EXOMESH_ENCODING"), altsrctoml.TOML("encoding", altsrc.NewStringPtrSourcer(&filename))),
		},
	}
}
