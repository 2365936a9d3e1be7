package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kovetskiy/exomesh/exodus"
	"github.com/kovetskiy/exomesh/export"
	"github.com/kovetskiy/exomesh/nemesis"
	"github.com/kovetskiy/exomesh/types"
	"github.com/kovetskiy/lorg"
	"github.com/reconquest/karma-go"
	"github.com/reconquest/pkg/log"
	"github.com/urfave/cli/v3"
)

func Setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := SetLogLevel(cmd); err != nil {
		return ctx, err
	}

	if cmd.String("color") == "never" {
		log.GetLogger().SetFormat(
			lorg.NewFormat(
				`${time:2006-01-02 15:04:05.000} ${level:%s:left:true} ${prefix}%s`,
			),
		)
		log.GetLogger().SetOutput(os.Stderr)
	}

	return ctx, nil
}

// CheckTimeSelection requires exactly one of --step and --time.
func CheckTimeSelection(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	step, time := cmd.IsSet("step"), cmd.IsSet("time")

	if step && time {
		return ctx, fmt.Errorf("--step and --time are mutually exclusive")
	}

	if !step && !time {
		return ctx, fmt.Errorf("one of --step or --time is required")
	}

	return ctx, nil
}

func GetConfig(cmd *cli.Command) types.Config {
	return types.Config{
		Variable:       cmd.String("var"),
		Step:           int(cmd.Int("step")),
		Time:           cmd.Float("time"),
		UseTime:        cmd.IsSet("time"),
		ElementAverage: cmd.Bool("element-average"),
		Concurrency:    int(cmd.Int("concurrency")),
		Output:         cmd.String("output"),
		Encoding:       cmd.String("encoding"),
	}
}

func RunInfo(ctx context.Context, cmd *cli.Command) error {
	return eachSource(cmd, func(file string, source exodus.Source) error {
		summary, err := export.Summarize(source)
		if err != nil {
			return err
		}

		return export.WriteSummary(stdout(cmd), summary)
	})
}

func RunMesh(ctx context.Context, cmd *cli.Command) error {
	out := stdout(cmd)

	return eachSource(cmd, func(file string, source exodus.Source) error {
		for _, part := range source.Parts() {
			mesh, err := part.GetMesh()
			if err != nil {
				return err
			}

			fmt.Fprintf(
				out,
				"%s: %d nodes, %d elements, %d blocks, dimension %d\n",
				part.Name(),
				mesh.NumNodes(),
				mesh.NumElements(),
				len(mesh.Blocks),
				mesh.Dim,
			)

			for _, block := range mesh.Blocks {
				fmt.Fprintf(
					out,
					"  block %d %q: %d x %s (%d nodes each)\n",
					block.ID,
					block.Name,
					block.NumElements(),
					block.Topology,
					block.NodesPerElement,
				)
			}
		}

		return nil
	})
}

func RunTimes(ctx context.Context, cmd *cli.Command) error {
	out := stdout(cmd)

	return eachSource(cmd, func(file string, source exodus.Source) error {
		for step, time := range source.Times() {
			fmt.Fprintf(out, "%d\t%s\n", step, formatFloat(time))
		}

		return nil
	})
}

func RunValues(ctx context.Context, cmd *cli.Command) error {
	config := GetConfig(cmd)
	out := stdout(cmd)

	return eachSource(cmd, func(file string, source exodus.Source) error {
		for _, part := range source.Parts() {
			step := config.Step
			if config.UseTime {
				var err error
				step, err = part.StepAt(config.Time)
				if err != nil {
					return err
				}
			}

			var (
				values []float64
				err    error
			)

			if config.ElementAverage {
				values, err = part.ElementValues(config.Variable, step)
			} else {
				values, err = part.GetVariable(config.Variable, step)
			}

			if err != nil {
				return err
			}

			fmt.Fprintf(
				out,
				"# %s %s step %d time %s\n",
				part.Name(),
				config.Variable,
				step,
				formatFloat(part.Times()[step]),
			)

			for _, value := range values {
				fmt.Fprintln(out, formatFloat(value))
			}
		}

		return nil
	})
}

func RunExport(ctx context.Context, cmd *cli.Command) error {
	config := GetConfig(cmd)

	encoding, err := export.ParseEncoding(config.Encoding)
	if err != nil {
		return err
	}

	if config.Output != "-" && cmd.Args().Len() > 1 {
		return fmt.Errorf("only one file or pattern can be exported to %s", config.Output)
	}

	return eachSource(cmd, func(file string, source exodus.Source) error {
		snapshot, err := source.DataAtTime(config.Variable, config.Time)
		if err != nil {
			return err
		}

		if config.Output == "-" {
			return export.WriteSnapshot(stdout(cmd), snapshot, encoding)
		}

		output, err := os.Create(config.Output)
		if err != nil {
			return karma.Format(err, "unable to create %q", config.Output)
		}

		err = export.WriteSnapshot(output, snapshot, encoding)
		if err != nil {
			output.Close()
			return err
		}

		log.Infof(
			nil,
			"%d elements of %q at %s written to %s",
			snapshot.NumElements(),
			config.Variable,
			formatFloat(snapshot.Time),
			config.Output,
		)

		return output.Close()
	})
}

// eachSource opens every file or pattern given as argument and passes it to
// fn. Failures go through the fatal error handler.
func eachSource(
	cmd *cli.Command,
	fn func(file string, source exodus.Source) error,
) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("no files specified")
	}

	options := nemesis.Options{
		Concurrency: int(cmd.Int("concurrency")),
	}

	fatalErrorHandler := NewErrorHandler(cmd.Bool("continue-on-error"))

	for _, file := range files {
		log.Debugf(nil, "reading %s", file)

		source, err := nemesis.OpenWith(file, options)
		if err != nil {
			fatalErrorHandler.Handle(err, "unable to open %q", file)
			continue
		}

		err = fn(file, source)
		if err != nil {
			fatalErrorHandler.Handle(err, "unable to process %q", file)
		}

		err = source.Close()
		if err != nil {
			fatalErrorHandler.Handle(err, "unable to close %q", file)
		}
	}

	if fatalErrorHandler.Failures > 0 {
		return fmt.Errorf("%d of %d files failed", fatalErrorHandler.Failures, len(files))
	}

	return nil
}

func stdout(cmd *cli.Command) io.Writer {
	if writer := cmd.Root().Writer; writer != nil {
		return writer
	}

	return os.Stdout
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func ConfigFilePath() string {
	fp, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(fp, "exomesh.toml")
}

func SetLogLevel(cmd *cli.Command) error {
	logLevel := cmd.String("log-level")
	switch strings.ToUpper(logLevel) {
	case lorg.LevelTrace.String():
		log.SetLevel(lorg.LevelTrace)
	case lorg.LevelDebug.String():
		log.SetLevel(lorg.LevelDebug)
	case lorg.LevelInfo.String():
		log.SetLevel(lorg.LevelInfo)
	case lorg.LevelWarning.String():
		log.SetLevel(lorg.LevelWarning)
	case lorg.LevelError.String():
		log.SetLevel(lorg.LevelError)
	case lorg.LevelFatal.String():
		log.SetLevel(lorg.LevelFatal)
	default:
		return fmt.Errorf("unknown log level: %s", logLevel)
	}

	return nil
}
