package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/saver"
)

type SaveCmd struct {
	flags *Flags

	format string
	to     string
}

// NewSaveCmd creates a new save command
func NewSaveCmd(flags *Flags) *SaveCmd {
	return &SaveCmd{flags: flags}
}

// Register adds the save command to the application
func (cmd *SaveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "save",
		Usage:     "Save the current document to a new file",
		UsageText: "savedeck save [--format FORMAT] [--to PATH]",
		Description: `Writes the current document (--doc) to a newly chosen destination and adds
it to the save history.

Without --format the format is asked for; without --to the destination is
asked for. The format's extension is appended when the destination has none.
Saving grants savedeck lasting write access to the file, so later overwrites
do not ask again.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "save format (PSD, JPG, PNG, TGA)",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "to",
				Aliases:     []string{"o"},
				Usage:       "destination path",
				Destination: &cmd.to,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SaveCmd) run(ctx context.Context, _ *cli.Command) error {
	app := cmd.flags.App

	var opts saver.SaveAsOptions
	if cmd.format != "" {
		f, err := format.Parse(cmd.format)
		if err != nil {
			return fmt.Errorf("--format: %w", err)
		}
		opts.Format = f
		app.Prompt.Static.Format = f
	}
	if cmd.to != "" {
		app.Prompt.Static.Destination = cmd.to
	}

	res, err := app.Service.SaveAs(ctx, opts)
	return report(ctx, res, err)
}
