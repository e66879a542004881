package commands

import (
	"context"
	"path/filepath"

	"github.com/urfave/cli/v3"
)

type RecordCmd struct {
	flags *Flags
	path  string
}

// NewRecordCmd creates a new record command
func NewRecordCmd(flags *Flags) *RecordCmd {
	return &RecordCmd{flags: flags}
}

// Register adds the record command to the application
func (cmd *RecordCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "record",
		Usage:     "Add the current document to history without saving",
		UsageText: "savedeck record [--path PATH]",
		Description: `Records the current document's file in history, for documents saved outside
savedeck. Nothing is written to the file. Access is obtained from the path
when possible and never asked for.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "path",
				Usage:       "record this path instead of the document's own",
				Destination: &cmd.path,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RecordCmd) run(ctx context.Context, _ *cli.Command) error {
	path := cmd.path
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = abs
	}

	res, err := cmd.flags.App.Service.Record(ctx, path)
	return report(ctx, res, err)
}
