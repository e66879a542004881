package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/printer"
)

type OverwriteCmd struct {
	flags *Flags
}

// NewOverwriteCmd creates a new overwrite command
func NewOverwriteCmd(flags *Flags) *OverwriteCmd {
	return &OverwriteCmd{flags: flags}
}

// Register adds the overwrite command to the application
func (cmd *OverwriteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "overwrite",
		Usage:     "Save the current document over a file from history",
		UsageText: "savedeck overwrite <id|path>",
		Description: `Writes the current document over an existing file, using the format stored
in its history record (or the file extension).

Access is obtained from the stored token first, then from the path. If both
fail you are asked to pick the file again.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *OverwriteCmd) run(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	target, rec, err := app.resolveTarget(ctx, c.Args().First())
	if err != nil {
		return err
	}

	name := rec.Filename
	if name == "" {
		name = format.Base(target)
	}

	ok, err := app.confirm(ctx, cmd.flags.Config.Panel.ConfirmOverwrite, "Overwrite", fmt.Sprintf("Overwrite %s with the current document?", name))
	if err != nil {
		return err
	}
	if !ok {
		printer.Ctx(ctx).Infof("Cancelled")
		return nil
	}

	res, err := app.Service.Overwrite(ctx, target)
	return report(ctx, res, err)
}
