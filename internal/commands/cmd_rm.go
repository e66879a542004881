package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/printer"
	"github.com/hay-kot/savedeck/internal/saver"
)

type RmCmd struct {
	flags *Flags
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags) *RmCmd {
	return &RmCmd{flags: flags}
}

// Register adds the rm and clear commands to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:        "rm",
			Usage:       "Remove entries from history",
			UsageText:   "savedeck rm <id>...",
			Description: "Removes history entries and their thumbnails. Files on disk are not touched.",
			Action:      cmd.runRemove,
		},
		&cli.Command{
			Name:        "clear",
			Usage:       "Remove every entry from history",
			UsageText:   "savedeck clear",
			Description: "Removes all history entries and the whole thumbnail cache. Files on disk are not touched.",
			Action:      cmd.runClear,
		},
	)

	return app
}

func (cmd *RmCmd) runRemove(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	app := cmd.flags.App

	ids := c.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("at least one record id is required")
	}

	for _, id := range ids {
		rec, err := app.findRecord(ctx, id)
		if err != nil {
			p.Warnf("%v", err)
			continue
		}

		ok, err := app.confirm(ctx, cmd.flags.Config.Panel.ConfirmDelete, "Remove", fmt.Sprintf("Remove %s from history?", rec.Filename))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		removed, err := app.Service.Delete(ctx, rec.ID)
		if err != nil {
			return report(ctx, saver.Result{}, err)
		}
		if removed {
			p.Successf("Removed %s", rec.Filename)
		}
	}

	return nil
}

func (cmd *RmCmd) runClear(ctx context.Context, _ *cli.Command) error {
	app := cmd.flags.App

	ok, err := app.confirm(ctx, cmd.flags.Config.Panel.ConfirmDelete, "Clear history", "Remove every entry and thumbnail from history?")
	if err != nil {
		return err
	}
	if !ok {
		printer.Ctx(ctx).Infof("Cancelled")
		return nil
	}

	if err := app.Service.Clear(ctx); err != nil {
		return report(ctx, saver.Result{}, err)
	}

	printer.Ctx(ctx).Successf("History cleared")
	return nil
}
