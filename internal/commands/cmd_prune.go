package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/printer"
	"github.com/hay-kot/savedeck/internal/saver"
)

type PruneCmd struct {
	flags  *Flags
	dryRun bool
}

// NewPruneCmd creates a new prune command
func NewPruneCmd(flags *Flags) *PruneCmd {
	return &PruneCmd{flags: flags}
}

// Register adds the prune command to the application
func (cmd *PruneCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prune",
		Usage:     "Remove history entries whose file no longer exists",
		UsageText: "savedeck prune [--dry-run]",
		Description: `Removes history entries pointing at files that were deleted or moved, along
with their thumbnails.

Use --dry-run to list them without removing anything.`,
		Action: cmd.run,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Aliases:     []string{"n"},
				Usage:       "list missing files without removing them",
				Destination: &cmd.dryRun,
			},
		},
	})

	return app
}

func (cmd *PruneCmd) run(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)
	app := cmd.flags.App

	records, err := app.History.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	missing := missingFiles(records)
	if len(missing) == 0 {
		p.Infof("Every history entry points at an existing file")
		return nil
	}

	count := 0
	for _, r := range missing {
		if cmd.dryRun {
			p.Printf("  %s %s", printer.Dot, r.Path)
			continue
		}

		removed, err := app.Service.Delete(ctx, r.ID)
		if err != nil {
			return report(ctx, saver.Result{}, err)
		}
		if removed {
			count++
		}
	}

	if cmd.dryRun {
		p.Infof("%d entr(ies) would be removed", len(missing))
		return nil
	}

	p.Successf("Pruned %d entr(ies)", count)
	return nil
}

// missingFiles returns the records whose path does not exist.
func missingFiles(records []history.Record) []history.Record {
	var out []history.Record
	for _, r := range records {
		if _, err := os.Stat(r.Path); errors.Is(err, fs.ErrNotExist) {
			out = append(out, r)
		}
	}
	return out
}
