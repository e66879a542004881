package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

type ThumbCmd struct {
	flags *Flags
	out   string
}

// NewThumbCmd creates a new thumb command
func NewThumbCmd(flags *Flags) *ThumbCmd {
	return &ThumbCmd{flags: flags}
}

// Register adds the thumb command to the application
func (cmd *ThumbCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "thumb",
		Usage:       "Export the cached thumbnail of a history entry",
		UsageText:   "savedeck thumb <id|path> [--out FILE]",
		Description: "Writes the cached JPEG thumbnail to --out, or prints the cache file path when --out is not set.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "write the thumbnail to this file",
				Destination: &cmd.out,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ThumbCmd) run(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	target, _, err := app.resolveTarget(ctx, c.Args().First())
	if err != nil {
		return err
	}

	data, ok := app.Thumbs.Read(target)
	if !ok {
		return fmt.Errorf("no thumbnail cached for %s", target)
	}

	if cmd.out == "" {
		_, err := fmt.Fprintln(c.Root().Writer, app.Thumbs.EntryPath(target))
		return err
	}

	if err := os.WriteFile(cmd.out, data, 0o644); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}
	return nil
}
