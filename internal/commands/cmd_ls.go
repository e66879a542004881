package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/printer"
)

type LsCmd struct {
	flags  *Flags
	format string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "ls",
		Usage:       "List save history",
		UsageText:   "savedeck ls [options]",
		Description: "Displays the save history, most recent first, with format, size, age, access state, and path.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	records, err := cmd.flags.App.History.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		printer.Ctx(ctx).Infof("No saved documents")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFORMAT\tNAME\tSIZE\tSAVED\tACCESS\tPATH")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID), r.Label(), r.Filename, r.Size(), history.When(r.Timestamp, now), access(r), r.Path)
	}

	return w.Flush()
}

func access(r history.Record) string {
	if r.HasToken() {
		return "granted"
	}
	return "none"
}
