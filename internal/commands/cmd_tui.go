package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/tui"
)

type TuiCmd struct {
	flags *Flags
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{
		flags: flags,
	}
}

// Register adds the panel command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "panel",
		Usage:       "Open the interactive save history panel",
		UsageText:   "savedeck panel",
		Description: "Opens the save history panel. This is also what runs when savedeck is started without a command.",
		Action:      cmd.run,
	})
	return app
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(_ context.Context, _ *cli.Command) error {
	app := cmd.flags.App

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	m := tui.New(tui.Options{
		Config:   cmd.flags.Config,
		Flows:    app.Service,
		Records:  app.History,
		Exec:     app.Exec,
		Dir:      dir,
		Document: cmd.flags.Document,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	bridge := tui.NewBridge()
	bridge.Attach(p)
	app.Prompt.Attach(bridge)
	defer app.Prompt.Detach()

	app.History.Subscribe(tui.Subscribe(p))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
