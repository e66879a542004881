package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/savedeck/internal/printer"
)

type TokensCmd struct {
	flags *Flags
}

// NewTokensCmd creates a new tokens command
func NewTokensCmd(flags *Flags) *TokensCmd {
	return &TokensCmd{flags: flags}
}

// Register adds the tokens command to the application
func (cmd *TokensCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "tokens",
		Usage: "File access token management",
		Commands: []*cli.Command{
			{
				Name:      "rotate",
				Usage:     "Revoke every stored file access token",
				UsageText: "savedeck tokens rotate",
				Description: `Replaces the signing secret, invalidating every persisted access token.
History entries keep working: the next overwrite recovers access from the
path or asks for the file again. Run 'savedeck doctor --fix' afterwards to
drop the stale tokens from history.`,
				Action: cmd.runRotate,
			},
		},
	})

	return app
}

func (cmd *TokensCmd) runRotate(ctx context.Context, _ *cli.Command) error {
	app := cmd.flags.App

	ok, err := app.confirm(ctx, true, "Rotate secret", "Revoke every stored file access token?")
	if err != nil {
		return err
	}
	if !ok {
		printer.Ctx(ctx).Infof("Cancelled")
		return nil
	}

	if err := app.Files.RotateSecret(); err != nil {
		return fmt.Errorf("rotate secret: %w", err)
	}

	printer.Ctx(ctx).Successf("Access tokens revoked")
	return nil
}
