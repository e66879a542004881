package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hay-kot/savedeck/internal/commands"
	"github.com/hay-kot/savedeck/internal/core/blob"
	"github.com/hay-kot/savedeck/internal/core/config"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/history"
	"github.com/hay-kot/savedeck/internal/credential"
	"github.com/hay-kot/savedeck/internal/localhost"
	"github.com/hay-kot/savedeck/internal/printer"
	"github.com/hay-kot/savedeck/internal/saver"
	"github.com/hay-kot/savedeck/internal/store/jsonfile"
	"github.com/hay-kot/savedeck/internal/store/sqlite"
	"github.com/hay-kot/savedeck/internal/thumbcache"
	"github.com/hay-kot/savedeck/pkg/executil"
	"github.com/hay-kot/savedeck/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	if err := setupLogger("info", "", config.LogConfig{}, nil); err != nil {
		panic(err)
	}

	var (
		p     = printer.New(os.Stderr)
		ctx   = printer.NewContext(context.Background(), p)
		flags = &commands.Flags{}
	)

	var deferredLogs *utils.DeferredWriter

	app := &cli.Command{
		Name:      "savedeck",
		Usage:     "Save documents and keep a history of where they went",
		UsageText: "savedeck [global options] command [command options]",
		Description: `Savedeck saves the current document (--doc) to new or previously used
destinations and keeps a short history of recent saves with thumbnails.

Files saved through savedeck keep a signed access token, so overwriting them
later does not ask for the file again.

Run 'savedeck' with no arguments to open the interactive history panel.
Run 'savedeck save' to save the current document to a new file.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SAVEDECK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file, rotated by size (optional)",
				Sources:     cli.EnvVars("SAVEDECK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SAVEDECK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("SAVEDECK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "doc",
				Aliases:     []string{"d"},
				Usage:       "image file to treat as the open document",
				Sources:     cli.EnvVars("SAVEDECK_DOCUMENT"),
				Destination: &flags.Document,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "answer yes to every confirmation",
				Destination: &flags.Yes,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Detect TUI mode: no subcommand means TUI (default action)
			isTUI := len(c.Args().Slice()) == 0 || c.Args().First() == "panel"

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// In TUI mode, buffer logs to display after exit
			var deferred io.Writer
			if isTUI {
				deferredLogs = &utils.DeferredWriter{}
				deferred = deferredLogs
			}

			if err := setupLogger(flags.LogLevel, flags.LogFile, cfg.Log, deferred); err != nil {
				return ctx, err
			}

			a, err := buildApp(ctx, cfg, flags)
			if err != nil {
				return ctx, err
			}
			flags.App = a
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			if flags.App == nil {
				return nil
			}
			return flags.App.Close()
		},
	}

	tuiCmd := commands.NewTuiCmd(flags)

	app = commands.NewLsCmd(flags).Register(app)
	app = commands.NewSaveCmd(flags).Register(app)
	app = commands.NewOverwriteCmd(flags).Register(app)
	app = commands.NewRecordCmd(flags).Register(app)
	app = commands.NewRmCmd(flags).Register(app)
	app = commands.NewPruneCmd(flags).Register(app)
	app = commands.NewThumbCmd(flags).Register(app)
	app = commands.NewTokensCmd(flags).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)
	app = commands.NewDoctorCmd(flags).Register(app)
	app = tuiCmd.Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'savedeck --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		printer.Ctx(ctx).FatalError(err)
		exitCode = 1
	}

	// Flush deferred logs to console after TUI exits
	if deferredLogs != nil {
		if err := deferredLogs.Flush(zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}

	os.Exit(exitCode)
}

func setupLogger(level string, logFile string, rotation config.LogConfig, deferred io.Writer) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if logFile != "" {
		// Create log directory if it doesn't exist
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
		}

		if deferred != nil {
			// TUI mode with explicit log file - write to both file and deferred buffer
			output = io.MultiWriter(file, deferred)
		} else {
			output = io.MultiWriter(
				zerolog.ConsoleWriter{Out: os.Stderr},
				file,
			)
		}
	} else if deferred != nil {
		// TUI mode without log file - buffer for display after exit
		output = deferred
	}

	log.Logger = log.Output(output).Level(parsedLevel)

	return nil
}

func component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// buildApp wires the storage backend, host adapters, and save service.
func buildApp(ctx context.Context, cfg *config.Config, flags *commands.Flags) (*commands.App, error) {
	a := &commands.App{}

	var blobs blob.Store
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.HistoryDB())
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		a.Closers = append(a.Closers, db)
		blobs = db
	default:
		blobs = jsonfile.NewKVStore(cfg.HistoryFile())
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	defaultFormat, err := format.Parse(cfg.Formats.Default)
	if err != nil {
		return nil, fmt.Errorf("formats.default: %w", err)
	}

	var (
		exec   = &executil.RealExecutor{}
		thumbs = thumbcache.New(cfg.ThumbnailDir(), component("thumbcache"))
		store  = history.NewStore(blobs, thumbs, component("history"), history.WithMaxRecords(cfg.History.MaxRecords))
		files  = localhost.NewFileSystem(localhost.FileSystemOptions{
			SecretFile: cfg.SecretFile(),
			SessionTTL: cfg.Access.SessionTTL,
			FullAccess: cfg.Access.FullAccess,
			Roots:      cfg.Access.Roots,
		}, component("files"))
		prompt = &localhost.Auto{
			Static:      &localhost.Static{Yes: flags.Yes, Out: os.Stderr},
			Prompter:    &localhost.Prompter{Dir: dir},
			Interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
		}
		docs = localhost.NewDocuments(flags.Document)
	)

	a.Service = saver.New(saver.Deps{
		Documents:     docs,
		Writer:        localhost.NewWriter(files, cfg.Formats.Converter, exec, component("writer")),
		Picker:        prompt,
		Access:        credential.NewBroker(files, prompt, store, component("credential")),
		History:       store,
		Thumbnails:    thumbs,
		Renderer:      thumbcache.Renderer{MaxSize: cfg.Thumbnails.MaxSize, Quality: cfg.Thumbnails.Quality},
		DefaultFormat: defaultFormat,
	}, component("saver"))

	a.History = store
	a.Thumbs = thumbs
	a.Files = files
	a.Documents = docs
	a.Prompt = prompt
	a.Exec = exec

	return a, nil
}
