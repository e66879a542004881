package localhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/savedeck/internal/core/failure"
	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/internal/core/host"
	"github.com/hay-kot/savedeck/internal/printer"
	"github.com/hay-kot/savedeck/internal/styles"
)

// Prompter asks the user in the terminal.
type Prompter struct {
	// Dir resolves relative destinations. Empty means the working directory.
	Dir string
}

// PickSaveDestination asks for a file path, prefilled with suggestedName and
// the first type's extension.
func (p *Prompter) PickSaveDestination(ctx context.Context, suggestedName string, types []format.Format) (host.Entry, error) {
	f := format.Fallback
	if len(types) > 0 {
		f = types[0]
	}

	value := f.WithExtension(suggestedName)
	input := huh.NewInput().
		Title("Save as").
		Description(fmt.Sprintf("%s file", f)).
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a file name is required")
			}
			return nil
		})

	if err := p.run(ctx, input); err != nil {
		return host.Entry{}, err
	}

	return Destination(p.Dir, value, f)
}

// PickFormat asks for a save format.
func (p *Prompter) PickFormat(ctx context.Context, suggested format.Format) (format.Format, error) {
	value := suggested
	options := make([]huh.Option[format.Format], 0, len(format.All()))
	for _, f := range format.All() {
		opts, _ := format.Lookup(f)
		options = append(options, huh.NewOption(fmt.Sprintf("%s  %s", f, opts.Descriptor), f))
	}

	sel := huh.NewSelect[format.Format]().
		Title("Format").
		Options(options...).
		Value(&value)

	if err := p.run(ctx, sel); err != nil {
		return "", err
	}
	return value, nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().
		Title(title).
		Description(message).
		Value(&ok)

	if err := p.run(ctx, confirm); err != nil {
		if errors.Is(err, failure.ErrCancelled) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Alert shows a message and waits for acknowledgement.
func (p *Prompter) Alert(ctx context.Context, title, message string) error {
	note := huh.NewNote().
		Title(title).
		Description(message).
		Next(true)

	if err := p.run(ctx, note); err != nil && !errors.Is(err, failure.ErrCancelled) {
		return err
	}
	return nil
}

func (p *Prompter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithTheme(styles.FormTheme())
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return failure.ErrCancelled
		}
		return err
	}
	return nil
}

// Static answers prompts from fixed values, for non-interactive use.
type Static struct {
	// Destination is returned by PickSaveDestination. Empty cancels.
	Destination string
	// Format is returned by PickFormat. Empty accepts the suggestion.
	Format format.Format
	// Yes is the answer to every confirmation.
	Yes bool
	// Out receives alerts.
	Out io.Writer
}

// PickSaveDestination returns Destination or failure.ErrCancelled.
func (s *Static) PickSaveDestination(_ context.Context, _ string, types []format.Format) (host.Entry, error) {
	if s.Destination == "" {
		return host.Entry{}, failure.ErrCancelled
	}

	f := format.Fallback
	if len(types) > 0 {
		f = types[0]
	}
	return Destination("", s.Destination, f)
}

// PickFormat returns Format or the suggestion.
func (s *Static) PickFormat(_ context.Context, suggested format.Format) (format.Format, error) {
	if s.Format != "" {
		return s.Format, nil
	}
	return suggested, nil
}

// Confirm returns Yes.
func (s *Static) Confirm(context.Context, string, string) (bool, error) {
	return s.Yes, nil
}

// Alert prints the message box to Out.
func (s *Static) Alert(_ context.Context, title, message string) error {
	if s.Out != nil {
		printer.New(s.Out).Alert(title, message)
	}
	return nil
}

// Destination builds an entry for a user-entered path, making it absolute
// against dir and appending f's extension when missing.
func Destination(dir, value string, f format.Format) (host.Entry, error) {
	path := f.WithExtension(strings.TrimSpace(value))
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return host.Entry{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return host.Entry{Path: abs, Name: filepath.Base(abs)}, nil
}

// Auto routes prompts to Static answers when they are set or the session is
// not interactive, to an attached panel while one runs, and to the terminal
// otherwise.
type Auto struct {
	Static      *Static
	Prompter    *Prompter
	Interactive bool

	mu    sync.Mutex
	panel host.Picker
}

// Attach routes picker prompts to p until Detach is called.
func (a *Auto) Attach(p host.Picker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.panel = p
}

// Detach stops routing picker prompts to the panel.
func (a *Auto) Detach() {
	a.Attach(nil)
}

func (a *Auto) picker(static bool) host.Picker {
	if static || !a.Interactive {
		return a.Static
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.panel != nil {
		return a.panel
	}
	return a.Prompter
}

// PickSaveDestination implements host.Picker.
func (a *Auto) PickSaveDestination(ctx context.Context, suggestedName string, types []format.Format) (host.Entry, error) {
	return a.picker(a.Static.Destination != "").PickSaveDestination(ctx, suggestedName, types)
}

// PickFormat implements host.Picker.
func (a *Auto) PickFormat(ctx context.Context, suggested format.Format) (format.Format, error) {
	return a.picker(a.Static.Format != "").PickFormat(ctx, suggested)
}

// Confirm implements host.Dialogs.
func (a *Auto) Confirm(ctx context.Context, title, message string) (bool, error) {
	if a.Static.Yes || !a.Interactive {
		return a.Static.Confirm(ctx, title, message)
	}
	return a.Prompter.Confirm(ctx, title, message)
}

// Alert implements host.Dialogs.
func (a *Auto) Alert(ctx context.Context, title, message string) error {
	if !a.Interactive {
		return a.Static.Alert(ctx, title, message)
	}
	return a.Prompter.Alert(ctx, title, message)
}
