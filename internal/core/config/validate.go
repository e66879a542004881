package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/savedeck/internal/core/format"
	"github.com/hay-kot/savedeck/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ConverterTemplateData defines available fields for the converter template.
type ConverterTemplateData struct {
	Input     string
	Output    string
	Format    string
	Extension string
	Quality   int
	BitDepth  int
	RLE       bool
}

// KeybindingTemplateData defines available fields for keybinding shell templates.
type KeybindingTemplateData struct {
	ID       string
	Path     string
	Filename string
	Format   string
}

// ValidateDeep performs comprehensive validation of the configuration. Unlike
// Validate, it checks templates, glob patterns and file access. The returned
// error is a criterio.FieldErrors listing every problem.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrors
	add := func(field string, err error) {
		errs = append(errs, criterio.FieldErrors{{Field: field, Err: err}}...)
	}

	c.validateFileAccess(add, configPath)
	c.validateLimits(add)
	c.validateAccess(add)
	c.validateFormats(add)
	c.validateKeybindings(add)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Formats.Converter == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Formats",
			Item:     "converter",
			Message:  "no converter configured; PSD and TGA saves will fail",
		})
	}

	if !c.Access.FullAccess && len(c.Access.Roots) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Access",
			Item:     "roots",
			Message:  "no access roots; overwriting a file whose token expired always asks for the file again",
		})
	}

	return warnings
}

type addFunc func(field string, err error)

func (c *Config) validateFileAccess(add addFunc, configPath string) {
	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				add("config", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			add("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir == "" {
		add("data_dir", fmt.Errorf("data directory cannot be empty"))
		return
	}

	if info, err := os.Stat(c.DataDir); err == nil {
		if !info.IsDir() {
			add("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
		}
	} else if !os.IsNotExist(err) {
		add("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
	}
}

func (c *Config) validateLimits(add addFunc) {
	if c.History.MaxRecords < 1 {
		add("history.max_records", fmt.Errorf("must be at least 1, got %d", c.History.MaxRecords))
	}

	if !isValidDriver(c.Storage.Driver) {
		add("storage.driver", fmt.Errorf("unknown driver %q (use json or sqlite)", c.Storage.Driver))
	}

	if c.Thumbnails.MaxSize < 16 || c.Thumbnails.MaxSize > 2048 {
		add("thumbnails.max_size", fmt.Errorf("must be between 16 and 2048, got %d", c.Thumbnails.MaxSize))
	}

	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		add("thumbnails.quality", fmt.Errorf("must be between 1 and 100, got %d", c.Thumbnails.Quality))
	}

	if c.Log.MaxSizeMB < 1 {
		add("log.max_size_mb", fmt.Errorf("must be at least 1, got %d", c.Log.MaxSizeMB))
	}
	if c.Log.MaxBackups < 0 {
		add("log.max_backups", fmt.Errorf("cannot be negative, got %d", c.Log.MaxBackups))
	}
}

func (c *Config) validateAccess(add addFunc) {
	if c.Access.SessionTTL <= 0 {
		add("access.session_ttl", fmt.Errorf("must be positive, got %s", c.Access.SessionTTL))
	}

	for i, root := range c.Access.Roots {
		if !doublestar.ValidatePattern(root) {
			add(fmt.Sprintf("access.roots[%d]", i), fmt.Errorf("invalid glob pattern %q", root))
		}
	}
}

func (c *Config) validateFormats(add addFunc) {
	if _, err := format.Parse(c.Formats.Default); err != nil {
		add("formats.default", err)
	}

	if c.Formats.Converter != "" {
		if err := validateTemplate(c.Formats.Converter, ConverterTemplateData{}); err != nil {
			add("formats.converter", fmt.Errorf("template error: %w", err))
		}
	}
}

func (c *Config) validateKeybindings(add addFunc) {
	keys := make([]string, 0, len(c.Keybindings))
	for k := range c.Keybindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		kb := c.Keybindings[key]
		field := fmt.Sprintf("keybindings.%s", key)

		switch {
		case kb.Action == "" && kb.Sh == "":
			add(field, fmt.Errorf("must have either action or sh"))
		case kb.Action != "" && kb.Sh != "":
			add(field, fmt.Errorf("cannot have both action and sh"))
		case kb.Action != "" && !isValidAction(kb.Action):
			add(field, fmt.Errorf("invalid action %q (use overwrite, delete or record)", kb.Action))
		case kb.Sh != "":
			if err := validateTemplate(kb.Sh, KeybindingTemplateData{}); err != nil {
				add(field, fmt.Errorf("template error in sh: %w", err))
			}
		}
	}
}

// validateTemplate dry-runs tmplStr against zero data so that references to
// undefined fields fail.
func validateTemplate(tmplStr string, data any) error {
	_, err := tmpl.Render(tmplStr, data)
	return err
}
