package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/savedeck/internal/core/config"
)

// ConfigCheck validates the configuration file and reports where history is
// stored.
type ConfigCheck struct {
	config     *config.Config
	configPath string
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{
		config:     cfg,
		configPath: configPath,
	}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.add(fail("Config loaded", "configuration not loaded"))
		return result
	}

	err := c.config.ValidateDeep(c.configPath)
	warnings := c.config.Warnings()

	if err == nil && len(warnings) == 0 {
		result.add(pass("Config valid", c.configPath))
	}

	result.add(validationItems(err)...)

	for _, w := range warnings {
		label := w.Category
		if w.Item != "" {
			label += " (" + w.Item + ")"
		}
		result.add(warn(label, w.Message))
	}

	result.add(c.storageItem())
	return result
}

func (c *ConfigCheck) storageItem() CheckItem {
	switch c.config.Storage.Driver {
	case config.DriverSQLite:
		return pass("History storage", fmt.Sprintf("sqlite %s", c.config.HistoryDB()))
	default:
		return pass("History storage", fmt.Sprintf("json %s", c.config.HistoryFile()))
	}
}

// validationItems turns a ValidateDeep error into one failed item per field.
func validationItems(err error) []CheckItem {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []CheckItem{fail("validation", err.Error())}
	}

	items := make([]CheckItem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		label := fe.Field
		if label == "" {
			label = "validation"
		}
		items = append(items, fail(label, fe.Err.Error()))
	}
	return items
}
