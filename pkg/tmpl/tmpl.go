// Package tmpl renders command templates such as the format converter.
package tmpl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

// ShellQuote wraps s in single quotes, escaping embedded single quotes as '\''.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// stem returns the last path element without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var funcs = template.FuncMap{
	"shq":   ShellQuote,
	"base":  filepath.Base,
	"dir":   filepath.Dir,
	"stem":  stem,
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

// Render executes a Go template string with the given data. Undefined keys
// are an error.
//
// Template functions:
//   - shq: shell-quote a string
//   - base, dir, stem: path helpers
//   - lower, upper: case helpers
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// Validate parses tmpl without executing it.
func Validate(tmpl string) error {
	if _, err := template.New("").Funcs(funcs).Parse(tmpl); err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return nil
}
