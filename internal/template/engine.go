// Package template renders the text templates comfyctl ships, the systemd
// unit file first among them.
package template

import (
	"fmt"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders text templates with the sprig function library available.
type Engine struct {
	funcs texttemplate.FuncMap
}

// New creates a new template engine
func New() *Engine {
	return &Engine{funcs: sprig.TxtFuncMap()}
}

// Render executes the template text against data. Referencing a key that is
// absent from data is an error, so a typo in a template fails loudly instead
// of rendering "<no value>" into a unit file.
func (e *Engine) Render(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := texttemplate.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return sb.String(), nil
}
