package util

import (
	"bytes"
	"strings"
	"text/template"
)

// RenderTemplate substitutes placeholders in an instruction template using
// Go's text/template syntax ({{.current_user_id}}, {{.current_datetime}},
// ...). Text without template markers is returned unchanged on the fast path.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("instructions").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}
