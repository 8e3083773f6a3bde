package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
)

// PromptTemplate renders a named prompt with Go template syntax. The full
// sprig function map is available inside templates.
type PromptTemplate struct {
	// Name identifies the prompt in catalogs and logs.
	Name string
	// Description is a short human-readable summary.
	Description string
	// InputVariables lists the variables the template requires. Rendering
	// fails if any of them is missing.
	InputVariables []string

	tmpl *template.Template
}

// NewPromptTemplate parses the template text and returns a reusable template.
func NewPromptTemplate(name, text string, inputVariables ...string) (*PromptTemplate, error) {
	t, err := template.New(name).
		Funcs(sprig.FuncMap()).
		Option("missingkey=zero").
		Parse(text)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse prompt template %q", name)
	}
	return &PromptTemplate{
		Name:           name,
		InputVariables: inputVariables,
		tmpl:           t,
	}, nil
}

// MustNewPromptTemplate is like NewPromptTemplate but panics on parse errors.
// Use for templates declared at package level.
func MustNewPromptTemplate(name, text string, inputVariables ...string) *PromptTemplate {
	t, err := NewPromptTemplate(name, text, inputVariables...)
	if err != nil {
		panic(err)
	}
	return t
}

// Format renders the template with the given values.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, name := range p.InputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.Newf("missing prompt variable %q in template %q", name, p.Name)
		}
	}
	var buf strings.Builder
	if err := p.tmpl.Execute(&buf, values); err != nil {
		return "", errors.WithMessagef(err, "failed to render prompt template %q", p.Name)
	}
	return buf.String(), nil
}

// FormatPrompt renders the template and wraps the result as a single
// human message prompt value.
func (p *PromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	text, err := p.Format(values)
	if err != nil {
		return nil, err
	}
	return ChatPromptValue{llms.MessageFromTextParts(llms.RoleHuman, text)}, nil
}
