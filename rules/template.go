package rules

import "strings"

// RenderTemplate substitutes {{name}} placeholders in a message template with
// the given values. Placeholders with no matching value are left as literal
// text so a bad template degrades the message instead of failing the rule.
func RenderTemplate(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
