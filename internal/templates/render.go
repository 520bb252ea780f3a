package templates

import (
	"strings"

	"tasknotify/internal/domain"
)

// Render substitutes variables into the template body.
//
// The body is scanned once, left to right. A {name} token is replaced only when
// name is a required variable of the template and present in variables.
// Required variables that are missing stay in the output as literal {name}
// tokens. Substituted values are copied verbatim and never re-scanned, so a
// value containing {other} cannot trigger further substitution.
func Render(t Template, variables map[string]string) (string, error) {
	if t.Body == "" {
		return "", &domain.TemplateError{TemplateID: t.ID, Op: "Render", Err: domain.ErrUnknownTemplate}
	}

	body := t.Body
	var b strings.Builder
	b.Grow(len(body))

	for i := 0; i < len(body); {
		if body[i] != '{' {
			b.WriteByte(body[i])
			i++
			continue
		}

		name, end, ok := scanPlaceholder(body, i)
		if !ok {
			b.WriteByte('{')
			i++
			continue
		}

		value, supplied := variables[name]
		if supplied && t.Requires(name) {
			b.WriteString(value)
		} else {
			b.WriteString(body[i:end])
		}
		i = end
	}

	return b.String(), nil
}

// Placeholders returns the distinct placeholder names in body, in order of
// first appearance.
func Placeholders(body string) []string {
	var names []string
	seen := make(map[string]bool)

	for i := 0; i < len(body); i++ {
		if body[i] != '{' {
			continue
		}
		name, end, ok := scanPlaceholder(body, i)
		if !ok {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i = end - 1
	}

	return names
}

// scanPlaceholder parses a {identifier} token starting at body[start] == '{'.
// It returns the identifier and the index just past the closing brace.
func scanPlaceholder(body string, start int) (string, int, bool) {
	j := start + 1
	for j < len(body) && isIdentByte(body[j]) {
		j++
	}
	if j == start+1 || j >= len(body) || body[j] != '}' {
		return "", 0, false
	}
	return body[start+1 : j], j + 1, true
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
