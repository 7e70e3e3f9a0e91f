// Package querytemplate compiles {{param}}-templated SQL text into a
// positional prepared statement, rewriting IN (...)/NOT IN (...) against
// array-typed parameters into = ANY(...)/<> ALL(...), so the driver binds
// the array as a single positional argument.
package querytemplate

import (
	"fmt"
	"regexp"

	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
)

// CompiledStatement is the output of Compile: text with $k placeholders
// plus the positional argument list.
type CompiledStatement struct {
	Text string
	Args []any
}

var markerPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Compile scans template left-to-right for {{name}} markers, replacing
// each with a positional $n placeholder bound to params[name], then
// rewrites IN/NOT IN against array-typed placeholders into the ANY/ALL
// array-operator form.
//
// isArray reports, for a given parameter name, whether it should be
// treated as an array placeholder (schema says "array", or the resolved
// value itself is a slice) — the batch executor supplies this from the
// parameter schema plus the resolved value's Go type.
func Compile(template string, params map[string]any, isArray func(name string) bool) (CompiledStatement, error) {
	var args []any
	arrayPlaceholders := make(map[string]struct{})

	var missing string
	text := markerPattern.ReplaceAllStringFunc(template, func(match string) string {
		if missing != "" {
			return match
		}
		name := markerPattern.FindStringSubmatch(match)[1]
		val, ok := params[name]
		if !ok {
			missing = name
			return match
		}
		args = append(args, val)
		placeholder := fmt.Sprintf("$%d", len(args))
		if isArray != nil && isArray(name) {
			arrayPlaceholders[placeholder] = struct{}{}
		}
		return placeholder
	})

	if missing != "" {
		return CompiledStatement{}, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' não foi informado", missing))
	}

	for placeholder := range arrayPlaceholders {
		text = rewriteArrayOperators(text, placeholder)
	}

	return CompiledStatement{Text: text, Args: args}, nil
}

// notInRewrite and inRewrite match "NOT IN ( $k [::cast] )" / "IN (...)"
// case-insensitively, tolerating whitespace, and capture an optional
// trailing SQL cast suffix on the placeholder which is preserved verbatim
// in the rewritten text. This is deliberately a textual rewrite, not a
// SQL-aware one — see DESIGN.md's Open Question decision on
// context-insensitivity (it will rewrite occurrences inside string
// literals or comments too).
func rewriteArrayOperators(text, placeholder string) string {
	quoted := regexp.QuoteMeta(placeholder)

	notInRe := regexp.MustCompile(`(?i)NOT\s+IN\s*\(\s*` + quoted + `(::[a-zA-Z0-9_\[\]]+)?\s*\)`)
	text = notInRe.ReplaceAllString(text, "<> ALL("+placeholder+"$1)")

	inRe := regexp.MustCompile(`(?i)\bIN\s*\(\s*` + quoted + `(::[a-zA-Z0-9_\[\]]+)?\s*\)`)
	text = inRe.ReplaceAllString(text, "= ANY("+placeholder+"$1)")

	return text
}
