// Package paramschema resolves a per-query parameter bundle against a
// JSON-schema-like declaration: precedence between provided/default/
// auto-default values, then type coercion and validation.
package paramschema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
)

// Entry declares one parameter's type and constraints. No external
// JSON-schema library is used — see DESIGN.md for why a plain struct plus
// explicit switch-based coercion is the grounded choice here.
type Entry struct {
	Type     string  `json:"type"`
	Required bool    `json:"required"`
	Enum     []any   `json:"enum,omitempty"`
	Minimum  *float64 `json:"minimum,omitempty"`
	Maximum  *float64 `json:"maximum,omitempty"`
	Items    *Entry   `json:"items,omitempty"`
	Default  any      `json:"default,omitempty"`
}

const dateLayout = "2006-01-02"

var (
	startNamePattern = regexp.MustCompile(`(?i)inicio|início|start|begin`)
	endNamePattern   = regexp.MustCompile(`(?i)fim|final|end`)
)

var log = logrus.WithField("component", "paramschema")

// ResolveParams implements the precedence/auto-default/coerce/validate
// pipeline for every name declared in schema, returning the effective
// parameter bundle. Extra entries in provided but absent from schema are
// passed through unchanged (logged as a warning).
func ResolveParams(schema map[string]Entry, defaults map[string]any, provided map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(schema)+len(provided))

	for name, entry := range schema {
		value, has := provided[name]
		if !has {
			value, has = defaults[name]
		}
		if !has {
			value, has = autoDefault(name, entry)
		}
		if !has {
			if entry.Required {
				return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro obrigatório ausente: %s", name))
			}
			continue
		}

		coerced, err := coerce(name, entry, value)
		if err != nil {
			return nil, err
		}
		result[name] = coerced
	}

	for name, value := range provided {
		if _, declared := schema[name]; !declared {
			log.WithField("param", name).Warn("parâmetro extra não declarado no schema, repassando")
			result[name] = value
		}
	}

	return result, nil
}

func autoDefault(name string, entry Entry) (any, bool) {
	switch entry.Type {
	case "date":
		today := time.Now().UTC()
		switch {
		case startNamePattern.MatchString(name):
			return today.AddDate(0, 0, -30).Format(dateLayout), true
		case endNamePattern.MatchString(name):
			return today.Format(dateLayout), true
		default:
			return today.Format(dateLayout), true
		}
	case "number":
		if entry.Minimum != nil {
			return *entry.Minimum, true
		}
		if entry.Maximum != nil && *entry.Maximum < 1000 {
			return *entry.Maximum, true
		}
		return float64(0), true
	case "array":
		if entry.Items != nil && len(entry.Items.Enum) > 0 {
			return append([]any{}, entry.Items.Enum...), true
		}
		return nil, false
	default:
		return nil, false
	}
}

func coerce(name string, entry Entry, value any) (any, error) {
	switch entry.Type {
	case "number":
		return coerceNumber(name, entry, value)
	case "date":
		return coerceDate(name, value)
	case "boolean":
		return coerceBoolean(name, value)
	case "array":
		return coerceArray(name, entry, value)
	default:
		return coerceString(name, entry, value)
	}
}

func coerceNumber(name string, entry Entry, value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser numérico", name))
		}
		n = parsed
	default:
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser numérico", name))
	}
	if entry.Minimum != nil && n < *entry.Minimum {
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' abaixo do mínimo permitido", name))
	}
	if entry.Maximum != nil && n > *entry.Maximum {
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' acima do máximo permitido", name))
	}
	if len(entry.Enum) > 0 && !enumContains(entry.Enum, n) {
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' fora dos valores permitidos", name))
	}
	return n, nil
}

func coerceDate(name string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		if _, err := time.Parse(dateLayout, v); err == nil {
			return v, nil
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed.Format(dateLayout), nil
		}
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser uma data válida", name))
	case time.Time:
		return v.Format(dateLayout), nil
	default:
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser uma data válida", name))
	}
}

func coerceBoolean(name string, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser booleano", name))
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser booleano", name))
	}
}

func coerceString(name string, entry Entry, value any) (any, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	default:
		s = fmt.Sprintf("%v", v)
	}
	if len(entry.Enum) > 0 && !enumContains(entry.Enum, s) {
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' fora dos valores permitidos", name))
	}
	return s, nil
}

func coerceArray(name string, entry Entry, value any) (any, error) {
	var rawItems []any
	switch v := value.(type) {
	case []any:
		rawItems = v
	case []string:
		for _, s := range v {
			rawItems = append(rawItems, s)
		}
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' não pode ser vazio", name))
		}
		for _, part := range strings.Split(v, ",") {
			rawItems = append(rawItems, strings.TrimSpace(part))
		}
	default:
		return nil, apierr.BadRequest(fmt.Sprintf("Parâmetro '%s' deve ser uma lista", name))
	}

	if entry.Items == nil {
		return rawItems, nil
	}

	out := make([]any, 0, len(rawItems))
	for _, item := range rawItems {
		coerced, err := coerce(name, *entry.Items, item)
		if err != nil {
			return nil, err
		}
		out = append(out, coerced)
	}
	return out, nil
}

func enumContains(enum []any, value any) bool {
	for _, candidate := range enum {
		if fmt.Sprintf("%v", candidate) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}
