package sqlite

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// placeholder returns a placeholder for SQLite (uses ?)
func placeholder(_ int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func marshalAttributes(attributes map[string]string) (string, error) {
	if attributes == nil {
		attributes = map[string]string{}
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal attributes")
	}
	return string(raw), nil
}

func unmarshalAttributes(raw string) (map[string]string, error) {
	attributes := map[string]string{}
	if raw == "" {
		return attributes, nil
	}
	if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attributes")
	}
	return attributes, nil
}

// wildcardToLike converts a * wildcard expression into a LIKE pattern,
// escaping LIKE metacharacters with backslash.
func wildcardToLike(expression string) string {
	escaped := strings.ReplaceAll(expression, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `%`, `\%`)
	escaped = strings.ReplaceAll(escaped, `_`, `\_`)
	return strings.ReplaceAll(escaped, "*", "%")
}
