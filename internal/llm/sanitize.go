package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// SanitizeOptionalFields makes a reply fit its schema where the intent is clear.
// It drops unknown keys, trims strings, turns "" and "null" in optional fields
// into null (or removes them when null is not allowed) and parses numeric strings
// where the schema wants a number. Required fields are never removed.
func SanitizeOptionalFields(doc []byte, schema map[string]any, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	out := sanitizeValue(v, schema, "", &changed)

	b, err := json.Marshal(out)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.sanitize.applied", "changed", changed)
	}
	return b, changed, nil
}

func sanitizeValue(v any, schema map[string]any, path string, changed *[]string) any {
	switch t := v.(type) {
	case map[string]any:
		props, _ := schema["properties"].(map[string]any)
		if props == nil {
			return t
		}
		required := stringSet(schema["required"])
		for k, val := range t {
			sub, ok := props[k].(map[string]any)
			if !ok {
				delete(t, k)
				*changed = append(*changed, join(path, k)+"(unknown)")
				continue
			}
			if _, req := required[k]; !req && isBlank(val) {
				if allowsType(sub, "null") {
					if val != nil {
						t[k] = nil
						*changed = append(*changed, join(path, k)+"(null)")
					}
				} else {
					delete(t, k)
					*changed = append(*changed, join(path, k)+"(empty)")
				}
				continue
			}
			t[k] = sanitizeValue(val, sub, join(path, k), changed)
		}
		return t
	case []any:
		items, _ := schema["items"].(map[string]any)
		if items == nil {
			return t
		}
		for i := range t {
			t[i] = sanitizeValue(t[i], items, fmt.Sprintf("%s[%d]", path, i), changed)
		}
		return t
	case string:
		s := strings.TrimSpace(t)
		switch {
		case allowsType(schema, "integer") && !allowsType(schema, "string"):
			if n, err := strconv.Atoi(s); err == nil {
				*changed = append(*changed, path+"(int)")
				return n
			}
		case allowsType(schema, "number") && !allowsType(schema, "string"):
			if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
				*changed = append(*changed, path+"(number)")
				return f
			}
		}
		return s
	}
	return v
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "null")
	}
	return false
}

func allowsType(schema map[string]any, typ string) bool {
	switch t := schema["type"].(type) {
	case string:
		return t == typ
	case []any:
		return slices.Contains(t, any(typ))
	case []string:
		return slices.Contains(t, typ)
	}
	return false
}

func stringSet(v any) map[string]struct{} {
	out := map[string]struct{}{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			out[s] = struct{}{}
		}
	case []any:
		for _, s := range t {
			if str, ok := s.(string); ok {
				out[str] = struct{}{}
			}
		}
	}
	return out
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
