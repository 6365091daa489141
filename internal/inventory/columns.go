package inventory

import (
	"strings"
	"unicode"
)

// sortable is the closed set of char_inventory columns a caller may order by.
var sortable = map[string]struct{}{
	"id":            {},
	"char_name":     {},
	"char_guild":    {},
	"item_name":     {},
	"item_count":    {},
	"item_location": {},
}

var columnAliases = map[string]string{
	"name":      "char_name",
	"character": "char_name",
	"guild":     "char_guild",
	"item":      "item_name",
	"count":     "item_count",
	"quantity":  "item_count",
	"location":  "item_location",
}

// NormalizeColumn maps an external field name (charName, item-count,
// "Item Location") onto a real column. ok is false for anything outside
// the allow-list.
func NormalizeColumn(external string) (string, bool) {
	name := toSnake(strings.TrimSpace(external))
	if name == "" {
		return "", false
	}
	if alias, found := columnAliases[name]; found {
		name = alias
	}
	if _, found := sortable[name]; !found {
		return "", false
	}
	return name, true
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	prevLower := false
	for _, r := range s {
		switch {
		case r == '-' || r == ' ' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower = true
		default:
			// anything else cannot be part of a column name
			return ""
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
