package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// CamelToSnake converts a CamelCase string to snake_case.
// Consecutive uppercase letters (acronyms) are kept together:
// "ID" → "id", "UserID" → "user_id", "CreatedAt" → "created_at".
func CamelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				next := rune(0)
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TableName converts a type or association name to a snake_case plural
// table name. Names that are already snake_case plurals are returned as is.
// e.g. "Doctor" → "doctors", "HospitalDoctor" → "hospital_doctors".
func TableName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return inflection.Plural(CamelToSnake(name))
}

// Singular returns the singular form of a snake_case table name.
// e.g. "hospital_doctors" → "hospital_doctor".
func Singular(table string) string {
	return inflection.Singular(table)
}

// ForeignKey returns the conventional foreign key column that references
// the given table: "hospitals" → "hospital_id".
func ForeignKey(table string) string {
	if table == "" {
		return ""
	}
	return Singular(table) + "_id"
}
