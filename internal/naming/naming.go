package naming

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxIdentifierLength is MySQL's identifier length ceiling
const MaxIdentifierLength = 64

// Index name prefixes
const (
	UniquePrefix     = "uk_"
	ForeignKeyPrefix = "fk_"
	RegularPrefix    = "idx_"
)

// Convention patterns
var (
	TablePattern      = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	ColumnPattern     = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$`)
	PrimaryKeyPattern = regexp.MustCompile(`^id$`)
	ForeignKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*_id$`)
)

var (
	tableStripPattern = regexp.MustCompile(`[^a-zA-Z0-9_\s-]`)
	tableSplitPattern = regexp.MustCompile(`[_\s-]+`)
	camelBoundary     = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonSnakeChars     = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnder     = regexp.MustCompile(`_+`)
)

// Heuristic selects how a column is recognized as foreign-key shaped
type Heuristic string

const (
	// HeuristicSubstring: ends with "_id" or contains "id" case-insensitively.
	// Also matches words like "valid", "width" and "paid".
	HeuristicSubstring Heuristic = "substring"
	// HeuristicSuffix: ends with "_id"
	HeuristicSuffix Heuristic = "suffix"
)

// ParseHeuristic validates a heuristic name; empty selects the substring variant
func ParseHeuristic(value string) (Heuristic, bool) {
	switch Heuristic(strings.ToLower(strings.TrimSpace(value))) {
	case "", HeuristicSubstring:
		return HeuristicSubstring, true
	case HeuristicSuffix:
		return HeuristicSuffix, true
	}
	return "", false
}

// IsValidTableName checks the PascalCase table convention
func IsValidTableName(name string) bool {
	return TablePattern.MatchString(name)
}

// IsValidColumnName checks the snake_case column convention
func IsValidColumnName(name string) bool {
	return ColumnPattern.MatchString(name)
}

// IsValidPrimaryKeyName checks that a primary key column is named "id"
func IsValidPrimaryKeyName(name string) bool {
	return PrimaryKeyPattern.MatchString(name)
}

// IsValidForeignKeyName checks the snake_case "_id" foreign key column convention
func IsValidForeignKeyName(name string) bool {
	return ForeignKeyPattern.MatchString(name)
}

// IsForeignKeyShaped reports whether a non-primary column looks like a foreign key
func IsForeignKeyShaped(name string, h Heuristic) bool {
	if strings.HasSuffix(name, "_id") {
		return true
	}
	if h == HeuristicSuffix {
		return false
	}
	return strings.Contains(strings.ToLower(name), "id")
}

// ExpectedIndexPrefix derives the prefix an index name should carry
func ExpectedIndexPrefix(unique bool, columns []string) string {
	if unique {
		return UniquePrefix
	}
	if len(columns) == 1 && strings.HasSuffix(columns[0], "_id") {
		return ForeignKeyPrefix
	}
	return RegularPrefix
}

// IsValidIndexName checks that name carries prefix followed by a snake_case body
func IsValidIndexName(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	body := name[len(prefix):]
	if body == "" || body[0] < 'a' || body[0] > 'z' {
		return false
	}
	for i := 1; i < len(body); i++ {
		c := body[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}

// StandardizeTableName converts a name to PascalCase
func StandardizeTableName(name string) string {
	name = tableStripPattern.ReplaceAllString(name, "")

	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, part := range tableSplitPattern.Split(name, -1) {
		if part == "" {
			continue
		}
		b.WriteString(title.String(part))
	}
	result := b.String()

	if result != "" {
		r, size := utf8.DecodeRuneInString(result)
		if !unicode.IsUpper(r) {
			result = string(unicode.ToUpper(r)) + result[size:]
		}
	}

	if result == "" || !isASCIILetter(result[0]) {
		result = "Table" + result
	}
	return result
}

// StandardizeColumnName converts a name to snake_case
func StandardizeColumnName(name string) string {
	name = camelBoundary.ReplaceAllString(name, "${1}_${2}")
	name = strings.ToLower(name)
	name = nonSnakeChars.ReplaceAllString(name, "_")
	name = repeatedUnder.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name != "" && !isASCIILetter(name[0]) {
		name = "col_" + name
	}

	// the convention needs at least two characters
	switch len(name) {
	case 0:
		return "col"
	case 1:
		return "col_" + name
	}
	return name
}

// StandardizeForeignKeyName converts a name to snake_case ending in "_id"
func StandardizeForeignKeyName(name string) string {
	name = StandardizeColumnName(name)
	if !strings.HasSuffix(name, "_id") {
		name += "_id"
	}
	return name
}

// GenerateIndexName builds {prefix}{table}_{columns} from snake_cased parts,
// never exceeding MaxIdentifierLength
func GenerateIndexName(prefix, table string, columns []string) string {
	tableSnake := StandardizeColumnName(table)
	var parts []string
	for _, col := range columns {
		if col == "" {
			continue
		}
		parts = append(parts, StandardizeColumnName(col))
	}
	columnPart := strings.Join(parts, "_")

	name := prefix + tableSnake + "_" + columnPart
	if len(name) <= MaxIdentifierLength {
		return name
	}

	half := max(MaxIdentifierLength-len(prefix), 0) / 2
	name = prefix + truncate(tableSnake, half) + "_" + truncate(columnPart, half)
	return TruncateIdentifier(name)
}

// SuggestIndexName builds {prefix}{table}_{columns} from the raw identifiers.
// When too long, the budget left after prefix and separator is split evenly
// between the table part and the column part.
func SuggestIndexName(prefix, table string, columns []string) string {
	columnPart := strings.Join(columns, "_")
	name := prefix + table + "_" + columnPart
	if len(name) <= MaxIdentifierLength {
		return name
	}

	half := max(MaxIdentifierLength-len(prefix)-1, 0) / 2
	name = prefix + truncate(table, half) + "_" + truncate(columnPart, half)
	return TruncateIdentifier(name)
}

// TruncateIdentifier cuts names over the ceiling to 60 characters plus "_etc"
func TruncateIdentifier(name string) string {
	if len(name) <= MaxIdentifierLength {
		return name
	}
	return truncate(name, MaxIdentifierLength-4) + "_etc"
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
