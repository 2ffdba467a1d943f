package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyRole is the role a column plays in the table's keys
type KeyRole string

const (
	KeyNone     KeyRole = ""
	KeyPrimary  KeyRole = "PRI"
	KeyUnique   KeyRole = "UNI"
	KeyMultiple KeyRole = "MUL"
)

// ColumnInfo represents a table column as read from the catalog
type ColumnInfo struct {
	Name       string
	DataType   string
	ColumnType string
	IsNullable bool
	Default    *string
	Extra      string
	KeyRole    KeyRole
	MaxLength  *int64
	Comment    string
}

// IsAutoIncrement reports whether the column carries the auto_increment flag
func (c ColumnInfo) IsAutoIncrement() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// Definition renders the column attributes after the name, as used by
// CHANGE COLUMN and MODIFY COLUMN, with columnType replacing the declared type.
// Returns false when the definition cannot be rebuilt from catalog data
// (unknown type, or a generated column whose expression is not captured).
func (c ColumnInfo) Definition(columnType string) (string, bool) {
	if columnType == "" {
		return "", false
	}

	extra := strings.TrimSpace(c.Extra)
	upperExtra := strings.ToUpper(extra)
	if strings.Contains(upperExtra, "VIRTUAL GENERATED") || strings.Contains(upperExtra, "STORED GENERATED") {
		return "", false
	}
	defaultGenerated := strings.Contains(upperExtra, "DEFAULT_GENERATED")

	parts := []string{columnType}
	if c.IsNullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}

	if c.Default != nil {
		parts = append(parts, "DEFAULT "+defaultLiteral(*c.Default, defaultGenerated))
	}

	if defaultGenerated {
		idx := strings.Index(upperExtra, "DEFAULT_GENERATED")
		extra = strings.TrimSpace(extra[:idx] + extra[idx+len("DEFAULT_GENERATED"):])
	}
	if extra != "" {
		parts = append(parts, extra)
	}

	if c.Comment != "" {
		parts = append(parts, "COMMENT "+QuoteString(c.Comment))
	}
	return strings.Join(parts, " "), true
}

func defaultLiteral(value string, generated bool) string {
	upper := strings.ToUpper(value)
	switch {
	case upper == "NULL":
		return "NULL"
	case strings.HasPrefix(upper, "CURRENT_TIMESTAMP"):
		return value
	case generated:
		return "(" + value + ")"
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	return QuoteString(value)
}

// QuoteString renders a single-quoted SQL string literal
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IndexInfo represents one index of a table with its ordered columns
type IndexInfo struct {
	Name        string
	Columns     []string
	Unique      bool
	IsPrimary   bool
	Method      string
	Cardinality []int64
	Comment     string
}

// PrimaryIndexName is the name MySQL always gives the primary key index
const PrimaryIndexName = "PRIMARY"

// CardinalitySum returns the summed per-column cardinality estimates
func (i IndexInfo) CardinalitySum() int64 {
	var sum int64
	for _, c := range i.Cardinality {
		sum += c
	}
	return sum
}

// ForeignKeyInfo represents one column of a foreign key constraint
type ForeignKeyInfo struct {
	ConstraintName   string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	UpdateRule       string
	DeleteRule       string
}

// TableStatus holds table-level storage settings and sizes
type TableStatus struct {
	Engine        string
	Collation     string
	AutoIncrement *int64
	RowFormat     string
	CreateOptions string
	DataLength    int64
	IndexLength   int64
	DataFree      int64
	Comment       string
}

// IndexUsage is the observed fetch activity of one index
type IndexUsage struct {
	Table      string
	Index      string
	CountFetch int64
}

// Signal is an optional input that may be unavailable (disabled source, failed fetch)
type Signal[T any] struct {
	Value     T
	Available bool
	Reason    string
}

// Present wraps an available value
func Present[T any](value T) Signal[T] {
	return Signal[T]{Value: value, Available: true}
}

// Unavailable marks a signal as absent with the reason it could not be read
func Unavailable[T any](reason string) Signal[T] {
	return Signal[T]{Reason: reason}
}

// Or returns the value if available, the fallback otherwise
func (s Signal[T]) Or(fallback T) T {
	if s.Available {
		return s.Value
	}
	return fallback
}

// TableMetadata is the point-in-time catalog snapshot of one table
type TableMetadata struct {
	Name        string
	Status      *TableStatus
	Columns     []ColumnInfo
	Indexes     []IndexInfo
	ForeignKeys []ForeignKeyInfo
	RowCount    Signal[int64]
	IndexUsage  Signal[[]IndexUsage]
}

// IndexColumnSets returns the column list of every index, primary included
func (t *TableMetadata) IndexColumnSets() [][]string {
	sets := make([][]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		sets = append(sets, idx.Columns)
	}
	return sets
}

// Severity of a finding
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from low (0) to critical (3); unknown values rank -1
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// ParseSeverity parses a severity name case-insensitively
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if s.Rank() < 0 {
		return "", fmt.Errorf("unknown severity %q (expected low, medium, high or critical)", value)
	}
	return s, nil
}

// FindingKind is the closed set of finding types
type FindingKind string

const (
	KindRenameIndex         FindingKind = "RENAME_INDEX"
	KindDropIndex           FindingKind = "DROP_INDEX"
	KindLowCardinalityIndex FindingKind = "LOW_CARDINALITY_INDEX"
	KindAlterEngine         FindingKind = "ALTER_ENGINE"
	KindAlterCharset        FindingKind = "ALTER_CHARSET"
	KindAlterRowFormat      FindingKind = "ALTER_ROW_FORMAT"
	KindAlterColumnType     FindingKind = "ALTER_COLUMN_TYPE"
	KindCreateIndex         FindingKind = "CREATE_INDEX"
	KindOptimizeIndexes     FindingKind = "OPTIMIZE_INDEXES"
	KindOptimizeTable       FindingKind = "OPTIMIZE_TABLE"
	KindRenameTable         FindingKind = "RENAME_TABLE"
	KindRenameColumn        FindingKind = "RENAME_COLUMN"
	KindCircularForeignKey  FindingKind = "CIRCULAR_FOREIGN_KEY"
)

// Category names the analyzer a finding originates from
type Category string

const (
	CategorySchema      Category = "schema"
	CategoryIndex       Category = "index"
	CategoryPerformance Category = "performance"
	CategoryNaming      Category = "naming"
)

// Categories lists every category in patch order
var Categories = []Category{CategorySchema, CategoryIndex, CategoryPerformance, CategoryNaming}

// ParseCategory parses a category name
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", value)
}

// Finding is one typed observation produced by a detector
type Finding struct {
	Kind        FindingKind
	Severity    Severity
	Category    Category
	Table       string
	Description string
	Data        map[string]interface{}
}

// String returns a string payload value, or "" when missing
func (f Finding) String(key string) string {
	if v, ok := f.Data[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// Strings returns a string-slice payload value, or nil when missing
func (f Finding) Strings(key string) []string {
	if v, ok := f.Data[key].([]string); ok {
		return v
	}
	return nil
}

// Float returns a numeric payload value as float64
func (f Finding) Float(key string) float64 {
	switch v := f.Data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// SortedTables returns the keys of a per-table findings map in name order
func SortedTables(findings map[string][]Finding) []string {
	tables := make([]string, 0, len(findings))
	for table := range findings {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}
