package analyzer

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// Recommended table settings
const (
	RecommendedEngine    = "InnoDB"
	RecommendedCharset   = "utf8mb4"
	RecommendedCollation = "utf8mb4_unicode_ci"
	RecommendedRowFormat = "DYNAMIC"
)

const (
	largeTableBytes      = 1 << 30
	maxIndexToDataRatio  = 2.0
	overflowWarnFraction = 0.7
	overflowCriticalPct  = 90.0
)

// integerWidth describes an auto-increment column type that can run out of values
type integerWidth struct {
	maxValue  int64
	widerType string
}

// signed and unsigned ranges; BIGINT and anything else is considered safe
var integerWidths = map[string][2]integerWidth{
	"TINYINT":  {{127, "SMALLINT"}, {255, "SMALLINT"}},
	"SMALLINT": {{32767, "INT"}, {65535, "INT"}},
	"INT":      {{2147483647, "BIGINT"}, {4294967295, "BIGINT"}},
}

// SchemaAnalyzer checks table-level storage settings, key capacity and foreign key indexing
type SchemaAnalyzer struct {
	Config *config.AnalysisConfig
	Logger *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(cfg *config.AnalysisConfig, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		Config: cfg,
		Logger: logger,
	}
}

// Category returns the schema category
func (sa *SchemaAnalyzer) Category() models.Category {
	return models.CategorySchema
}

// Checks returns the schema detectors in reporting order
func (sa *SchemaAnalyzer) Checks() []Check {
	return []Check{
		{Name: "engine", Run: sa.CheckEngine},
		{Name: "charset", Run: sa.CheckCharset},
		{Name: "row_format", Run: sa.CheckRowFormat},
		{Name: "auto_increment", Run: sa.CheckAutoIncrement},
		{Name: "foreign_key_indexes", Run: sa.CheckForeignKeyIndexes},
		{Name: "size", Run: sa.CheckSize},
	}
}

// CheckEngine flags tables not stored in InnoDB
func (sa *SchemaAnalyzer) CheckEngine(table *models.TableMetadata) []models.Finding {
	if table.Status == nil || table.Status.Engine == "" {
		return nil
	}
	engine := table.Status.Engine
	if strings.EqualFold(engine, RecommendedEngine) {
		return nil
	}

	return []models.Finding{{
		Kind:        models.KindAlterEngine,
		Severity:    models.SeverityHigh,
		Category:    models.CategorySchema,
		Table:       table.Name,
		Description: fmt.Sprintf("Table '%s' uses '%s' engine. Should use '%s' for transactions and row-level locking.", table.Name, engine, RecommendedEngine),
		Data: map[string]interface{}{
			"current_engine":     strings.ToUpper(engine),
			"recommended_engine": RecommendedEngine,
		},
	}}
}

// CheckCharset flags collations outside utf8mb4
func (sa *SchemaAnalyzer) CheckCharset(table *models.TableMetadata) []models.Finding {
	if table.Status == nil || table.Status.Collation == "" {
		return nil
	}
	collation := table.Status.Collation
	if strings.HasPrefix(collation, RecommendedCharset) {
		return nil
	}

	charset := "unknown"
	if strings.HasPrefix(collation, "utf8") {
		charset = "utf8"
	}

	return []models.Finding{{
		Kind:        models.KindAlterCharset,
		Severity:    models.SeverityMedium,
		Category:    models.CategorySchema,
		Table:       table.Name,
		Description: fmt.Sprintf("Table '%s' uses '%s' collation. Should use '%s' charset for full Unicode support.", table.Name, collation, RecommendedCharset),
		Data: map[string]interface{}{
			"current_collation":     collation,
			"current_charset":       charset,
			"recommended_charset":   RecommendedCharset,
			"recommended_collation": RecommendedCollation,
		},
	}}
}

// CheckRowFormat flags row formats other than DYNAMIC or COMPRESSED
func (sa *SchemaAnalyzer) CheckRowFormat(table *models.TableMetadata) []models.Finding {
	if table.Status == nil {
		return nil
	}
	rowFormat := strings.ToUpper(strings.TrimSpace(table.Status.RowFormat))
	if rowFormat == "" || rowFormat == "DYNAMIC" || rowFormat == "COMPRESSED" {
		return nil
	}

	return []models.Finding{{
		Kind:        models.KindAlterRowFormat,
		Severity:    models.SeverityLow,
		Category:    models.CategorySchema,
		Table:       table.Name,
		Description: fmt.Sprintf("Table '%s' uses '%s' row format. Consider '%s' for variable-length columns.", table.Name, rowFormat, RecommendedRowFormat),
		Data: map[string]interface{}{
			"current_row_format":     rowFormat,
			"recommended_row_format": RecommendedRowFormat,
		},
	}}
}

// CheckAutoIncrement flags auto-increment counters past 70% of their column type's range
func (sa *SchemaAnalyzer) CheckAutoIncrement(table *models.TableMetadata) []models.Finding {
	if table.Status == nil || table.Status.AutoIncrement == nil {
		return nil
	}

	var column *models.ColumnInfo
	for i := range table.Columns {
		if table.Columns[i].IsAutoIncrement() {
			column = &table.Columns[i]
			break
		}
	}
	if column == nil {
		return nil
	}

	dataType := strings.ToUpper(column.DataType)
	widths, ok := integerWidths[dataType]
	if !ok {
		return nil
	}
	unsigned := strings.Contains(strings.ToLower(column.ColumnType), "unsigned")
	width := widths[0]
	if unsigned {
		width = widths[1]
	}

	current := *table.Status.AutoIncrement
	if float64(current) <= float64(width.maxValue)*overflowWarnFraction {
		return nil
	}

	percentage := float64(current) / float64(width.maxValue) * 100
	severity := models.SeverityHigh
	if percentage > overflowCriticalPct {
		severity = models.SeverityCritical
	}

	newType := width.widerType
	if unsigned {
		newType += " UNSIGNED"
	}
	data := map[string]interface{}{
		"column":          column.Name,
		"current_type":    dataType,
		"new_type":        newType,
		"current_value":   current,
		"max_value":       width.maxValue,
		"percentage_used": percentage,
	}
	if def, ok := column.Definition(newType); ok {
		data["new_definition"] = def
	}

	return []models.Finding{{
		Kind:     models.KindAlterColumnType,
		Severity: severity,
		Category: models.CategorySchema,
		Table:    table.Name,
		Description: fmt.Sprintf("Auto-increment column '%s' in table '%s' is at %d (%.1f%% of %s max value). Risk of overflow.",
			column.Name, table.Name, current, percentage, dataType),
		Data: data,
	}}
}

// CheckForeignKeyIndexes flags foreign key columns that no index leads with.
// Each column of a composite foreign key is checked on its own.
func (sa *SchemaAnalyzer) CheckForeignKeyIndexes(table *models.TableMetadata) []models.Finding {
	var findings []models.Finding
	columnSets := table.IndexColumnSets()

	for _, fk := range table.ForeignKeys {
		if leadsAnyIndex(fk.Column, columnSets) {
			continue
		}

		indexName := naming.TruncateIdentifier(fmt.Sprintf("%s%s_%s", naming.ForeignKeyPrefix, table.Name, strings.TrimSuffix(fk.Column, "_id")))
		findings = append(findings, models.Finding{
			Kind:     models.KindCreateIndex,
			Severity: models.SeverityHigh,
			Category: models.CategorySchema,
			Table:    table.Name,
			Description: fmt.Sprintf("Foreign key column '%s' in table '%s' is not indexed. Parent table updates and deletes will scan this table.",
				fk.Column, table.Name),
			Data: map[string]interface{}{
				"column":               fk.Column,
				"constraint_name":      fk.ConstraintName,
				"referenced_table":     fk.ReferencedTable,
				"referenced_column":    fk.ReferencedColumn,
				"suggested_index_name": indexName,
			},
		})
	}

	return findings
}

// CheckSize flags tables over 1 GiB whose indexes outweigh their data more than twice
func (sa *SchemaAnalyzer) CheckSize(table *models.TableMetadata) []models.Finding {
	if table.Status == nil {
		return nil
	}
	dataLength := table.Status.DataLength
	indexLength := table.Status.IndexLength
	total := dataLength + indexLength
	if total <= largeTableBytes || dataLength <= 0 {
		return nil
	}

	ratio := float64(indexLength) / float64(dataLength)
	if ratio <= maxIndexToDataRatio {
		return nil
	}

	sizeGB := float64(total) / float64(largeTableBytes)
	return []models.Finding{{
		Kind:     models.KindOptimizeIndexes,
		Severity: models.SeverityMedium,
		Category: models.CategorySchema,
		Table:    table.Name,
		Description: fmt.Sprintf("Table '%s' (%.2fGB) has a high index-to-data ratio (%.2f). Consider reviewing index usage.",
			table.Name, sizeGB, ratio),
		Data: map[string]interface{}{
			"total_size_gb":  sizeGB,
			"index_ratio":    ratio,
			"recommendation": "Review and remove unused indexes",
		},
	}}
}

func leadsAnyIndex(column string, columnSets [][]string) bool {
	for _, columns := range columnSets {
		if len(columns) > 0 && columns[0] == column {
			return true
		}
	}
	return false
}
