package analyzer

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// NamingAnalyzer checks table, column and index identifiers against the naming conventions
type NamingAnalyzer struct {
	Config *config.AnalysisConfig
	Logger *logrus.Logger
}

// NewNamingAnalyzer creates a new naming analyzer
func NewNamingAnalyzer(cfg *config.AnalysisConfig, logger *logrus.Logger) *NamingAnalyzer {
	return &NamingAnalyzer{
		Config: cfg,
		Logger: logger,
	}
}

// Category returns the naming category
func (na *NamingAnalyzer) Category() models.Category {
	return models.CategoryNaming
}

// Checks returns the naming detectors in reporting order
func (na *NamingAnalyzer) Checks() []Check {
	return []Check{
		{Name: "table", Run: na.CheckTable},
		{Name: "columns", Run: na.CheckColumns},
		{Name: "indexes", Run: na.CheckIndexes},
	}
}

// CheckTable flags table names that are not PascalCase
func (na *NamingAnalyzer) CheckTable(table *models.TableMetadata) []models.Finding {
	if naming.IsValidTableName(table.Name) {
		return nil
	}

	return []models.Finding{{
		Kind:        models.KindRenameTable,
		Severity:    models.SeverityMedium,
		Category:    models.CategoryNaming,
		Table:       table.Name,
		Description: fmt.Sprintf("Table '%s' doesn't follow PascalCase convention (e.g. UserProfiles)", table.Name),
		Data: map[string]interface{}{
			"current_name":   table.Name,
			"suggested_name": naming.StandardizeTableName(table.Name),
		},
	}}
}

// CheckColumns flags primary key, foreign-key-shaped and plain columns that break their convention
func (na *NamingAnalyzer) CheckColumns(table *models.TableMetadata) []models.Finding {
	var findings []models.Finding

	primaryColumns := 0
	for _, col := range table.Columns {
		if col.KeyRole == models.KeyPrimary {
			primaryColumns++
		}
	}

	for _, col := range table.Columns {
		var suggested, description string
		severity := models.SeverityLow

		switch {
		// parts of a composite key cannot all be renamed to "id"
		case col.KeyRole == models.KeyPrimary && primaryColumns == 1:
			if naming.IsValidPrimaryKeyName(col.Name) {
				continue
			}
			suggested = "id"
			severity = models.SeverityMedium
			description = fmt.Sprintf("Primary key column '%s' should be named 'id'", col.Name)
		case naming.IsForeignKeyShaped(col.Name, na.Config.ForeignKeyColumnHeuristic):
			if naming.IsValidForeignKeyName(col.Name) {
				continue
			}
			suggested = naming.StandardizeForeignKeyName(col.Name)
			severity = models.SeverityMedium
			description = fmt.Sprintf("Foreign key column '%s' should be snake_case ending in '_id'", col.Name)
		default:
			if naming.IsValidColumnName(col.Name) {
				continue
			}
			suggested = naming.StandardizeColumnName(col.Name)
			description = fmt.Sprintf("Column '%s' doesn't follow snake_case convention", col.Name)
		}

		if suggested == col.Name {
			continue
		}

		data := map[string]interface{}{
			"current_name":   col.Name,
			"suggested_name": suggested,
		}
		if def, ok := col.Definition(col.ColumnType); ok {
			data["definition"] = def
		}

		findings = append(findings, models.Finding{
			Kind:        models.KindRenameColumn,
			Severity:    severity,
			Category:    models.CategoryNaming,
			Table:       table.Name,
			Description: description,
			Data:        data,
		})
	}

	return findings
}

// CheckIndexes flags indexes carrying the right prefix but a body that is not snake_case.
// Indexes with the wrong prefix are reported by the index analyzer.
func (na *NamingAnalyzer) CheckIndexes(table *models.TableMetadata) []models.Finding {
	var findings []models.Finding

	for _, idx := range table.Indexes {
		if idx.IsPrimary {
			continue
		}

		columns := nonEmpty(idx.Columns)
		prefix := naming.ExpectedIndexPrefix(idx.Unique, columns)
		if !strings.HasPrefix(idx.Name, prefix) || naming.IsValidIndexName(idx.Name, prefix) {
			continue
		}

		newName := naming.GenerateIndexName(prefix, table.Name, columns)
		if newName == idx.Name {
			continue
		}

		findings = append(findings, models.Finding{
			Kind:        models.KindRenameIndex,
			Severity:    models.SeverityLow,
			Category:    models.CategoryNaming,
			Table:       table.Name,
			Description: fmt.Sprintf("Index '%s' doesn't follow snake_case after its '%s' prefix", idx.Name, prefix),
			Data: map[string]interface{}{
				"old_name": idx.Name,
				"new_name": newName,
				"reason":   prefixConvention(prefix),
			},
		})
	}

	return findings
}
