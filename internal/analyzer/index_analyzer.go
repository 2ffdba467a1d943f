package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// lowSelectivity is the average-cardinality-to-rows ratio below which an index filters too little
const lowSelectivity = 0.10

// cardinalityAdvantage is how much more selective a covering index must be to justify keeping both
const cardinalityAdvantage = 1.5

// IndexAnalyzer checks index naming, redundancy and selectivity
type IndexAnalyzer struct {
	Config *config.AnalysisConfig
	Logger *logrus.Logger
}

// NewIndexAnalyzer creates a new index analyzer
func NewIndexAnalyzer(cfg *config.AnalysisConfig, logger *logrus.Logger) *IndexAnalyzer {
	return &IndexAnalyzer{
		Config: cfg,
		Logger: logger,
	}
}

// Category returns the index category
func (ia *IndexAnalyzer) Category() models.Category {
	return models.CategoryIndex
}

// Checks returns the index detectors in reporting order
func (ia *IndexAnalyzer) Checks() []Check {
	return []Check{
		{Name: "naming", Run: ia.CheckNaming},
		{Name: "redundancy", Run: ia.CheckRedundancy},
		{Name: "cardinality", Run: ia.CheckLowCardinality},
	}
}

// CheckNaming flags non-primary indexes missing the prefix their shape calls for
func (ia *IndexAnalyzer) CheckNaming(table *models.TableMetadata) []models.Finding {
	var findings []models.Finding

	for _, idx := range table.Indexes {
		if idx.IsPrimary {
			continue
		}

		columns := nonEmpty(idx.Columns)
		prefix := naming.ExpectedIndexPrefix(idx.Unique, columns)
		if strings.HasPrefix(idx.Name, prefix) {
			continue
		}

		newName := naming.SuggestIndexName(prefix, table.Name, columns)
		reason := prefixConvention(prefix)
		findings = append(findings, models.Finding{
			Kind:        models.KindRenameIndex,
			Severity:    models.SeverityLow,
			Category:    models.CategoryIndex,
			Table:       table.Name,
			Description: fmt.Sprintf("Index '%s' on (%s) doesn't follow naming convention. %s", idx.Name, strings.Join(columns, ", "), reason),
			Data: map[string]interface{}{
				"old_name": idx.Name,
				"new_name": newName,
				"reason":   reason,
			},
		})
	}

	return findings
}

// CheckRedundancy flags indexes whose columns are a leading prefix of another index.
// Indexes are compared shortest first; each index is reported against its first cover only.
func (ia *IndexAnalyzer) CheckRedundancy(table *models.TableMetadata) []models.Finding {
	var findings []models.Finding

	ordered := make([]models.IndexInfo, len(table.Indexes))
	copy(ordered, table.Indexes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Columns) < len(ordered[j].Columns)
	})

	for i, shorter := range ordered {
		if shorter.IsPrimary {
			continue
		}
		cols1 := nonEmpty(shorter.Columns)
		if len(cols1) == 0 {
			continue
		}

		for j := i + 1; j < len(ordered); j++ {
			longer := ordered[j]
			if longer.IsPrimary {
				continue
			}

			cols2 := nonEmpty(longer.Columns)
			if !isPrefix(cols1, cols2) {
				continue
			}

			// a unique index is never redundant to a weaker non-unique one
			if shorter.Unique && !longer.Unique {
				continue
			}

			card1 := shorter.CardinalitySum()
			card2 := longer.CardinalitySum()
			if float64(card2) > float64(card1)*cardinalityAdvantage {
				continue
			}

			findings = append(findings, models.Finding{
				Kind:     models.KindDropIndex,
				Severity: models.SeverityMedium,
				Category: models.CategoryIndex,
				Table:    table.Name,
				Description: fmt.Sprintf("Index '%s' (%s) is redundant, covered by '%s' (%s)",
					shorter.Name, strings.Join(cols1, ", "), longer.Name, strings.Join(cols2, ", ")),
				Data: map[string]interface{}{
					"index_name":        shorter.Name,
					"covered_by":        longer.Name,
					"redundant_columns": cols1,
					"covering_columns":  cols2,
				},
			})
			break
		}
	}

	return findings
}

// CheckLowCardinality flags non-unique indexes whose average selectivity is under 10%.
// Tables at or below the row threshold, or without a row count, are skipped.
func (ia *IndexAnalyzer) CheckLowCardinality(table *models.TableMetadata) []models.Finding {
	if !table.RowCount.Available {
		ia.Logger.Debugf("Skipping cardinality check for %s: row count unavailable (%s)", table.Name, table.RowCount.Reason)
		return nil
	}
	rows := table.RowCount.Value
	if rows <= ia.Config.MinRowsForIndexStats || rows <= 0 {
		return nil
	}

	var findings []models.Finding
	for _, idx := range table.Indexes {
		if idx.IsPrimary || idx.Unique || len(idx.Cardinality) == 0 {
			continue
		}

		avg := float64(idx.CardinalitySum()) / float64(len(idx.Cardinality))
		selectivity := avg / float64(rows)
		if selectivity >= lowSelectivity {
			continue
		}

		findings = append(findings, models.Finding{
			Kind:        models.KindLowCardinalityIndex,
			Severity:    models.SeverityMedium,
			Category:    models.CategoryIndex,
			Table:       table.Name,
			Description: fmt.Sprintf("Index '%s' has low selectivity (%.2f%%) which may hurt performance", idx.Name, selectivity*100),
			Data: map[string]interface{}{
				"index_name":     idx.Name,
				"selectivity":    selectivity,
				"columns":        nonEmpty(idx.Columns),
				"recommendation": "Consider dropping or combining with other columns",
			},
		})
	}

	return findings
}

// isPrefix reports whether short is a leading prefix of long
func isPrefix(short, long []string) bool {
	if len(short) > len(long) {
		return false
	}
	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}
	return true
}

func prefixConvention(prefix string) string {
	switch prefix {
	case naming.UniquePrefix:
		return "Unique indexes should start with 'uk_' (uk_{table}_{columns})"
	case naming.ForeignKeyPrefix:
		return "Foreign key indexes should start with 'fk_' (fk_{table}_{reference})"
	default:
		return "Regular indexes should start with 'idx_' (idx_{table}_{columns})"
	}
}
