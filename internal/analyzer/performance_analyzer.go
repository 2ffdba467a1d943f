package analyzer

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// PerformanceAnalyzer checks runtime index usage and table fragmentation
type PerformanceAnalyzer struct {
	Config *config.AnalysisConfig
	Logger *logrus.Logger
}

// NewPerformanceAnalyzer creates a new performance analyzer
func NewPerformanceAnalyzer(cfg *config.AnalysisConfig, logger *logrus.Logger) *PerformanceAnalyzer {
	return &PerformanceAnalyzer{
		Config: cfg,
		Logger: logger,
	}
}

// Category returns the performance category
func (pa *PerformanceAnalyzer) Category() models.Category {
	return models.CategoryPerformance
}

// Checks returns the performance detectors in reporting order
func (pa *PerformanceAnalyzer) Checks() []Check {
	return []Check{
		{Name: "unused_indexes", Run: pa.CheckUnusedIndexes},
		{Name: "fragmentation", Run: pa.CheckFragmentation},
	}
}

// CheckUnusedIndexes flags non-primary indexes with no recorded fetches on busy tables.
// Without usage statistics the check is skipped.
func (pa *PerformanceAnalyzer) CheckUnusedIndexes(table *models.TableMetadata) []models.Finding {
	if !table.IndexUsage.Available {
		pa.Logger.Debugf("Skipping unused index check for %s: %s", table.Name, table.IndexUsage.Reason)
		return nil
	}
	rows := table.RowCount.Or(0)
	if rows <= pa.Config.MinRowsForIndexStats {
		return nil
	}

	fetches := make(map[string]int64, len(table.IndexUsage.Value))
	for _, usage := range table.IndexUsage.Value {
		if usage.Table == table.Name {
			fetches[usage.Index] = usage.CountFetch
		}
	}

	var findings []models.Finding
	for _, idx := range table.Indexes {
		if idx.IsPrimary {
			continue
		}
		if fetches[idx.Name] > 0 {
			continue
		}

		findings = append(findings, models.Finding{
			Kind:        models.KindDropIndex,
			Severity:    models.SeverityMedium,
			Category:    models.CategoryPerformance,
			Table:       table.Name,
			Description: fmt.Sprintf("Index '%s' appears to be unused (no fetches recorded since server start)", idx.Name),
			Data: map[string]interface{}{
				"index_name":  idx.Name,
				"count_fetch": fetches[idx.Name],
				"table_rows":  rows,
			},
		})
	}

	return findings
}

// CheckFragmentation flags tables whose free space is both large and a high share of their data
func (pa *PerformanceAnalyzer) CheckFragmentation(table *models.TableMetadata) []models.Finding {
	if table.Status == nil {
		return nil
	}
	dataLength := table.Status.DataLength
	dataFree := table.Status.DataFree
	if dataLength <= 0 || dataFree <= pa.Config.FragmentationMinFreeBytes {
		return nil
	}

	ratio := float64(dataFree) / float64(dataLength)
	if ratio <= pa.Config.FragmentationRatio {
		return nil
	}

	return []models.Finding{{
		Kind:        models.KindOptimizeTable,
		Severity:    models.SeverityLow,
		Category:    models.CategoryPerformance,
		Table:       table.Name,
		Description: fmt.Sprintf("Table has significant fragmentation (%.2f MB free). Consider running OPTIMIZE TABLE.", float64(dataFree)/1024/1024),
		Data: map[string]interface{}{
			"data_free":           dataFree,
			"data_length":         dataLength,
			"fragmentation_ratio": ratio,
		},
	}}
}
