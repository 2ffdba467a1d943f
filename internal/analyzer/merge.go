package analyzer

import (
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// Merge applies the severity floor and, when enabled, collapses findings that
// target the same object: one DROP_INDEX per index, one RENAME_INDEX per source
// name and one CREATE_INDEX per column. The first finding wins, so callers
// control precedence through input order. A RENAME_INDEX is always dropped when
// the same index is also dropped, since the DROP addresses the old name.
func Merge(findings []models.Finding, cfg *config.AnalysisConfig) []models.Finding {
	floor := cfg.MinSeverity.Rank()

	// Collect the indexes that will be dropped
	dropped := make(map[string]bool)
	for _, f := range findings {
		if f.Kind == models.KindDropIndex && f.Severity.Rank() >= floor {
			dropped[indexKey(f.Table, f.String("index_name"))] = true
		}
	}

	seen := make(map[string]bool)
	merged := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() < floor {
			continue
		}

		// Renaming an index that is about to be dropped breaks the DROP
		if f.Kind == models.KindRenameIndex && dropped[indexKey(f.Table, f.String("old_name"))] {
			continue
		}

		if cfg.DedupSuggestions {
			if key := dedupeKey(f); key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
		}

		merged = append(merged, f)
	}
	return merged
}

func indexKey(table, index string) string {
	return table + "\x00" + index
}

func dedupeKey(f models.Finding) string {
	var target string
	switch f.Kind {
	case models.KindDropIndex:
		target = f.String("index_name")
	case models.KindRenameIndex:
		target = f.String("old_name")
	case models.KindCreateIndex:
		target = f.String("column")
	default:
		return ""
	}
	if target == "" {
		return ""
	}
	return string(f.Kind) + "\x00" + indexKey(f.Table, target)
}
