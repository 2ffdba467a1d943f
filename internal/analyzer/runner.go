package analyzer

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/catalog"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/pkg/models"
	"go.uber.org/multierr"
)

// Report is the outcome of one analysis pass over a schema
type Report struct {
	Schema         string
	TablesAnalyzed int
	Findings       map[string][]models.Finding
	// DetectorErrors combines the failures of individual detectors; nil when all ran cleanly
	DetectorErrors error
}

// Tables returns the tables with findings in name order
func (r *Report) Tables() []string {
	return models.SortedTables(r.Findings)
}

// All returns every finding, table by table in name order
func (r *Report) All() []models.Finding {
	var all []models.Finding
	for _, table := range r.Tables() {
		all = append(all, r.Findings[table]...)
	}
	return all
}

// Total returns the number of findings
func (r *Report) Total() int {
	total := 0
	for _, findings := range r.Findings {
		total += len(findings)
	}
	return total
}

// CountBySeverity tallies findings per severity
func (r *Report) CountBySeverity() map[models.Severity]int {
	counts := make(map[models.Severity]int)
	for _, findings := range r.Findings {
		for _, f := range findings {
			counts[f.Severity]++
		}
	}
	return counts
}

// Runner loads a schema snapshot and runs the selected analyzers over it
type Runner struct {
	Reader  catalog.Reader
	Config  *config.AnalysisConfig
	Logger  *logrus.Logger
	// OnStart is called once with the number of tables to load
	OnStart func(tables int)
	// OnTable is called after each table's metadata is read, loaded or not
	OnTable func(table string)
}

// NewRunner creates a new analysis runner
func NewRunner(reader catalog.Reader, cfg *config.AnalysisConfig, logger *logrus.Logger) *Runner {
	return &Runner{
		Reader: reader,
		Config: cfg,
		Logger: logger,
	}
}

// Analyzers returns the per-table analyzers for the given categories, all when none are given.
// Per table they run naming, index, schema, performance, so a redundant index is
// reported by the index analyzer rather than as unused.
func (r *Runner) Analyzers(categories ...models.Category) []Analyzer {
	all := []Analyzer{
		NewNamingAnalyzer(r.Config, r.Logger),
		NewIndexAnalyzer(r.Config, r.Logger),
		NewSchemaAnalyzer(r.Config, r.Logger),
		NewPerformanceAnalyzer(r.Config, r.Logger),
	}
	if len(categories) == 0 {
		return all
	}

	wanted := make(map[models.Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	var selected []Analyzer
	for _, a := range all {
		if wanted[a.Category()] {
			selected = append(selected, a)
		}
	}
	return selected
}

// Run analyzes every base table of schema. Only failing to list the tables is
// fatal; a table that cannot be loaded yields no findings and a failing
// detector is recorded in Report.DetectorErrors.
func (r *Runner) Run(schema string, categories ...models.Category) (*Report, error) {
	// Listing tables is the only fatal step
	tableNames, err := r.Reader.Tables(schema)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", schema, err)
	}
	r.Logger.Infof("Analyzing %d tables in %s", len(tableNames), schema)
	if r.OnStart != nil {
		r.OnStart(len(tableNames))
	}

	// Work out which schema-wide inputs the selected analyzers need
	analyzers := r.Analyzers(categories...)
	wantPerformance := false
	wantSchema := false
	for _, a := range analyzers {
		switch a.Category() {
		case models.CategoryPerformance:
			wantPerformance = true
		case models.CategorySchema:
			wantSchema = true
		}
	}

	// Usage statistics are read once for the whole schema
	usage := models.Unavailable[[]models.IndexUsage]("not requested")
	if wantPerformance {
		usage = r.Reader.IndexUsage(schema)
		if !usage.Available {
			r.Logger.Warnf("Index usage statistics unavailable, unused index check will be skipped: %s", usage.Reason)
		}
	}

	// Load the snapshot first; the relationship check needs every table.
	var tables []*models.TableMetadata
	for _, name := range tableNames {
		table, err := r.Reader.Table(schema, name)
		if r.OnTable != nil {
			r.OnTable(name)
		}
		if err != nil {
			if errors.Is(err, catalog.ErrTableNotFound) {
				r.Logger.Infof("Table %s disappeared during analysis, skipping", name)
			} else {
				r.Logger.Warnf("Could not load metadata for %s, skipping: %v", name, err)
			}
			continue
		}
		table.IndexUsage = usageFor(usage, name)
		tables = append(tables, table)
	}

	// Foreign key chains span tables, so they are analyzed on the full snapshot
	var relationships map[string][]models.Finding
	if wantSchema && r.Config.AnalyzeForeignKeyChains {
		relationships = NewRelationshipAnalyzer(r.Logger).Analyze(tables)
	}

	report := &Report{
		Schema:   schema,
		Findings: make(map[string][]models.Finding),
	}

	// Run every analyzer per table, then merge that table's findings
	for _, table := range tables {
		var found []models.Finding
		for _, a := range analyzers {
			fs, err := RunChecks(a, table, r.Logger)
			report.DetectorErrors = multierr.Append(report.DetectorErrors, err)
			found = append(found, fs...)
		}
		found = append(found, relationships[table.Name]...)

		if merged := Merge(found, r.Config); len(merged) > 0 {
			report.Findings[table.Name] = merged
		}
		report.TablesAnalyzed++
	}

	r.Logger.Infof("Analysis of %s complete: %d findings across %d tables", schema, report.Total(), len(report.Findings))
	return report, nil
}

// usageFor narrows schema-wide usage statistics to one table
func usageFor(usage models.Signal[[]models.IndexUsage], table string) models.Signal[[]models.IndexUsage] {
	if !usage.Available {
		return usage
	}
	var rows []models.IndexUsage
	for _, u := range usage.Value {
		if u.Table == table {
			rows = append(rows, u)
		}
	}
	return models.Present(rows)
}
