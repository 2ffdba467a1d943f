package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/pkg/models"
	"github.com/yourbasic/graph"
)

// RelationshipAnalyzer inspects foreign keys across all tables of a schema
type RelationshipAnalyzer struct {
	Logger *logrus.Logger
}

// NewRelationshipAnalyzer creates a new relationship analyzer
func NewRelationshipAnalyzer(logger *logrus.Logger) *RelationshipAnalyzer {
	return &RelationshipAnalyzer{Logger: logger}
}

// DependencyGraph builds the referencing -> referenced table graph.
// References to tables outside the snapshot and self-references are ignored.
func (ra *RelationshipAnalyzer) DependencyGraph(tables []*models.TableMetadata) (*graph.Mutable, []string) {
	names := make([]string, len(tables))
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		names[i] = t.Name
		index[t.Name] = i
	}

	// Add an edge from each table to the tables it references; self-references are ignored
	g := graph.New(len(tables))
	for i, t := range tables {
		for _, fk := range t.ForeignKeys {
			target, ok := index[fk.ReferencedTable]
			if !ok || target == i {
				continue
			}
			g.Add(i, target)
		}
	}
	return g, names
}

// CircularChains returns every group of tables whose foreign keys form a cycle,
// each group sorted by name and the groups sorted by their first table
func (ra *RelationshipAnalyzer) CircularChains(tables []*models.TableMetadata) [][]string {
	g, names := ra.DependencyGraph(tables)

	var chains [][]string
	// Any strongly connected component with more than one table is a cycle
	for _, component := range graph.StrongComponents(g) {
		if len(component) < 2 {
			continue
		}
		chain := make([]string, 0, len(component))
		for _, v := range component {
			chain = append(chain, names[v])
		}
		sort.Strings(chain)
		chains = append(chains, chain)
	}

	sort.Slice(chains, func(i, j int) bool { return chains[i][0] < chains[j][0] })
	return chains
}

// Analyze reports each table taking part in a circular foreign key chain
func (ra *RelationshipAnalyzer) Analyze(tables []*models.TableMetadata) map[string][]models.Finding {
	findings := make(map[string][]models.Finding)

	for _, chain := range ra.CircularChains(tables) {
		ra.Logger.Infof("Circular foreign key chain: %s", strings.Join(chain, " <-> "))
		for _, table := range chain {
			findings[table] = append(findings[table], models.Finding{
				Kind:        models.KindCircularForeignKey,
				Severity:    models.SeverityLow,
				Category:    models.CategorySchema,
				Table:       table,
				Description: fmt.Sprintf("Table '%s' is part of a circular foreign key chain (%s); inserts and deletes need deferred ordering", table, strings.Join(chain, ", ")),
				Data: map[string]interface{}{
					"cycle": chain,
				},
			})
		}
	}

	return findings
}
