package patch

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/catalog"
	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// ComprehensiveType names the patch covering every category
const ComprehensiveType = "comprehensive"

// NoIssuesMarker is the whole body of a patch without statements
const NoIssuesMarker = "-- No issues found"

const banner = "-- ============================================"

// Generator renders findings into SQL patch text
type Generator struct {
	Logger *logrus.Logger
	// Now stamps the header and filenames
	Now func() time.Time
}

// NewGenerator creates a new patch generator
func NewGenerator(logger *logrus.Logger) *Generator {
	return &Generator{
		Logger: logger,
		Now:    time.Now,
	}
}

// Generate renders the patch of the given type: "comprehensive" or a category name
func (g *Generator) Generate(schema string, findings map[string][]models.Finding, patchType string) (string, error) {
	if strings.EqualFold(patchType, ComprehensiveType) {
		return g.Comprehensive(schema, findings), nil
	}
	category, err := models.ParseCategory(patchType)
	if err != nil {
		return "", fmt.Errorf("unknown patch type %q: %w", patchType, err)
	}
	return g.ForCategory(schema, findings, category), nil
}

// Comprehensive renders all categories in the order schema, index, performance, naming,
// each under its own banner. Empty sections are left out.
func (g *Generator) Comprehensive(schema string, findings map[string][]models.Finding) string {
	var body []string
	for _, category := range models.Categories {
		body = append(body, g.section(category, g.Statements(findings, category))...)
	}
	return g.assemble(schema, body)
}

// ForCategory renders the patch for a single category
func (g *Generator) ForCategory(schema string, findings map[string][]models.Finding, category models.Category) string {
	return g.assemble(schema, g.section(category, g.Statements(findings, category)))
}

// Statements renders the findings of one category, table by table in name order.
// Table renames come after every other statement so the earlier ones still
// address the original table names.
func (g *Generator) Statements(findings map[string][]models.Finding, category models.Category) []string {
	var statements, renames []string
	for _, table := range models.SortedTables(findings) {
		for _, f := range findings[table] {
			if f.Category != category {
				continue
			}
			stmt, ok := Statement(f)
			if !ok {
				g.Logger.Debugf("No patch template for %s on %s", f.Kind, f.Table)
				continue
			}
			if f.Kind == models.KindRenameTable {
				renames = append(renames, stmt)
				continue
			}
			statements = append(statements, stmt)
		}
	}
	return append(statements, renames...)
}

// Filename returns patch_<schema>_<type>_<YYYYMMDD_HHMMSS>.sql
func (g *Generator) Filename(schema, patchType string) string {
	return fmt.Sprintf("patch_%s_%s_%s.sql", schema, patchType, g.Now().Format("20060102_150405"))
}

func (g *Generator) section(category models.Category, statements []string) []string {
	if len(statements) == 0 {
		return nil
	}
	lines := []string{
		banner,
		fmt.Sprintf("-- %s FIXES", strings.ToUpper(string(category))),
		banner,
	}
	return append(lines, statements...)
}

func (g *Generator) assemble(schema string, body []string) string {
	lines := []string{
		fmt.Sprintf("-- MySQL Analysis Patch for database: %s", schema),
		fmt.Sprintf("-- Generated on: %s", g.Now().Format("2006-01-02 15:04:05")),
		"-- WARNING: Review and test these statements before executing in production!",
		fmt.Sprintf("USE %s;", catalog.QuoteIdentifier(schema)),
		"",
	}
	if len(body) == 0 {
		body = []string{NoIssuesMarker}
	}
	return strings.Join(append(lines, body...), "\n") + "\n"
}

// Statement renders one finding as a comment restating its description followed by
// the SQL that fixes it. Advisory kinds and renames whose column definition is
// unknown render as comments only. Returns false for kinds without a template.
func Statement(f models.Finding) (string, bool) {
	q := catalog.QuoteIdentifier
	table := q(f.Table)

	var sql string
	switch f.Kind {
	case models.KindRenameIndex:
		sql = fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s;", table, q(f.String("old_name")), q(f.String("new_name")))
	case models.KindDropIndex:
		sql = fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, q(f.String("index_name")))
	case models.KindAlterEngine:
		sql = fmt.Sprintf("ALTER TABLE %s ENGINE=InnoDB;", table)
	case models.KindAlterCharset:
		sql = fmt.Sprintf("ALTER TABLE %s CONVERT TO CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci;", table)
	case models.KindAlterRowFormat:
		sql = fmt.Sprintf("ALTER TABLE %s ROW_FORMAT=DYNAMIC;", table)
	case models.KindCreateIndex:
		column := f.String("column")
		name := f.String("suggested_index_name")
		if name == "" {
			name = naming.SuggestIndexName(naming.ForeignKeyPrefix, f.Table, []string{column})
		}
		sql = fmt.Sprintf("CREATE INDEX %s ON %s (%s);", q(name), table, q(column))
	case models.KindAlterColumnType:
		definition := f.String("new_definition")
		if definition == "" {
			definition = f.String("new_type")
		}
		sql = fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s;", table, q(f.String("column")), definition)
	case models.KindOptimizeTable:
		sql = fmt.Sprintf("OPTIMIZE TABLE %s;", table)
	case models.KindRenameTable:
		sql = fmt.Sprintf("RENAME TABLE %s TO %s;", q(f.String("current_name")), q(f.String("suggested_name")))
	case models.KindRenameColumn:
		sql = renameColumn(table, f)
	case models.KindLowCardinalityIndex, models.KindOptimizeIndexes, models.KindCircularForeignKey:
		sql = "-- Advisory only, no statement generated"
		if rec := f.String("recommendation"); rec != "" {
			sql += ": " + rec
		}
	default:
		return "", false
	}

	return comment(f.Description) + "\n" + sql, true
}

func renameColumn(table string, f models.Finding) string {
	q := catalog.QuoteIdentifier
	oldName := q(f.String("current_name"))
	newName := q(f.String("suggested_name"))

	if definition := f.String("definition"); definition != "" {
		return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s %s;", table, oldName, newName, definition)
	}
	return "-- MANUAL COMPLETION REQUIRED: the column definition could not be read\n" +
		fmt.Sprintf("-- ALTER TABLE %s CHANGE COLUMN %s %s <column definition>;", table, oldName, newName)
}

// comment prefixes every line of text with "-- "
func comment(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = "-- " + line
	}
	return strings.Join(lines, "\n")
}
