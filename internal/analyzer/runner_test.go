package analyzer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/mysql-analyzer/internal/catalog"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// fakeReader serves a fixed snapshot
type fakeReader struct {
	names     []string
	tables    map[string]*models.TableMetadata
	loadErrs  map[string]error
	listErr   error
	usage     models.Signal[[]models.IndexUsage]
	usageHits int
}

func (f *fakeReader) Tables(schema string) ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeReader) Table(schema, table string) (*models.TableMetadata, error) {
	if err := f.loadErrs[table]; err != nil {
		return nil, err
	}
	t, ok := f.tables[table]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", schema, table, catalog.ErrTableNotFound)
	}
	return t, nil
}

func (f *fakeReader) IndexUsage(schema string) models.Signal[[]models.IndexUsage] {
	f.usageHits++
	return f.usage
}

func newFakeReader(tables ...*models.TableMetadata) *fakeReader {
	r := &fakeReader{
		tables:   make(map[string]*models.TableMetadata),
		loadErrs: make(map[string]error),
		usage:    models.Unavailable[[]models.IndexUsage]("performance_schema disabled"),
	}
	for _, t := range tables {
		r.names = append(r.names, t.Name)
		r.tables[t.Name] = t
	}
	return r
}

// orders has a redundant index that is also unused, and a MyISAM engine
func ordersFixture() *models.TableMetadata {
	table := newTable("Orders")
	table.Status.Engine = "MyISAM"
	table.RowCount = models.Present(int64(50000))
	table.Indexes = append(table.Indexes,
		models.IndexInfo{Name: "idx_orders_status", Columns: []string{"status"}, Cardinality: []int64{5}},
		models.IndexInfo{Name: "idx_orders_status_created", Columns: []string{"status", "created_at"}, Cardinality: []int64{5, 2}},
	)
	return table
}

func TestRunListErrorIsFatal(t *testing.T) {
	reader := newFakeReader()
	reader.listErr = errors.New("access denied")

	report, err := NewRunner(reader, testConfig(), quietLogger()).Run("shop")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "analyzing shop")
}

func TestRunSkipsTablesThatFailToLoad(t *testing.T) {
	reader := newFakeReader(ordersFixture())
	reader.names = append(reader.names, "Dropped", "Locked")
	reader.loadErrs["Locked"] = errors.New("lock wait timeout")

	var visited []string
	total := 0
	runner := NewRunner(reader, testConfig(), quietLogger())
	runner.OnStart = func(tables int) { total = tables }
	runner.OnTable = func(table string) { visited = append(visited, table) }

	report, err := runner.Run("shop")
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"Orders", "Dropped", "Locked"}, visited)
	assert.Equal(t, 1, report.TablesAnalyzed)
	assert.Equal(t, []string{"Orders"}, report.Tables())
	assert.NoError(t, report.DetectorErrors)
}

func TestRunDeduplicatesDropIndex(t *testing.T) {
	reader := newFakeReader(ordersFixture())
	reader.usage = models.Present([]models.IndexUsage{
		{Table: "Orders", Index: "idx_orders_status_created", CountFetch: 40},
	})

	report, err := NewRunner(reader, testConfig(), quietLogger()).Run("shop")
	require.NoError(t, err)
	assert.Equal(t, 1, reader.usageHits, "usage is read once per schema")

	drops := findingsOfKind(report.Findings["Orders"], models.KindDropIndex)
	require.Len(t, drops, 1)
	assert.Equal(t, models.CategoryIndex, drops[0].Category, "redundancy is reported ahead of the unused index")
	assert.Equal(t, "idx_orders_status_created", drops[0].String("covered_by"))

	cfg := testConfig()
	cfg.DedupSuggestions = false
	report, err = NewRunner(reader, cfg, quietLogger()).Run("shop")
	require.NoError(t, err)
	assert.Len(t, findingsOfKind(report.Findings["Orders"], models.KindDropIndex), 2)
}

func TestRunSeverityFloor(t *testing.T) {
	cfg := testConfig()
	cfg.MinSeverity = models.SeverityHigh

	report, err := NewRunner(newFakeReader(ordersFixture()), cfg, quietLogger()).Run("shop")
	require.NoError(t, err)

	for _, f := range report.All() {
		assert.GreaterOrEqual(t, f.Severity.Rank(), models.SeverityHigh.Rank(), "%s", f.Kind)
	}
	assert.Len(t, findingsOfKind(report.All(), models.KindAlterEngine), 1)
	assert.Equal(t, report.Total(), report.CountBySeverity()[models.SeverityHigh])
}

func TestRunCategoryFilter(t *testing.T) {
	reader := newFakeReader(ordersFixture())

	report, err := NewRunner(reader, testConfig(), quietLogger()).Run("shop", models.CategoryIndex)
	require.NoError(t, err)
	assert.Zero(t, reader.usageHits, "usage is only read for performance analysis")

	require.NotEmpty(t, report.All())
	for _, f := range report.All() {
		assert.Equal(t, models.CategoryIndex, f.Category)
	}
}

func TestRunRelationshipToggle(t *testing.T) {
	snapshot := func() *fakeReader {
		return newFakeReader(referencing("Invoices", "Ledgers"), referencing("Ledgers", "Invoices"))
	}

	report, err := NewRunner(snapshot(), testConfig(), quietLogger()).Run("shop", models.CategorySchema)
	require.NoError(t, err)
	assert.Len(t, findingsOfKind(report.All(), models.KindCircularForeignKey), 2)

	cfg := testConfig()
	cfg.AnalyzeForeignKeyChains = false
	report, err = NewRunner(snapshot(), cfg, quietLogger()).Run("shop", models.CategorySchema)
	require.NoError(t, err)
	assert.Empty(t, findingsOfKind(report.All(), models.KindCircularForeignKey))

	report, err = NewRunner(snapshot(), testConfig(), quietLogger()).Run("shop", models.CategoryNaming)
	require.NoError(t, err)
	assert.Empty(t, findingsOfKind(report.All(), models.KindCircularForeignKey))
}

func TestAnalyzersOrder(t *testing.T) {
	runner := NewRunner(newFakeReader(), testConfig(), quietLogger())

	var got []models.Category
	for _, a := range runner.Analyzers() {
		got = append(got, a.Category())
	}
	assert.Equal(t, []models.Category{models.CategoryNaming, models.CategoryIndex, models.CategorySchema, models.CategoryPerformance}, got)

	assert.Len(t, runner.Analyzers(models.CategoryPerformance, models.CategoryNaming), 2)
}

func TestMergeSeverityFloorAndDedupe(t *testing.T) {
	cfg := testConfig()
	cfg.MinSeverity = models.SeverityMedium

	findings := []models.Finding{
		{Kind: models.KindDropIndex, Severity: models.SeverityMedium, Table: "Orders", Category: models.CategoryIndex, Data: map[string]interface{}{"index_name": "idx_a"}},
		{Kind: models.KindDropIndex, Severity: models.SeverityMedium, Table: "Orders", Category: models.CategoryPerformance, Data: map[string]interface{}{"index_name": "idx_a"}},
		{Kind: models.KindDropIndex, Severity: models.SeverityMedium, Table: "Orders", Data: map[string]interface{}{"index_name": "idx_b"}},
		{Kind: models.KindRenameIndex, Severity: models.SeverityLow, Table: "Orders", Data: map[string]interface{}{"old_name": "x"}},
		{Kind: models.KindOptimizeIndexes, Severity: models.SeverityMedium, Table: "Orders"},
		{Kind: models.KindOptimizeIndexes, Severity: models.SeverityMedium, Table: "Orders"},
	}

	merged := Merge(findings, cfg)
	require.Len(t, merged, 4)
	assert.Equal(t, models.CategoryIndex, merged[0].Category)
	assert.Equal(t, "idx_b", merged[1].String("index_name"))
}

func TestRunDoesNotRenameDroppedIndex(t *testing.T) {
	table := newTable("Orders")
	table.Columns = append(table.Columns,
		models.ColumnInfo{Name: "status", DataType: "varchar", ColumnType: "varchar(20)"},
		models.ColumnInfo{Name: "created_at", DataType: "datetime", ColumnType: "datetime"},
	)
	table.Indexes = append(table.Indexes,
		models.IndexInfo{Name: "status", Columns: []string{"status"}, Cardinality: []int64{10}},
		models.IndexInfo{Name: "idx_Orders_status_created_at", Columns: []string{"status", "created_at"}, Cardinality: []int64{5, 5}},
	)

	report, err := NewRunner(newFakeReader(table), testConfig(), quietLogger()).Run("shop")
	require.NoError(t, err)

	drops := findingsOfKind(report.Findings["Orders"], models.KindDropIndex)
	require.Len(t, drops, 1)
	assert.Equal(t, "status", drops[0].String("index_name"))

	for _, f := range findingsOfKind(report.Findings["Orders"], models.KindRenameIndex) {
		assert.NotEqual(t, "status", f.String("old_name"), "a dropped index must not be renamed first")
	}
}

func TestMergeSuppressesRenameOfDroppedIndex(t *testing.T) {
	rename := func(table, index string) models.Finding {
		return models.Finding{Kind: models.KindRenameIndex, Severity: models.SeverityLow, Table: table, Data: map[string]interface{}{"old_name": index, "new_name": "idx_" + index}}
	}
	drop := func(table, index string, severity models.Severity) models.Finding {
		return models.Finding{Kind: models.KindDropIndex, Severity: severity, Table: table, Data: map[string]interface{}{"index_name": index}}
	}

	findings := []models.Finding{
		rename("Orders", "status"),
		rename("Orders", "created"),
		rename("Users", "status"),
		drop("Orders", "status", models.SeverityMedium),
	}

	for _, dedupe := range []bool{true, false} {
		cfg := testConfig()
		cfg.DedupSuggestions = dedupe

		merged := Merge(findings, cfg)
		require.Len(t, merged, 3)
		assert.Equal(t, "created", merged[0].String("old_name"))
		assert.Equal(t, "Users", merged[1].Table)
		assert.Equal(t, models.KindDropIndex, merged[2].Kind)
	}

	// A drop below the severity floor leaves the rename in place
	cfg := testConfig()
	cfg.MinSeverity = models.SeverityMedium
	kept := rename("Orders", "status")
	kept.Severity = models.SeverityMedium

	merged := Merge([]models.Finding{kept, drop("Orders", "status", models.SeverityLow)}, cfg)
	require.Len(t, merged, 1)
	assert.Equal(t, models.KindRenameIndex, merged[0].Kind)
}
