package analyzer

import (
	"testing"

	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

func TestTableNaming(t *testing.T) {
	na := NewNamingAnalyzer(testConfig(), quietLogger())

	assert.Empty(t, na.CheckTable(newTable("UserProfiles")))

	findings := na.CheckTable(newTable("user_profile_data"))
	require.Len(t, findings, 1)
	assert.Equal(t, models.KindRenameTable, findings[0].Kind)
	assert.Equal(t, models.SeverityMedium, findings[0].Severity)
	assert.Equal(t, "UserProfileData", findings[0].String("suggested_name"))
}

func TestColumnNaming(t *testing.T) {
	table := newTable("Users")
	table.Columns = []models.ColumnInfo{
		{Name: "user_key", DataType: "int", ColumnType: "int", KeyRole: models.KeyPrimary},
		{Name: "firstName", DataType: "varchar", ColumnType: "varchar(50)", IsNullable: true},
		{Name: "AccountID", DataType: "int", ColumnType: "int"},
		{Name: "email", DataType: "varchar", ColumnType: "varchar(255)"},
		{Name: "org_id", DataType: "int", ColumnType: "int"},
	}

	findings := NewNamingAnalyzer(testConfig(), quietLogger()).CheckColumns(table)
	require.Len(t, findings, 3)

	assert.Equal(t, "user_key", findings[0].String("current_name"))
	assert.Equal(t, "id", findings[0].String("suggested_name"))
	assert.Equal(t, models.SeverityMedium, findings[0].Severity)

	assert.Equal(t, "first_name", findings[1].String("suggested_name"))
	assert.Equal(t, models.SeverityLow, findings[1].Severity)
	assert.Equal(t, "varchar(50) NULL", findings[1].String("definition"))

	assert.Equal(t, "account_id", findings[2].String("suggested_name"))
	assert.Equal(t, models.SeverityMedium, findings[2].Severity)

	for _, f := range findings {
		assert.Equal(t, models.KindRenameColumn, f.Kind)
		assert.Equal(t, models.CategoryNaming, f.Category)
	}
}

func TestColumnNamingHeuristics(t *testing.T) {
	table := newTable("Rules")
	table.Columns = []models.ColumnInfo{{Name: "valid", DataType: "tinyint", ColumnType: "tinyint(1)"}}

	cfg := testConfig()
	cfg.ForeignKeyColumnHeuristic = naming.HeuristicSubstring
	findings := NewNamingAnalyzer(cfg, quietLogger()).CheckColumns(table)
	require.Len(t, findings, 1, "substring heuristic treats 'valid' as a foreign key")
	assert.Equal(t, "valid_id", findings[0].String("suggested_name"))

	cfg.ForeignKeyColumnHeuristic = naming.HeuristicSuffix
	assert.Empty(t, NewNamingAnalyzer(cfg, quietLogger()).CheckColumns(table))
}

func TestColumnNamingCompositePrimaryKey(t *testing.T) {
	table := newTable("OrderLines")
	table.Columns = []models.ColumnInfo{
		{Name: "order_id", DataType: "int", ColumnType: "int", KeyRole: models.KeyPrimary},
		{Name: "LineNo", DataType: "int", ColumnType: "int", KeyRole: models.KeyPrimary},
	}

	findings := NewNamingAnalyzer(testConfig(), quietLogger()).CheckColumns(table)
	require.Len(t, findings, 1)
	assert.Equal(t, "LineNo", findings[0].String("current_name"))
	assert.Equal(t, "line_no", findings[0].String("suggested_name"))
}

func TestColumnNamingGeneratedColumnHasNoDefinition(t *testing.T) {
	table := newTable("Users")
	table.Columns = []models.ColumnInfo{
		{Name: "FullName", DataType: "varchar", ColumnType: "varchar(101)", Extra: "VIRTUAL GENERATED"},
	}

	findings := NewNamingAnalyzer(testConfig(), quietLogger()).CheckColumns(table)
	require.Len(t, findings, 1)
	assert.NotContains(t, findings[0].Data, "definition")
}

func TestColumnNamingAcceptsConventionalNames(t *testing.T) {
	fake := faker.New()
	na := NewNamingAnalyzer(testConfig(), quietLogger())

	for i := 0; i < 20; i++ {
		name := naming.StandardizeColumnName(fake.Lorem().Word() + "_" + fake.Lorem().Word())
		if naming.IsForeignKeyShaped(name, naming.HeuristicSubstring) {
			continue
		}
		table := newTable("Notes")
		table.Columns = []models.ColumnInfo{{Name: name, DataType: "text", ColumnType: "text"}}

		assert.Empty(t, na.CheckColumns(table), "column %q", name)
	}
}

func TestIndexNamingBody(t *testing.T) {
	table := newTable("Users")
	table.Indexes = append(table.Indexes,
		models.IndexInfo{Name: "idx_UserStatus", Columns: []string{"status"}},
		models.IndexInfo{Name: "status_idx", Columns: []string{"status"}},
		models.IndexInfo{Name: "uk_users_email", Columns: []string{"email"}, Unique: true},
	)

	findings := NewNamingAnalyzer(testConfig(), quietLogger()).CheckIndexes(table)
	require.Len(t, findings, 1, "a wrong prefix is left to the index analyzer")

	f := findings[0]
	assert.Equal(t, models.KindRenameIndex, f.Kind)
	assert.Equal(t, models.CategoryNaming, f.Category)
	assert.Equal(t, "idx_UserStatus", f.String("old_name"))
	assert.Equal(t, "idx_users_status", f.String("new_name"))
}
