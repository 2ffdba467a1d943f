package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestColumnDefinition(t *testing.T) {
	cases := []struct {
		name   string
		column ColumnInfo
		want   string
	}{
		{
			name:   "nullable without default",
			column: ColumnInfo{ColumnType: "varchar(255)", IsNullable: true},
			want:   "varchar(255) NULL",
		},
		{
			name:   "string default with comment",
			column: ColumnInfo{ColumnType: "varchar(20)", Default: strPtr("it's new"), Comment: "order state"},
			want:   "varchar(20) NOT NULL DEFAULT 'it''s new' COMMENT 'order state'",
		},
		{
			name:   "numeric default",
			column: ColumnInfo{ColumnType: "int", Default: strPtr("0")},
			want:   "int NOT NULL DEFAULT 0",
		},
		{
			name:   "auto increment",
			column: ColumnInfo{ColumnType: "int unsigned", Extra: "auto_increment"},
			want:   "int unsigned NOT NULL auto_increment",
		},
		{
			name:   "timestamp with generated default",
			column: ColumnInfo{ColumnType: "timestamp", Default: strPtr("CURRENT_TIMESTAMP"), Extra: "DEFAULT_GENERATED on update CURRENT_TIMESTAMP"},
			want:   "timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP",
		},
		{
			name:   "expression default",
			column: ColumnInfo{ColumnType: "char(36)", Default: strPtr("uuid()"), Extra: "DEFAULT_GENERATED"},
			want:   "char(36) NOT NULL DEFAULT (uuid())",
		},
		{
			name:   "explicit null default",
			column: ColumnInfo{ColumnType: "date", IsNullable: true, Default: strPtr("NULL")},
			want:   "date NULL DEFAULT NULL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.column.Definition(tc.column.ColumnType)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestColumnDefinitionUnavailable(t *testing.T) {
	_, ok := ColumnInfo{}.Definition("")
	assert.False(t, ok)

	_, ok = ColumnInfo{ColumnType: "int", Extra: "VIRTUAL GENERATED"}.Definition("int")
	assert.False(t, ok)
}

func TestColumnDefinitionReplacesType(t *testing.T) {
	col := ColumnInfo{ColumnType: "int", Extra: "auto_increment", Comment: "pk"}
	got, ok := col.Definition("bigint")
	require.True(t, ok)
	assert.Equal(t, "bigint NOT NULL auto_increment COMMENT 'pk'", got)
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
	assert.Equal(t, -1, Severity("urgent").Rank())

	s, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, s)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestSignal(t *testing.T) {
	present := Present(int64(42))
	assert.True(t, present.Available)
	assert.Equal(t, int64(42), present.Or(0))

	missing := Unavailable[int64]("performance_schema disabled")
	assert.False(t, missing.Available)
	assert.Equal(t, int64(7), missing.Or(7))
	assert.Equal(t, "performance_schema disabled", missing.Reason)
}

func TestFindingAccessors(t *testing.T) {
	f := Finding{Data: map[string]interface{}{
		"index_name": "idx_a",
		"columns":    []string{"a", "b"},
		"ratio":      0.5,
		"count":      int64(3),
	}}

	assert.Equal(t, "idx_a", f.String("index_name"))
	assert.Equal(t, "", f.String("missing"))
	assert.Equal(t, []string{"a", "b"}, f.Strings("columns"))
	assert.Nil(t, f.Strings("index_name"))
	assert.InDelta(t, 0.5, f.Float("ratio"), 1e-9)
	assert.InDelta(t, 3.0, f.Float("count"), 1e-9)
}

func TestParseCategoryAndSortedTables(t *testing.T) {
	c, err := ParseCategory("Index")
	require.NoError(t, err)
	assert.Equal(t, CategoryIndex, c)

	_, err = ParseCategory("security")
	assert.Error(t, err)

	tables := SortedTables(map[string][]Finding{"orders": nil, "Users": nil, "audit": nil})
	assert.Equal(t, []string{"Users", "audit", "orders"}, tables)
}

func TestIndexHelpers(t *testing.T) {
	idx := IndexInfo{Columns: []string{"a", "b"}, Cardinality: []int64{10, 25}}
	assert.Equal(t, int64(35), idx.CardinalitySum())

	table := &TableMetadata{Indexes: []IndexInfo{{Name: PrimaryIndexName, Columns: []string{"id"}}, idx}}
	assert.Equal(t, [][]string{{"id"}, {"a", "b"}}, table.IndexColumnSets())
}
