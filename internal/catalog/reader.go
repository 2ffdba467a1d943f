package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// Querier runs a read query and returns rows keyed by lower-cased column name.
// *connector.DatabaseConnector satisfies it.
type Querier interface {
	ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error)
}

// Reader supplies catalog metadata for one schema
type Reader interface {
	Tables(schema string) ([]string, error)
	Table(schema, table string) (*models.TableMetadata, error)
	IndexUsage(schema string) models.Signal[[]models.IndexUsage]
}

// MySQLReader reads catalog metadata from information_schema and performance_schema
type MySQLReader struct {
	DB     Querier
	Logger *logrus.Logger
}

// NewMySQLReader creates a new catalog reader
func NewMySQLReader(db Querier, logger *logrus.Logger) *MySQLReader {
	return &MySQLReader{
		DB:     db,
		Logger: logger,
	}
}

// Tables lists the base tables of a schema in name order
func (r *MySQLReader) Tables(schema string) ([]string, error) {
	if schema == "" {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := r.DB.ExecuteQuery(query, schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables of %s: %w", schema, err)
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, asString(row["table_name"]))
	}
	return tables, nil
}

// Table loads the full metadata snapshot of one table.
// Returns ErrTableNotFound if the table no longer exists.
func (r *MySQLReader) Table(schema, table string) (*models.TableMetadata, error) {
	if schema == "" {
		return nil, ErrNoDatabase
	}

	// Get table status (engine, collation, sizes)
	status, err := r.tableStatus(schema, table)
	if err != nil {
		return nil, err
	}

	columns, err := r.columns(schema, table)
	if err != nil {
		return nil, err
	}

	indexes, err := r.indexes(schema, table)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := r.foreignKeys(schema, table)
	if err != nil {
		return nil, err
	}

	return &models.TableMetadata{
		Name:        table,
		Status:      status,
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
		RowCount:    r.rowCount(schema, table),
		IndexUsage:  models.Unavailable[[]models.IndexUsage]("not loaded"),
	}, nil
}

// IndexUsage reads per-index fetch counters. performance_schema may be disabled,
// in which case the signal is unavailable rather than an error.
func (r *MySQLReader) IndexUsage(schema string) models.Signal[[]models.IndexUsage] {
	query := `
		SELECT object_name, index_name, count_fetch
		FROM performance_schema.table_io_waits_summary_by_index_usage
		WHERE object_schema = ?
		AND index_name IS NOT NULL
		ORDER BY object_name, index_name
	`
	rows, err := r.DB.ExecuteQuery(query, schema)
	if err != nil {
		r.Logger.Debugf("Index usage statistics unavailable: %v", err)
		return models.Unavailable[[]models.IndexUsage](err.Error())
	}

	usage := make([]models.IndexUsage, 0, len(rows))
	for _, row := range rows {
		usage = append(usage, models.IndexUsage{
			Table:      asString(row["object_name"]),
			Index:      asString(row["index_name"]),
			CountFetch: asInt64(row["count_fetch"]),
		})
	}
	return models.Present(usage)
}

func (r *MySQLReader) tableStatus(schema, table string) (*models.TableStatus, error) {
	query := `
		SELECT
			engine,
			table_collation,
			auto_increment,
			row_format,
			create_options,
			data_length,
			index_length,
			data_free,
			table_comment
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_name = ?
	`
	rows, err := r.DB.ExecuteQuery(query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading status of %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", schema, table, ErrTableNotFound)
	}

	row := rows[0]
	return &models.TableStatus{
		Engine:        asString(row["engine"]),
		Collation:     asString(row["table_collation"]),
		AutoIncrement: asOptionalInt64(row["auto_increment"]),
		RowFormat:     asString(row["row_format"]),
		CreateOptions: asString(row["create_options"]),
		DataLength:    asInt64(row["data_length"]),
		IndexLength:   asInt64(row["index_length"]),
		DataFree:      asInt64(row["data_free"]),
		Comment:       asString(row["table_comment"]),
	}, nil
}

func (r *MySQLReader) columns(schema, table string) ([]models.ColumnInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			column_type,
			is_nullable,
			column_default,
			extra,
			column_key,
			character_maximum_length,
			column_comment
		FROM information_schema.columns
		WHERE table_schema = ?
		AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := r.DB.ExecuteQuery(query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	columns := make([]models.ColumnInfo, 0, len(rows))
	for _, row := range rows {
		var def *string
		if row["column_default"] != nil {
			v := asString(row["column_default"])
			def = &v
		}

		columns = append(columns, models.ColumnInfo{
			Name:       asString(row["column_name"]),
			DataType:   asString(row["data_type"]),
			ColumnType: asString(row["column_type"]),
			IsNullable: strings.EqualFold(asString(row["is_nullable"]), "YES"),
			Default:    def,
			Extra:      asString(row["extra"]),
			KeyRole:    models.KeyRole(asString(row["column_key"])),
			MaxLength:  asOptionalInt64(row["character_maximum_length"]),
			Comment:    asString(row["column_comment"]),
		})
	}
	return columns, nil
}

func (r *MySQLReader) indexes(schema, table string) ([]models.IndexInfo, error) {
	query := `
		SELECT
			index_name,
			column_name,
			seq_in_index,
			non_unique,
			cardinality,
			index_type,
			index_comment
		FROM information_schema.statistics
		WHERE table_schema = ?
		AND table_name = ?
		ORDER BY index_name, seq_in_index
	`
	rows, err := r.DB.ExecuteQuery(query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %s: %w", table, err)
	}
	return FoldIndexRows(rows), nil
}

// indexBuild accumulates one index while folding statistics rows
type indexBuild struct {
	info      models.IndexInfo
	positions map[int64]indexPart
}

type indexPart struct {
	column      string
	cardinality int64
}

// FoldIndexRows groups statistics rows by index name. Positions may arrive sparse
// or out of order; the result has dense column and cardinality lists ordered by position.
func FoldIndexRows(rows []map[string]interface{}) []models.IndexInfo {
	builds := make(map[string]*indexBuild)
	var order []string

	// Group rows by index, keeping first-seen order
	for _, row := range rows {
		name := asString(row["index_name"])
		b, ok := builds[name]
		if !ok {
			method := asString(row["index_type"])
			if method == "" {
				method = "BTREE"
			}
			b = &indexBuild{
				info: models.IndexInfo{
					Name:      name,
					Unique:    asInt64(row["non_unique"]) == 0,
					IsPrimary: name == models.PrimaryIndexName,
					Method:    method,
					Comment:   asString(row["index_comment"]),
				},
				positions: make(map[int64]indexPart),
			}
			builds[name] = b
			order = append(order, name)
		}

		// expression indexes have no column name
		column := asString(row["column_name"])
		if column == "" {
			continue
		}
		b.positions[asInt64(row["seq_in_index"])] = indexPart{
			column:      column,
			cardinality: asInt64(row["cardinality"]),
		}
	}

	// Lay out each index's columns by their position in the index
	indexes := make([]models.IndexInfo, 0, len(order))
	for _, name := range order {
		b := builds[name]
		seqs := make([]int64, 0, len(b.positions))
		for seq := range b.positions {
			seqs = append(seqs, seq)
		}
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

		for _, seq := range seqs {
			part := b.positions[seq]
			b.info.Columns = append(b.info.Columns, part.column)
			b.info.Cardinality = append(b.info.Cardinality, part.cardinality)
		}
		indexes = append(indexes, b.info)
	}
	return indexes
}

func (r *MySQLReader) foreignKeys(schema, table string) ([]models.ForeignKeyInfo, error) {
	query := `
		SELECT
			k.constraint_name,
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints rc
		ON k.constraint_schema = rc.constraint_schema
		AND k.constraint_name = rc.constraint_name
		AND k.table_name = rc.table_name
		WHERE k.table_schema = ?
		AND k.table_name = ?
		AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position
	`
	rows, err := r.DB.ExecuteQuery(query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}

	fks := make([]models.ForeignKeyInfo, 0, len(rows))
	for _, row := range rows {
		fks = append(fks, models.ForeignKeyInfo{
			ConstraintName:   asString(row["constraint_name"]),
			Column:           asString(row["column_name"]),
			ReferencedTable:  asString(row["referenced_table_name"]),
			ReferencedColumn: asString(row["referenced_column_name"]),
			UpdateRule:       asString(row["update_rule"]),
			DeleteRule:       asString(row["delete_rule"]),
		})
	}
	return fks, nil
}

// rowCount counts rows exactly; a failure only makes the signal unavailable
func (r *MySQLReader) rowCount(schema, table string) models.Signal[int64] {
	query := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s.%s", QuoteIdentifier(schema), QuoteIdentifier(table))
	rows, err := r.DB.ExecuteQuery(query)
	if err != nil {
		r.Logger.Warningf("Could not count rows of %s: %v", table, err)
		return models.Unavailable[int64](err.Error())
	}
	if len(rows) == 0 {
		return models.Unavailable[int64]("empty count result")
	}
	return models.Present(asInt64(rows[0]["row_count"]))
}

// QuoteIdentifier back-quotes a MySQL identifier
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint64:
		return int64(val)
	case uint32:
		return int64(val)
	case float64:
		return int64(val)
	default:
		n, err := strconv.ParseInt(strings.TrimSpace(asString(val)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
}

func asOptionalInt64(v interface{}) *int64 {
	if v == nil {
		return nil
	}
	n := asInt64(v)
	return &n
}
