package connector

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// ErrNoDatabase is returned when no schema name was configured
var ErrNoDatabase = errors.New("database name must be provided either as an argument or as DB_DATABASE/MYSQL_DATABASE environment variable")

// DatabaseConnector handles the read-only connection used to inspect the catalog
type DatabaseConnector struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a new database connector, filling blanks from the environment
func NewDatabaseConnector(host, user, password, database, port string, logger *logrus.Logger) *DatabaseConnector {
	if host == "" {
		host = getEnvOrDefault("localhost", "DB_HOST", "MYSQL_HOST")
	}
	if user == "" {
		user = getEnvOrDefault("root", "DB_USER", "MYSQL_USER")
	}
	if password == "" {
		password = getEnvOrDefault("", "DB_PASSWORD", "MYSQL_PASSWORD")
	}
	if database == "" {
		database = getEnvOrDefault("", "DB_DATABASE", "MYSQL_DATABASE")
	}
	if port == "" {
		port = getEnvOrDefault("3306", "DB_PORT", "MYSQL_PORT")
	}

	return &DatabaseConnector{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// DSN builds the driver connection string
func (dc *DatabaseConnector) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.User
	cfg.Passwd = dc.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", dc.Host, dc.Port)
	cfg.DBName = dc.Database
	cfg.ParseTime = true
	cfg.Timeout = 10 * time.Second
	cfg.ReadTimeout = 60 * time.Second
	return cfg.FormatDSN()
}

// Connect establishes a connection to the MySQL database
func (dc *DatabaseConnector) Connect() error {
	if dc.Database == "" {
		return ErrNoDatabase
	}

	db, err := sql.Open("mysql", dc.DSN())
	if err != nil {
		dc.Logger.Errorf("Error connecting to MySQL database: %v", err)
		return err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		dc.Logger.Errorf("Error pinging MySQL database: %v", err)
		db.Close()
		return fmt.Errorf("cannot reach MySQL at %s:%s: %w", dc.Host, dc.Port, err)
	}

	db.SetMaxOpenConns(2)
	dc.DB = db
	dc.Logger.Infof("Connected to MySQL database: %s", dc.Database)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Info("MySQL connection closed")
		}
	}
}

// ExecuteQuery executes a SQL query and returns the rows keyed by lower-cased column name
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Debugf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// information_schema returns upper-case names on MySQL 8
			key := strings.ToLower(col)
			if b, ok := values[i].([]byte); ok {
				row[key] = string(b)
			} else {
				row[key] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// getEnvOrDefault returns the first set environment variable among keys
func getEnvOrDefault(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
	}
	return defaultValue
}
