package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vitebski/mysql-analyzer/internal/naming"
	"github.com/vitebski/mysql-analyzer/pkg/models"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// AnalysisConfig holds the thresholds and filters consumed by the analyzers
type AnalysisConfig struct {
	MinSeverity               models.Severity  `yaml:"min_severity"`
	MaxIssuesPerTable         int              `yaml:"max_issues_per_table"`
	MinRowsForIndexStats      int64            `yaml:"min_rows_for_index_stats"`
	FragmentationMinFreeBytes int64            `yaml:"fragmentation_min_free_bytes"`
	FragmentationRatio        float64          `yaml:"fragmentation_ratio"`
	DedupSuggestions          bool             `yaml:"dedup_suggestions"`
	AnalyzeForeignKeyChains   bool             `yaml:"analyze_foreign_key_chains"`
	ForeignKeyColumnHeuristic naming.Heuristic `yaml:"foreign_key_column_heuristic"`
}

// OutputConfig holds where generated patches are written
type OutputConfig struct {
	PatchDir string `yaml:"patch_dir"`
}

// Config is built once at startup and passed to every component
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "3306",
			User: "root",
		},
		Analysis: AnalysisConfig{
			MinSeverity:               models.SeverityLow,
			MaxIssuesPerTable:         10,
			MinRowsForIndexStats:      1000,
			FragmentationMinFreeBytes: 10 * 1024 * 1024,
			FragmentationRatio:        0.2,
			DedupSuggestions:          true,
			AnalyzeForeignKeyChains:   true,
			ForeignKeyColumnHeuristic: naming.HeuristicSubstring,
		},
		Output: OutputConfig{
			PatchDir: ".",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at configPath, if any.
// Keys missing from the file keep their default values.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays values from the process environment.
// DB_* variables take precedence over the legacy MYSQL_* names.
func (c *Config) ApplyEnv() error {
	c.Database.Host = firstEnv(c.Database.Host, "DB_HOST", "MYSQL_HOST")
	c.Database.Port = firstEnv(c.Database.Port, "DB_PORT", "MYSQL_PORT")
	c.Database.User = firstEnv(c.Database.User, "DB_USER", "MYSQL_USER")
	c.Database.Password = firstEnv(c.Database.Password, "DB_PASSWORD", "MYSQL_PASSWORD")
	c.Database.Database = firstEnv(c.Database.Database, "DB_DATABASE", "MYSQL_DATABASE")

	if v, ok := os.LookupEnv("ANALYSIS_MIN_SEVERITY"); ok {
		c.Analysis.MinSeverity = models.Severity(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := os.LookupEnv("ANALYSIS_FK_HEURISTIC"); ok {
		c.Analysis.ForeignKeyColumnHeuristic = naming.Heuristic(strings.ToLower(strings.TrimSpace(v)))
	}
	c.Output.PatchDir = firstEnv(c.Output.PatchDir, "PATCH_DIR")

	var err error
	if c.Analysis.MaxIssuesPerTable, err = GetEnvInt("ANALYSIS_MAX_ISSUES_PER_TABLE", c.Analysis.MaxIssuesPerTable); err != nil {
		return err
	}
	if c.Analysis.MinRowsForIndexStats, err = GetEnvInt64("ANALYSIS_MIN_ROWS", c.Analysis.MinRowsForIndexStats); err != nil {
		return err
	}
	if c.Analysis.FragmentationMinFreeBytes, err = GetEnvInt64("ANALYSIS_FRAGMENTATION_MIN_BYTES", c.Analysis.FragmentationMinFreeBytes); err != nil {
		return err
	}
	if c.Analysis.FragmentationRatio, err = GetEnvFloat("ANALYSIS_FRAGMENTATION_RATIO", c.Analysis.FragmentationRatio); err != nil {
		return err
	}
	if c.Analysis.DedupSuggestions, err = GetEnvBool("ANALYSIS_DEDUP_SUGGESTIONS", c.Analysis.DedupSuggestions); err != nil {
		return err
	}
	if c.Analysis.AnalyzeForeignKeyChains, err = GetEnvBool("ANALYSIS_FK_CHAINS", c.Analysis.AnalyzeForeignKeyChains); err != nil {
		return err
	}

	return nil
}

// Validate rejects unknown enum values and negative thresholds
func (c *Config) Validate() error {
	if _, err := models.ParseSeverity(string(c.Analysis.MinSeverity)); err != nil {
		return fmt.Errorf("analysis.min_severity: %w", err)
	}
	h, ok := naming.ParseHeuristic(string(c.Analysis.ForeignKeyColumnHeuristic))
	if !ok {
		return fmt.Errorf("analysis.foreign_key_column_heuristic: unknown value %q (expected substring or suffix)", c.Analysis.ForeignKeyColumnHeuristic)
	}
	c.Analysis.ForeignKeyColumnHeuristic = h

	if c.Analysis.MaxIssuesPerTable < 0 {
		return fmt.Errorf("analysis.max_issues_per_table must not be negative, got %d", c.Analysis.MaxIssuesPerTable)
	}
	if c.Analysis.MinRowsForIndexStats < 0 {
		return fmt.Errorf("analysis.min_rows_for_index_stats must not be negative, got %d", c.Analysis.MinRowsForIndexStats)
	}
	if c.Analysis.FragmentationMinFreeBytes < 0 {
		return fmt.Errorf("analysis.fragmentation_min_free_bytes must not be negative, got %d", c.Analysis.FragmentationMinFreeBytes)
	}
	if c.Analysis.FragmentationRatio < 0 {
		return fmt.Errorf("analysis.fragmentation_ratio must not be negative, got %g", c.Analysis.FragmentationRatio)
	}
	if c.Database.Port != "" {
		if _, err := strconv.Atoi(c.Database.Port); err != nil {
			return fmt.Errorf("database.port: invalid port number %q", c.Database.Port)
		}
	}
	return nil
}

// GetEnvInt gets an integer value from an environment variable
func GetEnvInt(varName string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(varName))
	if value == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", varName, err)
	}
	return intValue, nil
}

// GetEnvInt64 gets a 64-bit integer value from an environment variable
func GetEnvInt64(varName string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(varName))
	if value == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", varName, err)
	}
	return intValue, nil
}

// GetEnvFloat gets a float value from an environment variable
func GetEnvFloat(varName string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(varName))
	if value == "" {
		return defaultValue, nil
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", varName, err)
	}
	return floatValue, nil
}

// GetEnvBool gets a boolean value from an environment variable
func GetEnvBool(varName string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(varName))
	if value == "" {
		return defaultValue, nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", varName, err)
	}
	return boolValue, nil
}

func firstEnv(current string, keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
	}
	return current
}
