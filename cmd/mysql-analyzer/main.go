package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-analyzer/internal/analyzer"
	"github.com/vitebski/mysql-analyzer/internal/catalog"
	"github.com/vitebski/mysql-analyzer/internal/config"
	"github.com/vitebski/mysql-analyzer/internal/connector"
	"github.com/vitebski/mysql-analyzer/internal/patch"
	"github.com/vitebski/mysql-analyzer/internal/utils"
	"github.com/vitebski/mysql-analyzer/pkg/models"
)

// options collects the persistent flags shared by every subcommand
type options struct {
	host       string
	user       string
	password   string
	database   string
	port       string
	envFile    string
	configPath string
	logLevel   string
}

// session is an open connection plus the resolved configuration
type session struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *connector.DatabaseConnector
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "mysql-analyzer",
		Short: "Analyze MySQL schemas and generate SQL patches for the issues found",
		Long: `MySQL Analyzer

Reads catalog metadata of a MySQL database and reports naming, index,
schema and performance issues, optionally as reviewable SQL patches.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.host, "host", "H", "", "MySQL host (default: localhost)")
	flags.StringVarP(&opts.user, "user", "u", "", "MySQL user (default: root)")
	flags.StringVarP(&opts.password, "password", "p", "", "MySQL password")
	flags.StringVarP(&opts.database, "database", "d", "", "MySQL database name")
	flags.StringVarP(&opts.port, "port", "P", "", "MySQL port (default: 3306)")
	flags.StringVarP(&opts.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		categoryCommand(opts, "indexes", "Analyze index naming, redundancy and cardinality", models.CategoryIndex),
		categoryCommand(opts, "schema", "Analyze storage engine, charset, key capacity and foreign key indexes", models.CategorySchema),
		categoryCommand(opts, "performance", "Analyze index usage and table fragmentation", models.CategoryPerformance),
		categoryCommand(opts, "naming", "Analyze table, column and index naming conventions", models.CategoryNaming),
		analyzeCommand(opts),
		patchCommand(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func categoryCommand(opts *options, use, short string, category models.Category) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.db.Disconnect()

			report, err := s.run(category)
			if err != nil {
				return err
			}
			utils.PrintAnalysisReport(cmd.OutOrStdout(), string(category)+" analysis", report, s.cfg.Analysis.MaxIssuesPerTable)
			return nil
		},
	}
}

func analyzeCommand(opts *options) *cobra.Command {
	var writePatch bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run every analyzer and print a combined report",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.db.Disconnect()

			report, err := s.run()
			if err != nil {
				return err
			}
			utils.PrintAnalysisReport(cmd.OutOrStdout(), "comprehensive analysis", report, s.cfg.Analysis.MaxIssuesPerTable)

			if !writePatch {
				return nil
			}
			return s.savePatch(report, patch.ComprehensiveType, outputDir)
		},
	}

	cmd.Flags().BoolVar(&writePatch, "patch", false, "Also write a comprehensive SQL patch")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the patch file (default: output.patch_dir or PATCH_DIR)")
	return cmd
}

func patchCommand(opts *options) *cobra.Command {
	var patchType string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Generate a SQL patch file for the issues found",
		RunE: func(cmd *cobra.Command, args []string) error {
			var categories []models.Category
			if !strings.EqualFold(patchType, patch.ComprehensiveType) {
				category, err := models.ParseCategory(patchType)
				if err != nil {
					return fmt.Errorf("--type: %w", err)
				}
				categories = append(categories, category)
			}

			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.db.Disconnect()

			report, err := s.run(categories...)
			if err != nil {
				return err
			}
			return s.savePatch(report, patchType, outputDir)
		},
	}

	cmd.Flags().StringVarP(&patchType, "type", "t", patch.ComprehensiveType, "Patch type: comprehensive, index, schema, performance or naming")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the patch file (default: output.patch_dir or PATCH_DIR)")
	return cmd
}

// openSession resolves configuration (defaults, YAML file, environment, flags)
// and connects to the database
func openSession(opts *options) (*session, error) {
	logger := utils.SetupLogging(opts.logLevel)
	utils.LoadEnvironmentVariables(opts.envFile, logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbCfg := cfg.Database
	if !utils.ValidateConnectionParams(dbCfg.Host, dbCfg.User, dbCfg.Password, dbCfg.Database, dbCfg.Port, logger) {
		return nil, fmt.Errorf("invalid connection parameters")
	}

	db := connector.NewDatabaseConnector(dbCfg.Host, dbCfg.User, dbCfg.Password, dbCfg.Database, dbCfg.Port, logger)
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &session{cfg: cfg, logger: logger, db: db}, nil
}

func applyFlags(cfg *config.Config, opts *options) {
	if opts.host != "" {
		cfg.Database.Host = opts.host
	}
	if opts.user != "" {
		cfg.Database.User = opts.user
	}
	if opts.password != "" {
		cfg.Database.Password = opts.password
	}
	if opts.database != "" {
		cfg.Database.Database = opts.database
	}
	if opts.port != "" {
		cfg.Database.Port = opts.port
	}
}

// run analyzes the configured schema with a progress bar over the tables
func (s *session) run(categories ...models.Category) (*analyzer.Report, error) {
	runner := analyzer.NewRunner(catalog.NewMySQLReader(s.db, s.logger), &s.cfg.Analysis, s.logger)

	var bar *progressbar.ProgressBar
	runner.OnStart = func(tables int) {
		bar = utils.NewProgressBar(tables, "Reading tables")
	}
	runner.OnTable = func(string) {
		if bar != nil {
			bar.Add(1)
		}
	}

	report, err := runner.Run(s.cfg.Database.Database, categories...)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	if report.DetectorErrors != nil {
		s.logger.Warnf("Some detectors failed; their findings are missing from the report")
	}
	return report, nil
}

func (s *session) savePatch(report *analyzer.Report, patchType, outputDir string) error {
	generator := patch.NewGenerator(s.logger)
	content, err := generator.Generate(report.Schema, report.Findings, patchType)
	if err != nil {
		return err
	}

	if outputDir == "" {
		outputDir = s.cfg.Output.PatchDir
	}
	path, err := utils.SavePatchFile(content, generator.Filename(report.Schema, patchType), outputDir, s.logger)
	if err != nil {
		return err
	}

	if report.Total() == 0 {
		fmt.Println("No issues found - the patch contains no statements")
	}
	fmt.Printf("Patch file: %s\n", path)
	return nil
}
