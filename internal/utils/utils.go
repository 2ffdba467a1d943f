package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/internal/analyzer"
	"github.com/vitebski/mysql-analyzer/pkg/models"
	"go.uber.org/multierr"
)

var severityColors = map[models.Severity]func(a ...interface{}) string{
	models.SeverityCritical: color.New(color.FgRed, color.Bold).SprintFunc(),
	models.SeverityHigh:     color.New(color.FgRed).SprintFunc(),
	models.SeverityMedium:   color.New(color.FgYellow).SprintFunc(),
	models.SeverityLow:      color.New(color.FgCyan).SprintFunc(),
}

var (
	headingFmt = color.New(color.Bold).SprintFunc()
	okFmt      = color.New(color.FgGreen).SprintFunc()
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Flag first, then environment
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = os.Getenv("MYSQL_LOG_LEVEL")
	}
	if levelStr == "" {
		levelStr = "info"
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// connectionVars pairs each required setting with its legacy name
var connectionVars = [][2]string{
	{"DB_HOST", "MYSQL_HOST"},
	{"DB_USER", "MYSQL_USER"},
	{"DB_PASSWORD", "MYSQL_PASSWORD"},
	{"DB_DATABASE", "MYSQL_DATABASE"},
}

// LoadEnvironmentVariables loads environment variables from .env file and
// reports whether every connection setting is present
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	var missingVars []string
	for _, pair := range connectionVars {
		if os.Getenv(pair[0]) == "" && os.Getenv(pair[1]) == "" {
			missingVars = append(missingVars, pair[0])
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing connection environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "DB_") && !strings.HasPrefix(env, "MYSQL_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if strings.HasSuffix(parts[0], "_PASSWORD") {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(host, user, password, database, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// NewProgressBar creates a terminal progress bar over total steps
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// SeverityLabel renders a severity as a colored upper-case tag
func SeverityLabel(s models.Severity) string {
	label := "[" + strings.ToUpper(string(s)) + "]"
	if paint, ok := severityColors[s]; ok {
		return paint(label)
	}
	return label
}

// PrintAnalysisReport writes a per-table summary of the findings, showing at most
// maxIssuesPerTable findings per table (all when zero)
func PrintAnalysisReport(w io.Writer, title string, report *analyzer.Report, maxIssuesPerTable int) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, headingFmt(fmt.Sprintf("%s: %s", strings.ToUpper(title), report.Schema)))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Tables analyzed: %d\n", report.TablesAnalyzed)

	counts := report.CountBySeverity()
	fmt.Fprintf(w, "Findings: %d (critical: %d, high: %d, medium: %d, low: %d)\n",
		report.Total(),
		counts[models.SeverityCritical], counts[models.SeverityHigh],
		counts[models.SeverityMedium], counts[models.SeverityLow])

	if report.Total() == 0 {
		fmt.Fprintln(w, okFmt("\nNo issues found"))
	}

	for _, table := range report.Tables() {
		findings := report.Findings[table]
		fmt.Fprintf(w, "\n%s (%d issues)\n", headingFmt(table), len(findings))

		shown := findings
		if maxIssuesPerTable > 0 && len(shown) > maxIssuesPerTable {
			shown = shown[:maxIssuesPerTable]
		}
		for _, f := range shown {
			fmt.Fprintf(w, "  %s %s: %s\n", SeverityLabel(f.Severity), f.Kind, f.Description)
		}
		if hidden := len(findings) - len(shown); hidden > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", hidden)
		}
	}

	if errs := multierr.Errors(report.DetectorErrors); len(errs) > 0 {
		fmt.Fprintf(w, "\n%d detector(s) failed:\n", len(errs))
		for _, err := range errs {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// SavePatchFile writes patch content into dir, creating it if needed, and returns the file path
func SavePatchFile(content, filename, dir string, logger *logrus.Logger) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating patch directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing patch file %s: %w", path, err)
	}

	logger.Infof("Patch written to %s", path)
	return path, nil
}
