package analyzer

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-analyzer/pkg/models"
	"go.uber.org/multierr"
)

// Check is one independent detector over a table snapshot
type Check struct {
	Name string
	Run  func(table *models.TableMetadata) []models.Finding
}

// Analyzer groups the checks of one finding category
type Analyzer interface {
	Category() models.Category
	Checks() []Check
}

// RunChecks runs every check of an analyzer against one table. A check that
// panics contributes no findings; its failure is logged and returned in the
// combined error while the remaining checks still run.
func RunChecks(a Analyzer, table *models.TableMetadata, logger *logrus.Logger) ([]models.Finding, error) {
	var findings []models.Finding
	var errs error

	for _, check := range a.Checks() {
		found, err := runCheck(check, table)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"table":    table.Name,
				"detector": fmt.Sprintf("%s/%s", a.Category(), check.Name),
			}).Warnf("Detector failed: %v", err)
			errs = multierr.Append(errs, err)
			continue
		}
		findings = append(findings, found...)
	}

	return findings, errs
}

func runCheck(check Check, table *models.TableMetadata) (found []models.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("%s check on table %s: %v", check.Name, table.Name, r)
		}
	}()
	return check.Run(table), nil
}

// nonEmpty drops blank column names left by expression index parts
func nonEmpty(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
