package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aau-network-security/certscore/models"
	"github.com/jinzhu/gorm"
)

func SkipCI(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping testing in CI environment")
	}
}

// ResetDb drops the output tables and recreates them, leaving the input table untouched
func ResetDb(g *gorm.DB) error {
	tables := []string{
		"certificate_features",
		"issuers",
		"runs",
	}

	for _, table := range tables {
		qry := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if err := g.Exec(qry).Error; err != nil {
			return err
		}
	}

	migrateExamples := []interface{}{
		&models.Features{},
		&models.Issuer{},
		&models.Run{},
	}
	for _, ex := range migrateExamples {
		if err := g.AutoMigrate(ex).Error; err != nil {
			return err
		}
	}
	return nil
}
