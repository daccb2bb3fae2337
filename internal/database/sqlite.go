package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gradescout/gradescout/internal/models"
)

var DB *gorm.DB

// migrationOrder is the explicit, dependency-ordered list of tables.
// Parents come before children so foreign keys always have a target.
var migrationOrder = []any{
	&models.Set{},
	&models.SetDetails{},
	&models.Card{},
	&models.CardStat{},
	&models.PsaPopulation{},
	&models.CardAnalytics{},
	&models.GradingFinancials{},
	&models.CardSales{},
	&models.Transaction{},
	&models.TCGPlayerSale{},
	&models.EbayAverage{},
	&models.SalesVolume{},
	&models.GemRateRefreshLog{},
	&models.SalesVolumeRefreshLog{},
}

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	if err := DB.AutoMigrate(migrationOrder...); err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

// Open creates a standalone connection with the full schema applied.
// Used by the backfill CLI and tests, which manage their own handle
// instead of the process-wide one.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(migrationOrder...); err != nil {
		return nil, err
	}
	return db, nil
}
