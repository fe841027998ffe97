package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	candidatedomain "github.com/smallbiznis/pricewatch/internal/candidate/domain"
	catalogdomain "github.com/smallbiznis/pricewatch/internal/catalog/domain"
	"github.com/smallbiznis/pricewatch/internal/config"
	fallbackdomain "github.com/smallbiznis/pricewatch/internal/fallback/domain"
	pricehistorydomain "github.com/smallbiznis/pricewatch/internal/pricehistory/domain"
	snapshotdomain "github.com/smallbiznis/pricewatch/internal/snapshot/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// Run brings the schema up to date for the connected dialect.
func Run(conn *gorm.DB, dbType string) error {
	if dbType == config.DBTypeSQLite {
		return AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded versioned SQL against Postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Product{},
		&catalogdomain.ProductIdentifier{},
		&catalogdomain.Store{},
		&pricehistorydomain.PriceObservation{},
		&snapshotdomain.PriceSnapshot{},
		&fallbackdomain.StoreFallback{},
		&candidatedomain.ExternalProductMap{},
		&candidatedomain.CandidateRecord{},
		&candidatedomain.AdoptionAnomaly{},
	}
}

// AutoMigrate builds the schema from the models. SQLite has no versioned
// migrations; local databases are rebuilt from the structs.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
