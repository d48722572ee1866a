package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the review schema up to date using the embedded
// goose migrations. Safe to run on every open; applied versions are
// skipped.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate review schema: %w", err)
	}

	return nil
}
