package cmd

import (
	"context"
	"fmt"

	"keymatch/core/config"
	"keymatch/core/database"
	"keymatch/core/match"
	"keymatch/core/store/pgstore"
	"keymatch/core/store/sqlstore"

	"go.uber.org/zap"
)

// openMatcher connects to the configured database and returns a matcher over
// it, with the function that releases the connection.
func openMatcher(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*match.Matcher, func(), error) {
	if !cfg.Database.IsValidDriver() {
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Database.Driver == database.DriverPostgres {
		pool, err := pgstore.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		logg.Info("Connected to database", zap.String("driver", database.DriverPostgres), zap.String("name", cfg.Database.Name))
		return match.New(pgstore.New(pool), cfg.Match, logg), pool.Close, nil
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	logg.Info("Connected to database", zap.String("driver", db.Dialector.Name()), zap.String("name", cfg.Database.Name))
	return match.New(sqlstore.New(db), cfg.Match, logg), func() { _ = sqlDB.Close() }, nil
}
