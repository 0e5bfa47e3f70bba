package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"

	// Storage backends register their URL schemes in init().
	_ "github.com/kozaktomas/face-attendance/internal/database/gormdb"
	_ "github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// openStore connects to DATABASE_URL and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	logrus.WithField("backend", database.Scheme(cfg.Database.URL)).Info("connecting to database")
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newService builds the attendance service for the configured extractor model.
func newService(cfg *config.Config, store database.Store, opts ...attendance.Option) (*attendance.Service, error) {
	cal, err := cfg.Calibration()
	if err != nil {
		return nil, err
	}
	ext, err := extractor.New(cfg.Extractor, cal)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	opts = append([]attendance.Option{attendance.WithMaxImageSize(cfg.Extractor.MaxImageSize)}, opts...)
	return attendance.NewService(store, ext, cal.Tolerance, opts...), nil
}
