package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// zapGooseLogger adapts zap.Logger to the goose.Logger interface.
type zapGooseLogger struct {
	log *zap.SugaredLogger
}

func (l *zapGooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

func (l *zapGooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, logger *zap.Logger, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetLogger(&zapGooseLogger{log: logger.Sugar()})
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("running postgres migrations")
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("postgres migrations completed")
	return nil
}
