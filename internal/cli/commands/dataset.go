package commands

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"

	// SQL drivers available to fixture tables: "sqlite3", "postgres" and "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/internal/fixture"
)

// loadDataset reads the fixture at path and, when it names a database, loads its tables.
func (a *app) loadDataset(ctx context.Context, path string) (*fixture.Dataset, error) {
	schema, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	a.types = sortedTypes(schema)

	opts := []fixture.BuildOption{fixture.WithLogger(a.logger)}
	if schema.Database != nil && len(schema.Tables) > 0 {
		db, err := openDB(ctx, schema.Database)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		opts = append(opts, fixture.WithDB(db))
	}

	ds, err := fixture.Build(ctx, schema, opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("fixture loaded", zap.String("path", path), zap.Strings("types", ds.Types()))
	return ds, nil
}

func openDB(ctx context.Context, spec *fixture.DatabaseSpec) (*sql.DB, error) {
	db, err := sql.Open(spec.Driver, spec.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", spec.Driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", spec.Driver, err)
	}
	return db, nil
}

func sortedTypes(schema *fixture.Schema) []string {
	return slices.Sorted(maps.Keys(schema.Types))
}
