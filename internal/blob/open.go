package blob

import (
	"context"
	"fmt"

	"github.com/playperu/harvest/internal/database"
	"github.com/playperu/harvest/internal/migrations"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
)

// Options selects a backend and carries its connection settings. Only the
// fields of the chosen backend are read.
type Options struct {
	Backend            string
	SQLitePath         string
	RedisURL           string
	PostgresURL        string
	GCSBucket          string
	GCSCredentialsFile string
}

// Open connects to the configured backend. The SQLite backend is
// migrated before it is returned.
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Backend {
	case BackendMemory:
		return NewMemory(), nil

	case BackendSQLite, "":
		db, err := database.Open(ctx, o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if _, err := migrations.Run(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLite(db), nil

	case BackendRedis:
		s, err := OpenRedis(ctx, o.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, nil

	case BackendPostgres:
		s, err := OpenPostgres(ctx, o.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return s, nil

	case BackendGCS:
		s, err := OpenGCS(ctx, o.GCSBucket, o.GCSCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("opening gcs bucket: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", o.Backend)
	}
}
