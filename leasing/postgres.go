package leasing

import (
	"context"
	"time"

	// registers the "pgx" driver name with database/sql.
	_ "github.com/jackc/pgx/stdlib"

	"github.com/jmoiron/sqlx"
)

// Open connects to Postgres via pgx/sqlx and verifies the connection with a
// bounded ping.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(32)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}
