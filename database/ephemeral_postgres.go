package database

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// EphemeralPostgres is a throwaway PostgreSQL instance for development and
// tests. Everything in it is destroyed on Cleanup.
type EphemeralPostgres struct {
	server *postgrestest.Server
	DSN    string
}

// SetupEphemeralPostgres creates an ephemeral PostgreSQL instance and a fresh
// database inside it
func SetupEphemeralPostgres() (*EphemeralPostgres, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	ctx := context.Background()

	// Uses a temporary directory by default for simplicity
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	Logger.Info("Ephemeral PostgreSQL server started", "dsn", pgt.DefaultDatabase())

	// Create a new database for the application
	godeckDSN, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to create godeck database: %w", err)
	}

	Logger.Info("Created ephemeral database", "dsn", godeckDSN)

	return &EphemeralPostgres{
		server: pgt,
		DSN:    godeckDSN,
	}, nil
}

// Cleanup stops the ephemeral server and deletes its data
func (e *EphemeralPostgres) Cleanup() {
	if e.server != nil {
		Logger.Info("Cleaning up ephemeral PostgreSQL server...")
		e.server.Cleanup()
		Logger.Info("Ephemeral PostgreSQL server cleaned up")
	}
}
