package todoflow

import (
	"context"
	"fmt"

	"todoflow/repository/mysql"
	"todoflow/repository/postgres"
)

// RunMigrations explicitly applies the schema of the configured store.
// This can be called manually if AutoMigration is disabled
func (t *Todoflow) RunMigrations(ctx context.Context) error {
	log := t.logger.Named("migrations")
	switch {
	case t.pgPool != nil:
		return postgres.RunMigrations(ctx, t.pgPool, log)
	case t.db != nil:
		return mysql.RunMigrations(ctx, t.db, log)
	default:
		log.Debug("In-memory store needs no migrations")
		return nil
	}
}

// Close closes the database connection if Todoflow owns it.
// This is called automatically by Shutdown
func (t *Todoflow) Close() error {
	if t.pgPool == nil && t.db == nil {
		return nil
	}
	if !t.closeDB {
		return fmt.Errorf("database is not owned by Todoflow (shared mode)")
	}
	return t.closeDatabase()
}
