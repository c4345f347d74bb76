package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/JoshuaRamirez/ACS-sub017/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260815000000, down_20260815000000)
}

// up_20260815000000 creates the tenant snapshot tables.
func up_20260815000000(ctx context.Context, db *bun.DB) error {
	for _, table := range []any{
		(*models.GraphNode)(nil),
		(*models.GraphEdge)(nil),
		(*models.UriAccess)(nil),
		(*models.TenantMeta)(nil),
	} {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", table, err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_graph_edges_from ON graph_edges(kind, from_id)`); err != nil {
		return fmt.Errorf("failed to create edge index: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_uri_access_entity ON uri_access(entity_id)`); err != nil {
		return fmt.Errorf("failed to create uri_access index: %w", err)
	}

	// Edge integrity constraints (PostgreSQL only).
	// SQLite requires foreign keys at table creation time; there the
	// foreign_keys pragma plus the repository replacing the whole snapshot
	// per save keeps stale edges from surviving a transaction.
	if IsSQLite(db) {
		// The pragma is per-connection; set it here too in case the
		// migration runs on a connection the provider did not configure.
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if IsPostgreSQL(db) {
		if _, err := db.Exec(`
			ALTER TABLE graph_edges
			ADD CONSTRAINT fk_graph_edges_from
			FOREIGN KEY (from_id) REFERENCES graph_nodes(id) ON DELETE CASCADE
		`); err != nil {
			return fmt.Errorf("failed to add FK constraint on from_id: %w", err)
		}
		if _, err := db.Exec(`
			ALTER TABLE graph_edges
			ADD CONSTRAINT fk_graph_edges_to
			FOREIGN KEY (to_id) REFERENCES graph_nodes(id) ON DELETE CASCADE
		`); err != nil {
			return fmt.Errorf("failed to add FK constraint on to_id: %w", err)
		}
	}
	return nil
}

// down_20260815000000 drops the tenant snapshot tables.
func down_20260815000000(ctx context.Context, db *bun.DB) error {
	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE graph_edges DROP CONSTRAINT IF EXISTS fk_graph_edges_from`); err != nil {
			return fmt.Errorf("failed to drop FK constraint on from_id: %w", err)
		}
		if _, err := db.Exec(`ALTER TABLE graph_edges DROP CONSTRAINT IF EXISTS fk_graph_edges_to`); err != nil {
			return fmt.Errorf("failed to drop FK constraint on to_id: %w", err)
		}
	}

	for _, table := range []any{
		(*models.TenantMeta)(nil),
		(*models.UriAccess)(nil),
		(*models.GraphEdge)(nil),
		(*models.GraphNode)(nil),
	} {
		if _, err := db.NewDropTable().Model(table).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", table, err)
		}
	}
	return nil
}
