package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/JoshuaRamirez/ACS-sub017/internal/db/models"
	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
)

// BunSnapshotRepository stores one tenant's snapshot in the graph_nodes,
// graph_edges, uri_access, and tenant_meta tables.
type BunSnapshotRepository struct {
	db       *bun.DB
	tenantID string
}

// NewBunSnapshotRepository creates a repository bound to one tenant database.
func NewBunSnapshotRepository(db *bun.DB, tenantID string) *BunSnapshotRepository {
	return &BunSnapshotRepository{db: db, tenantID: tenantID}
}

// Load reads the full snapshot. Returns nil when no meta row exists yet.
func (r *BunSnapshotRepository) Load(ctx context.Context) (*graph.Snapshot, error) {
	meta := new(models.TenantMeta)
	err := r.db.NewSelect().Model(meta).Where("tm.id = 1").Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant meta: %w", err)
	}

	var nodes []models.GraphNode
	if err := r.db.NewSelect().Model(&nodes).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	var edges []models.GraphEdge
	if err := r.db.NewSelect().Model(&edges).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	var access []models.UriAccess
	if err := r.db.NewSelect().Model(&access).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load uri access: %w", err)
	}

	snap := &graph.Snapshot{NextID: meta.NextID}
	for _, n := range nodes {
		row := graph.NodeRow{ID: n.ID, EntityID: n.EntityID, Name: n.Name}
		switch n.Kind {
		case models.NodeKindUser:
			snap.Users = append(snap.Users, row)
		case models.NodeKindGroup:
			snap.Groups = append(snap.Groups, row)
		case models.NodeKindRole:
			snap.Roles = append(snap.Roles, row)
		default:
			return nil, fmt.Errorf("unknown node kind %q for node %d", n.Kind, n.ID)
		}
	}
	for _, e := range edges {
		snap.Edges = append(snap.Edges, graph.EdgeRow{Kind: e.Kind, FromID: e.FromID, ToID: e.ToID})
	}
	for _, a := range access {
		snap.Access = append(snap.Access, graph.AccessRow{
			EntityID: a.EntityID, Scheme: a.Scheme, URI: a.URI, Verb: a.Verb, Grant: a.Grant,
		})
	}
	return snap, nil
}

// Save replaces the stored snapshot in one transaction.
func (r *BunSnapshotRepository) Save(ctx context.Context, snap *graph.Snapshot) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Edges go before nodes so the delete order satisfies the foreign
		// keys on PostgreSQL.
		for _, table := range []any{
			(*models.GraphEdge)(nil), (*models.UriAccess)(nil),
			(*models.GraphNode)(nil), (*models.TenantMeta)(nil),
		} {
			if _, err := tx.NewDelete().Model(table).Where("1 = 1").Exec(ctx); err != nil {
				return fmt.Errorf("clear table: %w", err)
			}
		}

		var nodes []models.GraphNode
		appendNodes := func(kind string, rows []graph.NodeRow) {
			for _, row := range rows {
				nodes = append(nodes, models.GraphNode{
					ID: row.ID, EntityID: row.EntityID, Kind: kind, Name: row.Name,
				})
			}
		}
		appendNodes(models.NodeKindUser, snap.Users)
		appendNodes(models.NodeKindGroup, snap.Groups)
		appendNodes(models.NodeKindRole, snap.Roles)
		if len(nodes) > 0 {
			if _, err := tx.NewInsert().Model(&nodes).Exec(ctx); err != nil {
				return fmt.Errorf("insert nodes: %w", err)
			}
		}

		if len(snap.Edges) > 0 {
			edges := make([]models.GraphEdge, 0, len(snap.Edges))
			for _, e := range snap.Edges {
				edges = append(edges, models.GraphEdge{Kind: e.Kind, FromID: e.FromID, ToID: e.ToID})
			}
			if _, err := tx.NewInsert().Model(&edges).Exec(ctx); err != nil {
				return fmt.Errorf("insert edges: %w", err)
			}
		}

		if len(snap.Access) > 0 {
			access := make([]models.UriAccess, 0, len(snap.Access))
			for _, a := range snap.Access {
				access = append(access, models.UriAccess{
					EntityID: a.EntityID, Scheme: a.Scheme, URI: a.URI, Verb: a.Verb, Grant: a.Grant,
				})
			}
			if _, err := tx.NewInsert().Model(&access).Exec(ctx); err != nil {
				return fmt.Errorf("insert uri access: %w", err)
			}
		}

		meta := models.TenantMeta{ID: 1, TenantID: r.tenantID, NextID: snap.NextID, SavedAt: time.Now().UTC()}
		if _, err := tx.NewInsert().Model(&meta).Exec(ctx); err != nil {
			return fmt.Errorf("insert tenant meta: %w", err)
		}
		return nil
	})
}
