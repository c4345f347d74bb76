// Package models defines the storage rows for a tenant's graph snapshot.
// Persistence is a thin collaborator: the worker loads one snapshot at
// startup and writes one after each applied mutation. The in-memory graph,
// not these tables, is the source of truth while a worker is running.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Node kinds stored in graph_nodes.
const (
	NodeKindUser  = "user"
	NodeKindGroup = "group"
	NodeKindRole  = "role"
)

// GraphNode is one user, group, or role together with its entity id.
type GraphNode struct {
	bun.BaseModel `bun:"table:graph_nodes,alias:n"`

	ID       int64  `bun:"id,pk"`
	EntityID int64  `bun:"entity_id,notnull"`
	Kind     string `bun:"kind,notnull"`
	Name     string `bun:"name,notnull"`
}

// GraphEdge is one membership or hierarchy edge.
type GraphEdge struct {
	bun.BaseModel `bun:"table:graph_edges,alias:e"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Kind   string `bun:"kind,notnull"`
	FromID int64  `bun:"from_id,notnull"`
	ToID   int64  `bun:"to_id,notnull"`
}

// UriAccess is one grant-or-deny rule on an entity's scheme.
type UriAccess struct {
	bun.BaseModel `bun:"table:uri_access,alias:ua"`

	ID       int64  `bun:"id,pk,autoincrement"`
	EntityID int64  `bun:"entity_id,notnull"`
	Scheme   string `bun:"scheme,notnull"`
	URI      string `bun:"uri,notnull"`
	Verb     string `bun:"verb,notnull"`
	Grant    bool   `bun:"grant,notnull"`
}

// TenantMeta is the single bookkeeping row per tenant database.
type TenantMeta struct {
	bun.BaseModel `bun:"table:tenant_meta,alias:tm"`

	ID       int64     `bun:"id,pk"`
	TenantID string    `bun:"tenant_id,notnull"`
	NextID   int64     `bun:"next_id,notnull"`
	SavedAt  time.Time `bun:"saved_at,notnull"`
}
