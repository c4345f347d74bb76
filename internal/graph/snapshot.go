package graph

// Edge kinds used in snapshots.
const (
	EdgeUserGroup  = "user_group"
	EdgeUserRole   = "user_role"
	EdgeGroupRole  = "group_role"
	EdgeGroupChild = "group_child"
)

// Snapshot is the flat, storage-friendly form of a graph. The persistence
// layer reads and writes snapshots; it never touches the live graph.
type Snapshot struct {
	NextID int64
	Users  []NodeRow
	Groups []NodeRow
	Roles  []NodeRow
	Edges  []EdgeRow
	Access []AccessRow
}

// NodeRow is one user, group, or role.
type NodeRow struct {
	ID       int64
	EntityID int64
	Name     string
}

// EdgeRow is one membership or hierarchy edge. For EdgeGroupChild, FromID is
// the parent and ToID the child.
type EdgeRow struct {
	Kind   string
	FromID int64
	ToID   int64
}

// AccessRow is one UriAccess entry on an entity's scheme.
type AccessRow struct {
	EntityID int64
	Scheme   string
	URI      string
	Verb     string
	Grant    bool
}

// Snapshot flattens the graph.
func (g *Graph) Snapshot() *Snapshot {
	snap := &Snapshot{NextID: g.nextID}
	for _, u := range g.users {
		snap.Users = append(snap.Users, NodeRow{ID: u.ID, EntityID: u.EntityID, Name: u.Name})
		for gid := range u.groups {
			snap.Edges = append(snap.Edges, EdgeRow{Kind: EdgeUserGroup, FromID: u.ID, ToID: gid})
		}
		for rid := range u.roles {
			snap.Edges = append(snap.Edges, EdgeRow{Kind: EdgeUserRole, FromID: u.ID, ToID: rid})
		}
	}
	for _, grp := range g.groups {
		snap.Groups = append(snap.Groups, NodeRow{ID: grp.ID, EntityID: grp.EntityID, Name: grp.Name})
		for rid := range grp.roles {
			snap.Edges = append(snap.Edges, EdgeRow{Kind: EdgeGroupRole, FromID: grp.ID, ToID: rid})
		}
		for cid := range grp.children {
			snap.Edges = append(snap.Edges, EdgeRow{Kind: EdgeGroupChild, FromID: grp.ID, ToID: cid})
		}
	}
	for _, r := range g.roles {
		snap.Roles = append(snap.Roles, NodeRow{ID: r.ID, EntityID: r.EntityID, Name: r.Name})
	}
	for _, e := range g.entities {
		for _, s := range e.Schemes {
			for _, a := range s.Access {
				snap.Access = append(snap.Access, AccessRow{
					EntityID: e.ID, Scheme: s.Name, URI: a.URI, Verb: a.Verb, Grant: a.Grant,
				})
			}
		}
	}
	return snap
}

// Restore builds a graph from a snapshot. Edges are replayed through the
// normalizers so a snapshot that violates the structural invariants is
// rejected rather than loaded.
func Restore(snap *Snapshot) (*Graph, error) {
	g := New()
	entityType := func(kind EntityType, row NodeRow) {
		g.entities[row.EntityID] = &Entity{ID: row.EntityID, Type: kind, OwnerID: row.ID}
	}
	for _, row := range snap.Users {
		u := &User{ID: row.ID, EntityID: row.EntityID, Name: row.Name, groups: make(idSet), roles: make(idSet)}
		g.users[u.ID] = u
		entityType(EntityTypeUser, row)
	}
	for _, row := range snap.Groups {
		grp := &Group{
			ID: row.ID, EntityID: row.EntityID, Name: row.Name,
			users: make(idSet), roles: make(idSet), parents: make(idSet), children: make(idSet),
		}
		g.groups[grp.ID] = grp
		entityType(EntityTypeGroup, row)
	}
	for _, row := range snap.Roles {
		r := &Role{ID: row.ID, EntityID: row.EntityID, Name: row.Name, users: make(idSet), groups: make(idSet)}
		g.roles[r.ID] = r
		entityType(EntityTypeRole, row)
	}
	for _, edge := range snap.Edges {
		var err error
		switch edge.Kind {
		case EdgeUserGroup:
			err = g.AddUserToGroup(edge.FromID, edge.ToID)
		case EdgeUserRole:
			err = g.AssignUserToRole(edge.FromID, edge.ToID)
		case EdgeGroupRole:
			err = g.AddRoleToGroup(edge.ToID, edge.FromID)
		case EdgeGroupChild:
			err = g.AddGroupToGroup(edge.FromID, edge.ToID)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, a := range snap.Access {
		if err := g.AddAccess(a.EntityID, a.Scheme, a.URI, a.Verb, a.Grant); err != nil {
			return nil, err
		}
	}
	if snap.NextID > g.nextID {
		g.nextID = snap.NextID
	}
	return g, nil
}
