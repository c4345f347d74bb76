// Package graph holds the in-memory authorization graph for a single tenant:
// users, groups, roles, their membership edges, and the permission schemes
// attached to each entity.
//
// All objects live in id-indexed registries owned by the Graph. Relationship
// edges are kept as id sets on both sides and may only be changed through the
// normalizer methods in normalize.go, which apply both sides atomically. The
// Graph itself is not safe for concurrent use; the command engine serializes
// every mutation and read against it.
package graph

import (
	"fmt"
	"sort"
)

// EntityType distinguishes the three kinds of permission-bearing entities.
type EntityType string

const (
	EntityTypeUser  EntityType = "user"
	EntityTypeGroup EntityType = "group"
	EntityTypeRole  EntityType = "role"
)

// UriAccess is one grant-or-deny rule for a (URI, HTTP verb) pair. Exactly one
// of Grant/Deny is true; AddAccess enforces the invariant on insert.
type UriAccess struct {
	URI   string
	Verb  string
	Grant bool
	Deny  bool
}

// Scheme binds a named bundle of UriAccess rows to an entity.
type Scheme struct {
	Name   string
	Access []UriAccess
}

// Entity is the permission-bearing identity owned by exactly one user, group,
// or role.
type Entity struct {
	ID      int64
	Type    EntityType
	OwnerID int64
	Schemes []*Scheme
}

type idSet map[int64]struct{}

func (s idSet) add(id int64)      { s[id] = struct{}{} }
func (s idSet) remove(id int64)   { delete(s, id) }
func (s idSet) has(id int64) bool { _, ok := s[id]; return ok }

func (s idSet) sorted() []int64 {
	if len(s) == 0 {
		return nil
	}
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// User is a principal with group memberships and directly assigned roles.
type User struct {
	ID       int64
	EntityID int64
	Name     string
	groups   idSet
	roles    idSet
}

// Group is a named collection of users and roles. Groups form a directed
// acyclic hierarchy through parent/child edges.
type Group struct {
	ID       int64
	EntityID int64
	Name     string
	users    idSet
	roles    idSet
	parents  idSet
	children idSet
}

// Role is a named permission bundle assignable to users and groups.
type Role struct {
	ID       int64
	EntityID int64
	Name     string
	users    idSet
	groups   idSet
}

// Graph is the arena holding one tenant's authorization state.
type Graph struct {
	users    map[int64]*User
	groups   map[int64]*Group
	roles    map[int64]*Role
	entities map[int64]*Entity
	nextID   int64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		users:    make(map[int64]*User),
		groups:   make(map[int64]*Group),
		roles:    make(map[int64]*Role),
		entities: make(map[int64]*Entity),
		nextID:   1,
	}
}

func (g *Graph) allocID() int64 {
	id := g.nextID
	g.nextID++
	return id
}

func (g *Graph) newEntity(t EntityType, ownerID int64) *Entity {
	e := &Entity{ID: g.allocID(), Type: t, OwnerID: ownerID}
	g.entities[e.ID] = e
	return e
}

// CreateUser adds a user and its entity to the graph.
func (g *Graph) CreateUser(name string) (*User, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: user name is required", ErrValidationFailed)
	}
	u := &User{
		ID:     g.allocID(),
		Name:   name,
		groups: make(idSet),
		roles:  make(idSet),
	}
	u.EntityID = g.newEntity(EntityTypeUser, u.ID).ID
	g.users[u.ID] = u
	return u, nil
}

// CreateGroup adds a group and its entity to the graph.
func (g *Graph) CreateGroup(name string) (*Group, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrValidationFailed)
	}
	grp := &Group{
		ID:       g.allocID(),
		Name:     name,
		users:    make(idSet),
		roles:    make(idSet),
		parents:  make(idSet),
		children: make(idSet),
	}
	grp.EntityID = g.newEntity(EntityTypeGroup, grp.ID).ID
	g.groups[grp.ID] = grp
	return grp, nil
}

// CreateRole adds a role and its entity to the graph.
func (g *Graph) CreateRole(name string) (*Role, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidationFailed)
	}
	r := &Role{
		ID:     g.allocID(),
		Name:   name,
		users:  make(idSet),
		groups: make(idSet),
	}
	r.EntityID = g.newEntity(EntityTypeRole, r.ID).ID
	g.roles[r.ID] = r
	return r, nil
}

// User returns the user with the given id.
func (g *Graph) User(id int64) (*User, error) {
	u, ok := g.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// Group returns the group with the given id.
func (g *Graph) Group(id int64) (*Group, error) {
	grp, ok := g.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	return grp, nil
}

// Role returns the role with the given id.
func (g *Graph) Role(id int64) (*Role, error) {
	r, ok := g.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
	}
	return r, nil
}

// Entity returns the entity with the given id.
func (g *Graph) Entity(id int64) (*Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// GroupIDs returns the sorted ids of the groups the user belongs to.
func (u *User) GroupIDs() []int64 { return u.groups.sorted() }

// RoleIDs returns the sorted ids of the roles assigned to the user.
func (u *User) RoleIDs() []int64 { return u.roles.sorted() }

// UserIDs returns the sorted ids of the group's member users.
func (grp *Group) UserIDs() []int64 { return grp.users.sorted() }

// RoleIDs returns the sorted ids of the roles attached to the group.
func (grp *Group) RoleIDs() []int64 { return grp.roles.sorted() }

// ParentIDs returns the sorted ids of the group's parent groups.
func (grp *Group) ParentIDs() []int64 { return grp.parents.sorted() }

// ChildIDs returns the sorted ids of the group's child groups.
func (grp *Group) ChildIDs() []int64 { return grp.children.sorted() }

// UserIDs returns the sorted ids of the users holding the role.
func (r *Role) UserIDs() []int64 { return r.users.sorted() }

// GroupIDs returns the sorted ids of the groups the role is attached to.
func (r *Role) GroupIDs() []int64 { return r.groups.sorted() }

// HasUser reports whether the user is a direct member of the group.
func (grp *Group) HasUser(userID int64) bool { return grp.users.has(userID) }

// HasRole reports whether the role is attached to the group.
func (grp *Group) HasRole(roleID int64) bool { return grp.roles.has(roleID) }

// MemberOf reports whether the user is a direct member of the group.
func (u *User) MemberOf(groupID int64) bool { return u.groups.has(groupID) }

// HasRole reports whether the role is directly assigned to the user.
func (u *User) HasRole(roleID int64) bool { return u.roles.has(roleID) }

// scheme returns the named scheme on the entity, creating it when absent.
func (e *Entity) scheme(name string) *Scheme {
	for _, s := range e.Schemes {
		if s.Name == name {
			return s
		}
	}
	s := &Scheme{Name: name}
	e.Schemes = append(e.Schemes, s)
	return s
}

// AddAccess records a grant-or-deny rule for (uri, verb) on the entity's named
// scheme. An existing rule for the same (uri, verb) in the same scheme is
// replaced, so an entity never carries both a grant and a deny row for one
// pair in one scheme.
func (g *Graph) AddAccess(entityID int64, schemeName, uri, verb string, grant bool) error {
	e, err := g.Entity(entityID)
	if err != nil {
		return err
	}
	if uri == "" || verb == "" {
		return fmt.Errorf("%w: uri and verb are required", ErrValidationFailed)
	}
	if schemeName == "" {
		schemeName = "default"
	}
	s := e.scheme(schemeName)
	for i := range s.Access {
		if s.Access[i].URI == uri && s.Access[i].Verb == verb {
			s.Access[i].Grant = grant
			s.Access[i].Deny = !grant
			return nil
		}
	}
	s.Access = append(s.Access, UriAccess{URI: uri, Verb: verb, Grant: grant, Deny: !grant})
	return nil
}

// RemoveAccess deletes the (uri, verb) rule from every scheme on the entity.
func (g *Graph) RemoveAccess(entityID int64, uri, verb string) error {
	e, err := g.Entity(entityID)
	if err != nil {
		return err
	}
	removed := false
	for _, s := range e.Schemes {
		kept := s.Access[:0]
		for _, a := range s.Access {
			if a.URI == uri && a.Verb == verb {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		s.Access = kept
	}
	if !removed {
		return fmt.Errorf("access rule (%s %s) on entity %d: %w", verb, uri, entityID, ErrNotFound)
	}
	return nil
}
