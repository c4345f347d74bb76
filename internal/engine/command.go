package engine

import (
	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

// Command is one unit of work against the tenant graph. Apply runs on the
// engine's processing loop, never concurrently with another command. Results
// are wire-type values, so no live graph object ever escapes the loop.
type Command interface {
	Name() string
	Mutating() bool
	Apply(g *graph.Graph) (any, error)
}

func userView(u *graph.User) api.User {
	return api.User{
		ID:       u.ID,
		EntityID: u.EntityID,
		Name:     u.Name,
		GroupIDs: u.GroupIDs(),
		RoleIDs:  u.RoleIDs(),
	}
}

func groupView(grp *graph.Group) api.Group {
	return api.Group{
		ID:        grp.ID,
		EntityID:  grp.EntityID,
		Name:      grp.Name,
		UserIDs:   grp.UserIDs(),
		RoleIDs:   grp.RoleIDs(),
		ParentIDs: grp.ParentIDs(),
		ChildIDs:  grp.ChildIDs(),
	}
}

func roleView(r *graph.Role) api.Role {
	return api.Role{
		ID:       r.ID,
		EntityID: r.EntityID,
		Name:     r.Name,
		UserIDs:  r.UserIDs(),
		GroupIDs: r.GroupIDs(),
	}
}

type CreateUser struct {
	UserName string
}

func (CreateUser) Name() string   { return "CreateUser" }
func (CreateUser) Mutating() bool { return true }

func (c CreateUser) Apply(g *graph.Graph) (any, error) {
	u, err := g.CreateUser(c.UserName)
	if err != nil {
		return nil, err
	}
	return userView(u), nil
}

type CreateGroup struct {
	GroupName string
}

func (CreateGroup) Name() string   { return "CreateGroup" }
func (CreateGroup) Mutating() bool { return true }

func (c CreateGroup) Apply(g *graph.Graph) (any, error) {
	grp, err := g.CreateGroup(c.GroupName)
	if err != nil {
		return nil, err
	}
	return groupView(grp), nil
}

type CreateRole struct {
	RoleName string
}

func (CreateRole) Name() string   { return "CreateRole" }
func (CreateRole) Mutating() bool { return true }

func (c CreateRole) Apply(g *graph.Graph) (any, error) {
	r, err := g.CreateRole(c.RoleName)
	if err != nil {
		return nil, err
	}
	return roleView(r), nil
}

type AddUserToGroup struct {
	UserID, GroupID int64
}

func (AddUserToGroup) Name() string   { return "AddUserToGroup" }
func (AddUserToGroup) Mutating() bool { return true }

func (c AddUserToGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.AddUserToGroup(c.UserID, c.GroupID)
}

type RemoveUserFromGroup struct {
	UserID, GroupID int64
}

func (RemoveUserFromGroup) Name() string   { return "RemoveUserFromGroup" }
func (RemoveUserFromGroup) Mutating() bool { return true }

func (c RemoveUserFromGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.RemoveUserFromGroup(c.UserID, c.GroupID)
}

type AssignUserToRole struct {
	UserID, RoleID int64
}

func (AssignUserToRole) Name() string   { return "AssignUserToRole" }
func (AssignUserToRole) Mutating() bool { return true }

func (c AssignUserToRole) Apply(g *graph.Graph) (any, error) {
	return nil, g.AssignUserToRole(c.UserID, c.RoleID)
}

type UnassignUserFromRole struct {
	UserID, RoleID int64
}

func (UnassignUserFromRole) Name() string   { return "UnassignUserFromRole" }
func (UnassignUserFromRole) Mutating() bool { return true }

func (c UnassignUserFromRole) Apply(g *graph.Graph) (any, error) {
	return nil, g.UnassignUserFromRole(c.UserID, c.RoleID)
}

type AddRoleToGroup struct {
	RoleID, GroupID int64
}

func (AddRoleToGroup) Name() string   { return "AddRoleToGroup" }
func (AddRoleToGroup) Mutating() bool { return true }

func (c AddRoleToGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.AddRoleToGroup(c.RoleID, c.GroupID)
}

type RemoveRoleFromGroup struct {
	RoleID, GroupID int64
}

func (RemoveRoleFromGroup) Name() string   { return "RemoveRoleFromGroup" }
func (RemoveRoleFromGroup) Mutating() bool { return true }

func (c RemoveRoleFromGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.RemoveRoleFromGroup(c.RoleID, c.GroupID)
}

type AddGroupToGroup struct {
	ParentID, ChildID int64
}

func (AddGroupToGroup) Name() string   { return "AddGroupToGroup" }
func (AddGroupToGroup) Mutating() bool { return true }

func (c AddGroupToGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.AddGroupToGroup(c.ParentID, c.ChildID)
}

type RemoveGroupFromGroup struct {
	ParentID, ChildID int64
}

func (RemoveGroupFromGroup) Name() string   { return "RemoveGroupFromGroup" }
func (RemoveGroupFromGroup) Mutating() bool { return true }

func (c RemoveGroupFromGroup) Apply(g *graph.Graph) (any, error) {
	return nil, g.RemoveGroupFromGroup(c.ParentID, c.ChildID)
}

type GrantPermission struct {
	EntityID  int64
	Scheme    string
	URI, Verb string
}

func (GrantPermission) Name() string   { return "GrantPermission" }
func (GrantPermission) Mutating() bool { return true }

func (c GrantPermission) Apply(g *graph.Graph) (any, error) {
	return nil, g.AddAccess(c.EntityID, c.Scheme, c.URI, c.Verb, true)
}

type DenyPermission struct {
	EntityID  int64
	Scheme    string
	URI, Verb string
}

func (DenyPermission) Name() string   { return "DenyPermission" }
func (DenyPermission) Mutating() bool { return true }

func (c DenyPermission) Apply(g *graph.Graph) (any, error) {
	return nil, g.AddAccess(c.EntityID, c.Scheme, c.URI, c.Verb, false)
}

type RevokePermission struct {
	EntityID  int64
	URI, Verb string
}

func (RevokePermission) Name() string   { return "RevokePermission" }
func (RevokePermission) Mutating() bool { return true }

func (c RevokePermission) Apply(g *graph.Graph) (any, error) {
	return nil, g.RemoveAccess(c.EntityID, c.URI, c.Verb)
}

// CheckPermission flows through the same queue as mutations, so a check never
// observes a partially-applied command.
type CheckPermission struct {
	EntityID  int64
	URI, Verb string
}

func (CheckPermission) Name() string   { return "CheckPermission" }
func (CheckPermission) Mutating() bool { return false }

func (c CheckPermission) Apply(g *graph.Graph) (any, error) {
	dec, err := g.Evaluate(c.EntityID, c.URI, c.Verb)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

type GetUser struct {
	ID int64
}

func (GetUser) Name() string   { return "GetUser" }
func (GetUser) Mutating() bool { return false }

func (c GetUser) Apply(g *graph.Graph) (any, error) {
	u, err := g.User(c.ID)
	if err != nil {
		return nil, err
	}
	return userView(u), nil
}

type GetGroup struct {
	ID int64
}

func (GetGroup) Name() string   { return "GetGroup" }
func (GetGroup) Mutating() bool { return false }

func (c GetGroup) Apply(g *graph.Graph) (any, error) {
	grp, err := g.Group(c.ID)
	if err != nil {
		return nil, err
	}
	return groupView(grp), nil
}

type GetRole struct {
	ID int64
}

func (GetRole) Name() string   { return "GetRole" }
func (GetRole) Mutating() bool { return false }

func (c GetRole) Apply(g *graph.Graph) (any, error) {
	r, err := g.Role(c.ID)
	if err != nil {
		return nil, err
	}
	return roleView(r), nil
}
