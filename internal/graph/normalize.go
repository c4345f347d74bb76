package graph

import "fmt"

// Relationship normalizers. Each add/remove pair below is the only code that
// mutates both sides of a membership edge, so the two id sets can never
// diverge. Every method validates its preconditions before touching either
// side; on error the graph is unchanged.

// AddUserToGroup makes the user a direct member of the group.
func (g *Graph) AddUserToGroup(userID, groupID int64) error {
	u, err := g.User(userID)
	if err != nil {
		return err
	}
	grp, err := g.Group(groupID)
	if err != nil {
		return err
	}
	if u.groups.has(groupID) {
		return fmt.Errorf("user %d in group %d: %w", userID, groupID, ErrDuplicateAssignment)
	}
	u.groups.add(groupID)
	grp.users.add(userID)
	return nil
}

// RemoveUserFromGroup removes the user's direct membership in the group.
func (g *Graph) RemoveUserFromGroup(userID, groupID int64) error {
	u, err := g.User(userID)
	if err != nil {
		return err
	}
	grp, err := g.Group(groupID)
	if err != nil {
		return err
	}
	if !u.groups.has(groupID) {
		return fmt.Errorf("user %d membership in group %d: %w", userID, groupID, ErrNotFound)
	}
	u.groups.remove(groupID)
	grp.users.remove(userID)
	return nil
}

// AssignUserToRole assigns the role directly to the user.
func (g *Graph) AssignUserToRole(userID, roleID int64) error {
	u, err := g.User(userID)
	if err != nil {
		return err
	}
	r, err := g.Role(roleID)
	if err != nil {
		return err
	}
	if u.roles.has(roleID) {
		return fmt.Errorf("user %d role %d: %w", userID, roleID, ErrDuplicateAssignment)
	}
	u.roles.add(roleID)
	r.users.add(userID)
	return nil
}

// UnassignUserFromRole removes the role from the user.
func (g *Graph) UnassignUserFromRole(userID, roleID int64) error {
	u, err := g.User(userID)
	if err != nil {
		return err
	}
	r, err := g.Role(roleID)
	if err != nil {
		return err
	}
	if !u.roles.has(roleID) {
		return fmt.Errorf("user %d assignment of role %d: %w", userID, roleID, ErrNotFound)
	}
	u.roles.remove(roleID)
	r.users.remove(userID)
	return nil
}

// AddRoleToGroup attaches the role to the group.
func (g *Graph) AddRoleToGroup(roleID, groupID int64) error {
	r, err := g.Role(roleID)
	if err != nil {
		return err
	}
	grp, err := g.Group(groupID)
	if err != nil {
		return err
	}
	if grp.roles.has(roleID) {
		return fmt.Errorf("role %d on group %d: %w", roleID, groupID, ErrDuplicateAssignment)
	}
	grp.roles.add(roleID)
	r.groups.add(groupID)
	return nil
}

// RemoveRoleFromGroup detaches the role from the group.
func (g *Graph) RemoveRoleFromGroup(roleID, groupID int64) error {
	r, err := g.Role(roleID)
	if err != nil {
		return err
	}
	grp, err := g.Group(groupID)
	if err != nil {
		return err
	}
	if !grp.roles.has(roleID) {
		return fmt.Errorf("role %d attachment to group %d: %w", roleID, groupID, ErrNotFound)
	}
	grp.roles.remove(roleID)
	r.groups.remove(groupID)
	return nil
}

// AddGroupToGroup makes child a child of parent in the group hierarchy.
// Rejects self-edges and any edge that would make a group its own ancestor.
func (g *Graph) AddGroupToGroup(parentID, childID int64) error {
	if parentID == childID {
		return fmt.Errorf("group %d: %w", parentID, ErrSelfReference)
	}
	parent, err := g.Group(parentID)
	if err != nil {
		return err
	}
	child, err := g.Group(childID)
	if err != nil {
		return err
	}
	if parent.children.has(childID) {
		return fmt.Errorf("group %d child of group %d: %w", childID, parentID, ErrDuplicateAssignment)
	}
	if err := g.checkAcyclic(parentID, childID); err != nil {
		return err
	}
	parent.children.add(childID)
	child.parents.add(parentID)
	return nil
}

// RemoveGroupFromGroup removes the parent/child edge between the two groups.
func (g *Graph) RemoveGroupFromGroup(parentID, childID int64) error {
	parent, err := g.Group(parentID)
	if err != nil {
		return err
	}
	child, err := g.Group(childID)
	if err != nil {
		return err
	}
	if !parent.children.has(childID) {
		return fmt.Errorf("edge group %d -> group %d: %w", parentID, childID, ErrNotFound)
	}
	parent.children.remove(childID)
	child.parents.remove(parentID)
	return nil
}
