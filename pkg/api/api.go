// Package api defines the wire contract between the ACS front router and
// per-tenant workers. The vocabulary is carried over Connect RPC with a JSON
// codec, so the types here are plain structs rather than generated protobuf
// messages.
package api

// Procedure paths for the tenant command/query vocabulary. The front router
// exposes the same procedures it forwards to the resolved tenant worker.
const (
	ProcedureCreateUser            = "/acs.v1.TenantService/CreateUser"
	ProcedureCreateGroup           = "/acs.v1.TenantService/CreateGroup"
	ProcedureCreateRole            = "/acs.v1.TenantService/CreateRole"
	ProcedureAddUserToGroup        = "/acs.v1.TenantService/AddUserToGroup"
	ProcedureRemoveUserFromGroup   = "/acs.v1.TenantService/RemoveUserFromGroup"
	ProcedureAssignUserToRole      = "/acs.v1.TenantService/AssignUserToRole"
	ProcedureUnassignUserFromRole  = "/acs.v1.TenantService/UnassignUserFromRole"
	ProcedureAddRoleToGroup        = "/acs.v1.TenantService/AddRoleToGroup"
	ProcedureRemoveRoleFromGroup   = "/acs.v1.TenantService/RemoveRoleFromGroup"
	ProcedureAddGroupToGroup       = "/acs.v1.TenantService/AddGroupToGroup"
	ProcedureRemoveGroupFromGroup  = "/acs.v1.TenantService/RemoveGroupFromGroup"
	ProcedureGrantPermission       = "/acs.v1.TenantService/GrantPermission"
	ProcedureDenyPermission        = "/acs.v1.TenantService/DenyPermission"
	ProcedureRevokePermission      = "/acs.v1.TenantService/RevokePermission"
	ProcedureCheckPermission       = "/acs.v1.TenantService/CheckPermission"
	ProcedureGetUser               = "/acs.v1.TenantService/GetUser"
	ProcedureGetGroup              = "/acs.v1.TenantService/GetGroup"
	ProcedureGetRole               = "/acs.v1.TenantService/GetRole"
)

// User is the wire representation of a user and its membership edges.
type User struct {
	ID       int64   `json:"id"`
	EntityID int64   `json:"entity_id"`
	Name     string  `json:"name"`
	GroupIDs []int64 `json:"group_ids,omitempty"`
	RoleIDs  []int64 `json:"role_ids,omitempty"`
}

// Group is the wire representation of a group, its members, and its place in
// the group hierarchy.
type Group struct {
	ID        int64   `json:"id"`
	EntityID  int64   `json:"entity_id"`
	Name      string  `json:"name"`
	UserIDs   []int64 `json:"user_ids,omitempty"`
	RoleIDs   []int64 `json:"role_ids,omitempty"`
	ParentIDs []int64 `json:"parent_ids,omitempty"`
	ChildIDs  []int64 `json:"child_ids,omitempty"`
}

// Role is the wire representation of a role and the principals it is bound to.
type Role struct {
	ID       int64   `json:"id"`
	EntityID int64   `json:"entity_id"`
	Name     string  `json:"name"`
	UserIDs  []int64 `json:"user_ids,omitempty"`
	GroupIDs []int64 `json:"group_ids,omitempty"`
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

type CreateUserResponse struct {
	User User `json:"user"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type CreateRoleRequest struct {
	Name string `json:"name"`
}

type CreateRoleResponse struct {
	Role Role `json:"role"`
}

// MembershipRequest covers the user/group, user/role, and role/group edge
// operations; only the two relevant ids are set for any given procedure.
type MembershipRequest struct {
	UserID  int64 `json:"user_id,omitempty"`
	GroupID int64 `json:"group_id,omitempty"`
	RoleID  int64 `json:"role_id,omitempty"`
}

type MembershipResponse struct{}

// GroupEdgeRequest adds or removes a parent/child edge in the group hierarchy.
type GroupEdgeRequest struct {
	ParentID int64 `json:"parent_id"`
	ChildID  int64 `json:"child_id"`
}

type GroupEdgeResponse struct{}

// PermissionRequest grants, denies, or revokes access to (URI, verb) for the
// scheme attached to an entity.
type PermissionRequest struct {
	EntityID int64  `json:"entity_id"`
	URI      string `json:"uri"`
	Verb     string `json:"verb"`
	Scheme   string `json:"scheme,omitempty"`
}

type PermissionResponse struct{}

type CheckPermissionRequest struct {
	EntityID int64  `json:"entity_id"`
	URI      string `json:"uri"`
	Verb     string `json:"verb"`
}

// CheckPermissionResponse reports the access decision plus the entity and
// scheme that produced it, for audit trails.
type CheckPermissionResponse struct {
	Allowed         bool   `json:"allowed"`
	MatchedEntityID int64  `json:"matched_entity_id,omitempty"`
	MatchedScheme   string `json:"matched_scheme,omitempty"`
}

type GetUserRequest struct {
	ID int64 `json:"id"`
}

type GetUserResponse struct {
	User User `json:"user"`
}

type GetGroupRequest struct {
	ID int64 `json:"id"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type GetRoleRequest struct {
	ID int64 `json:"id"`
}

type GetRoleResponse struct {
	Role Role `json:"role"`
}

// HealthStatus is returned by a worker's liveness endpoint.
type HealthStatus struct {
	Status   string `json:"status"`
	TenantID string `json:"tenant_id"`
	// InstanceID changes on every worker start, so a restart is visible to
	// the supervisor even when the endpoint is reused.
	InstanceID string `json:"instance_id"`
	Uptime     string `json:"uptime"`
}
