package worker

import (
	"context"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"

	"github.com/JoshuaRamirez/ACS-sub017/internal/engine"
	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
	"github.com/JoshuaRamirez/ACS-sub017/pkg/api"
)

// unary builds a Connect handler for one procedure: translate the wire
// request into a command, run it through the engine's queue, and translate
// the result back.
func unary[Req, Res any](eng *engine.Engine, procedure string, toCmd func(*Req) engine.Command, toRes func(any) *Res) (string, *connect.Handler) {
	h := connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			value, err := eng.Execute(ctx, toCmd(req.Msg))
			if err != nil {
				return nil, mapCommandError(err)
			}
			return connect.NewResponse(toRes(value)), nil
		},
		connect.WithCodec(api.Codec{}),
	)
	return procedure, h
}

func membershipRes(any) *api.MembershipResponse { return &api.MembershipResponse{} }
func groupEdgeRes(any) *api.GroupEdgeResponse   { return &api.GroupEdgeResponse{} }
func permissionRes(any) *api.PermissionResponse { return &api.PermissionResponse{} }

// mountHandlers registers every procedure of the tenant vocabulary.
func mountHandlers(r chi.Router, eng *engine.Engine) {
	r.Handle(unary(eng, api.ProcedureCreateUser,
		func(req *api.CreateUserRequest) engine.Command { return engine.CreateUser{UserName: req.Name} },
		func(v any) *api.CreateUserResponse { return &api.CreateUserResponse{User: v.(api.User)} }))

	r.Handle(unary(eng, api.ProcedureCreateGroup,
		func(req *api.CreateGroupRequest) engine.Command { return engine.CreateGroup{GroupName: req.Name} },
		func(v any) *api.CreateGroupResponse { return &api.CreateGroupResponse{Group: v.(api.Group)} }))

	r.Handle(unary(eng, api.ProcedureCreateRole,
		func(req *api.CreateRoleRequest) engine.Command { return engine.CreateRole{RoleName: req.Name} },
		func(v any) *api.CreateRoleResponse { return &api.CreateRoleResponse{Role: v.(api.Role)} }))

	r.Handle(unary(eng, api.ProcedureAddUserToGroup,
		func(req *api.MembershipRequest) engine.Command {
			return engine.AddUserToGroup{UserID: req.UserID, GroupID: req.GroupID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureRemoveUserFromGroup,
		func(req *api.MembershipRequest) engine.Command {
			return engine.RemoveUserFromGroup{UserID: req.UserID, GroupID: req.GroupID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureAssignUserToRole,
		func(req *api.MembershipRequest) engine.Command {
			return engine.AssignUserToRole{UserID: req.UserID, RoleID: req.RoleID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureUnassignUserFromRole,
		func(req *api.MembershipRequest) engine.Command {
			return engine.UnassignUserFromRole{UserID: req.UserID, RoleID: req.RoleID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureAddRoleToGroup,
		func(req *api.MembershipRequest) engine.Command {
			return engine.AddRoleToGroup{RoleID: req.RoleID, GroupID: req.GroupID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureRemoveRoleFromGroup,
		func(req *api.MembershipRequest) engine.Command {
			return engine.RemoveRoleFromGroup{RoleID: req.RoleID, GroupID: req.GroupID}
		}, membershipRes))

	r.Handle(unary(eng, api.ProcedureAddGroupToGroup,
		func(req *api.GroupEdgeRequest) engine.Command {
			return engine.AddGroupToGroup{ParentID: req.ParentID, ChildID: req.ChildID}
		}, groupEdgeRes))

	r.Handle(unary(eng, api.ProcedureRemoveGroupFromGroup,
		func(req *api.GroupEdgeRequest) engine.Command {
			return engine.RemoveGroupFromGroup{ParentID: req.ParentID, ChildID: req.ChildID}
		}, groupEdgeRes))

	r.Handle(unary(eng, api.ProcedureGrantPermission,
		func(req *api.PermissionRequest) engine.Command {
			return engine.GrantPermission{EntityID: req.EntityID, Scheme: req.Scheme, URI: req.URI, Verb: req.Verb}
		}, permissionRes))

	r.Handle(unary(eng, api.ProcedureDenyPermission,
		func(req *api.PermissionRequest) engine.Command {
			return engine.DenyPermission{EntityID: req.EntityID, Scheme: req.Scheme, URI: req.URI, Verb: req.Verb}
		}, permissionRes))

	r.Handle(unary(eng, api.ProcedureRevokePermission,
		func(req *api.PermissionRequest) engine.Command {
			return engine.RevokePermission{EntityID: req.EntityID, URI: req.URI, Verb: req.Verb}
		}, permissionRes))

	r.Handle(unary(eng, api.ProcedureCheckPermission,
		func(req *api.CheckPermissionRequest) engine.Command {
			return engine.CheckPermission{EntityID: req.EntityID, URI: req.URI, Verb: req.Verb}
		},
		func(v any) *api.CheckPermissionResponse {
			dec := v.(graph.Decision)
			return &api.CheckPermissionResponse{
				Allowed:         dec.Allowed,
				MatchedEntityID: dec.MatchedEntityID,
				MatchedScheme:   dec.MatchedScheme,
			}
		}))

	r.Handle(unary(eng, api.ProcedureGetUser,
		func(req *api.GetUserRequest) engine.Command { return engine.GetUser{ID: req.ID} },
		func(v any) *api.GetUserResponse { return &api.GetUserResponse{User: v.(api.User)} }))

	r.Handle(unary(eng, api.ProcedureGetGroup,
		func(req *api.GetGroupRequest) engine.Command { return engine.GetGroup{ID: req.ID} },
		func(v any) *api.GetGroupResponse { return &api.GetGroupResponse{Group: v.(api.Group)} }))

	r.Handle(unary(eng, api.ProcedureGetRole,
		func(req *api.GetRoleRequest) engine.Command { return engine.GetRole{ID: req.ID} },
		func(v any) *api.GetRoleResponse { return &api.GetRoleResponse{Role: v.(api.Role)} }))
}
